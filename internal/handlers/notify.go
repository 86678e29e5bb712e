package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/service"
)

// NotifyHandler: ручная рассылка от оператора.
type NotifyHandler struct {
	Dispatcher *service.Dispatcher
	Logger     *zap.SugaredLogger
}

func NewNotifyHandler(dispatcher *service.Dispatcher, logger *zap.SugaredLogger) *NotifyHandler {
	return &NotifyHandler{Dispatcher: dispatcher, Logger: logger}
}

func (h *NotifyHandler) NotifyOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Logger, "NotifyOne", err)
		return
	}
	var req MessageRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.Logger, "NotifyOne", errors.New("invalid request body"))
		return
	}
	if err := h.Dispatcher.NotifyOne(r.Context(), id, req.Message); err != nil {
		writeError(w, h.Logger, "NotifyOne", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotifyHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.Logger, "Broadcast", errors.New("invalid request body"))
		return
	}
	report, err := h.Dispatcher.Broadcast(r.Context(), req.Message)
	if err != nil {
		writeError(w, h.Logger, "Broadcast", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}
