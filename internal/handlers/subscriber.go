package handlers

import (
	"errors"
	"net/http"

	"github.com/gookit/validate"
	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/service"
)

// SubscriberHandler: регистрация подписчиков и управление их подписками.
type SubscriberHandler struct {
	Lifecycle *service.LifecycleService
	Logger    *zap.SugaredLogger
}

func NewSubscriberHandler(lifecycle *service.LifecycleService, logger *zap.SugaredLogger) *SubscriberHandler {
	return &SubscriberHandler{Lifecycle: lifecycle, Logger: logger}
}

// decodeValid читает JSON и проверяет теги validate.
func decodeValid(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return errors.New("invalid request body")
	}
	v := validate.Struct(dst)
	if !v.Validate() {
		return errors.New(v.Errors.One())
	}
	return nil
}

func badRequest(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	logger.Warnw(op+": bad request", "error", err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// Register регистрирует подписчика или снимает с него блокировку.
func (h *SubscriberHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeValid(r, &req); err != nil {
		badRequest(w, h.Logger, "Register", err)
		return
	}
	sub, err := h.Lifecycle.RegisterSubscriber(r.Context(), req.Address, req.Name)
	if err != nil {
		writeError(w, h.Logger, "Register", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriberDTO(sub))
}

// Track начинает отслеживать товар по URL.
func (h *SubscriberHandler) Track(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Logger, "Track", err)
		return
	}
	var req TrackRequest
	if err := decodeValid(r, &req); err != nil {
		badRequest(w, h.Logger, "Track", err)
		return
	}
	item, err := h.Lifecycle.Track(r.Context(), req.URL, id)
	if err != nil {
		writeError(w, h.Logger, "Track", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

func (h *SubscriberHandler) ListTracked(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Logger, "ListTracked", err)
		return
	}
	subs, err := h.Lifecycle.ListTracked(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "ListTracked", err)
		return
	}
	out := make([]SubscriptionDTO, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SubscriberHandler) UntrackAll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Logger, "UntrackAll", err)
		return
	}
	n, err := h.Lifecycle.UntrackAll(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "UntrackAll", err)
		return
	}
	writeJSON(w, http.StatusOK, UntrackAllResponse{Removed: n})
}

func (h *SubscriberHandler) Untrack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Logger, "Untrack", err)
		return
	}
	if err := h.Lifecycle.Untrack(r.Context(), id); err != nil {
		writeError(w, h.Logger, "Untrack", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddVariant подписывает на конкретный вариант (размер) товара.
func (h *SubscriberHandler) AddVariant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Logger, "AddVariant", err)
		return
	}
	var req VariantRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.Logger, "AddVariant", errors.New("invalid request body"))
		return
	}
	filter, err := h.Lifecycle.AddVariant(r.Context(), id, req.Variant)
	if err != nil {
		writeError(w, h.Logger, "AddVariant", err)
		return
	}
	writeJSON(w, http.StatusOK, VariantsResponse{Variants: filter})
}
