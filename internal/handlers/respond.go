package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/messenger"
	"github.com/good-news-everyone/discount-monitoring/internal/service"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

// ErrorResponse: тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errBadID = errors.New("invalid id")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// statusFor переводит доменные ошибки в HTTP-коды.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSubscriberNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadID),
		errors.Is(err, service.ErrEmptyVariant),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, snapshot.ErrUnsupportedSite):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSubscriberBlocked),
		errors.Is(err, messenger.ErrForbidden):
		return http.StatusConflict
	case errors.Is(err, snapshot.ErrNotFound),
		errors.Is(err, snapshot.ErrGone),
		errors.Is(err, snapshot.ErrNoProduct):
		return http.StatusUnprocessableEntity
	case errors.Is(err, snapshot.ErrTemporarilyUnavailable),
		errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает кодом по ошибке; 5xx пишутся в лог как ошибки.
func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorw(op+": internal error", "error", err)
		msg = "internal error"
	} else {
		logger.Warnw(op+": request failed", "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}
