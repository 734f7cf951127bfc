package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// classify переводит доменную ошибку в HTTP статус и тело ответа.
func classify(err error) (int, errorResponse) {
	var (
		verr *domain.ValidationError
		perr *domain.PaymentError
	)
	switch {
	case errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_signature"}
	case errors.Is(err, webhook.ErrMalformedEvent):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "malformed_event"}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: verr.Message, Code: "validation_error", Field: verr.Field}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "authentication required", Code: "unauthenticated"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "invalid_credentials"}
	case errors.Is(err, domain.ErrRegistrationMethodMismatch):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: "registration_method_mismatch"}
	case domain.IsNotFound(err):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"}
	case domain.IsConflict(err):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "conflict"}
	case domain.IsIdempotencyConflict(err):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "idempotency_conflict"}
	case errors.As(err, &perr):
		return http.StatusBadGateway, errorResponse{Error: perr.Message, Code: "payment_failed"}
	case domain.IsUpstream(err):
		return http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "payment_failed"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal"}
	}
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		a.requestLogger(r).WithError(err).Error("request failed")
	}
	writeJSON(w, status, body)
}

// decodeJSON читает ровно один JSON-объект из тела запроса.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var (
			maxErr *http.MaxBytesError
			verr   *domain.ValidationError
		)
		if errors.As(err, &verr) {
			return verr
		}
		if errors.As(err, &maxErr) {
			return domain.NewValidationError("body", "request body too large")
		}
		return domain.NewValidationError("body", "invalid JSON body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "request body must contain a single JSON object")
	}
	return nil
}
