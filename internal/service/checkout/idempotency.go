package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// failureKind различает классы ошибок при сохранении неудачного ответа.
type failureKind string

const (
	failureValidation failureKind = "validation"
	failureUpstream   failureKind = "upstream"
	failureInternal   failureKind = "internal"
)

type cachedFailure struct {
	Kind    failureKind `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

func (s *Service) withIdempotency(ctx context.Context, req Request) (Result, error) {
	key := req.IdempotencyKey
	entry := s.logger.WithField("idempotency_key", key)

	record, err := s.idem.CreateProcessing(ctx, key, requestHash(req), s.now().UTC().Add(s.cfg.IdempotencyTTL))
	if err != nil {
		return s.replay(err, record, entry)
	}

	res, runErr := s.initiate(ctx, req)
	// Сохранение ответа не должно зависеть от отмены клиентского запроса.
	storeCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		kind, status := classifyFailure(runErr)
		payload, _ := json.Marshal(failureFromError(runErr, kind))
		if err := s.idem.MarkFailed(storeCtx, key, payload, status); err != nil {
			entry.WithError(err).Warn("failed to store idempotent failure response")
		}
		return Result{}, runErr
	}

	body, err := json.Marshal(res)
	if err == nil {
		err = s.idem.MarkDone(storeCtx, key, body, http.StatusOK)
	}
	if err != nil {
		entry.WithError(err).Warn("failed to store idempotent success response")
	}
	return res, nil
}

func (s *Service) replay(createErr error, record domain.IdempotencyRecord, entry *log.Entry) (Result, error) {
	if !errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists) {
		if !errors.Is(createErr, domain.ErrIdempotencyHashMismatch) {
			entry.WithError(createErr).Warn("failed to create idempotency record")
		}
		return Result{}, createErr
	}

	if !record.Finished() {
		return Result{}, createErr
	}
	switch record.Status {
	case domain.IdempotencyStatusDone:
		var res Result
		if err := json.Unmarshal(record.ResponseBody, &res); err != nil {
			entry.WithError(err).Warn("failed to decode cached checkout response")
			return Result{}, errors.New("failed to decode cached checkout response")
		}
		res.Replayed = true
		return res, nil
	default:
		return Result{}, decodeFailure(record.ResponseBody)
	}
}

// requestHash связывает ключ с содержимым запроса: повтор ключа с другим телом отклоняется.
func requestHash(req Request) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(req.CustomerEmail),
		req.CartCode,
		strings.ToLower(strings.TrimSpace(req.ShippingMethod)),
	}, "\x00")))
	return hex.EncodeToString(sum[:])
}

func classifyFailure(err error) (failureKind, int) {
	switch {
	case domain.IsValidation(err):
		return failureValidation, http.StatusBadRequest
	case domain.IsUpstream(err):
		return failureUpstream, http.StatusBadGateway
	default:
		return failureInternal, http.StatusInternalServerError
	}
}

func failureFromError(err error, kind failureKind) cachedFailure {
	f := cachedFailure{Kind: kind, Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		f.Field, f.Message = verr.Field, verr.Message
	}
	var perr *domain.PaymentError
	if errors.As(err, &perr) {
		f.Message = perr.Message
	}
	return f
}

func decodeFailure(body []byte) error {
	var f cachedFailure
	if err := json.Unmarshal(body, &f); err != nil || f.Message == "" {
		return errors.New("previous request with the same idempotency key failed")
	}
	switch f.Kind {
	case failureValidation:
		return domain.NewValidationError(f.Field, f.Message)
	case failureUpstream:
		return &domain.PaymentError{Message: f.Message, Err: domain.ErrPaymentRejected}
	default:
		return errors.New(f.Message)
	}
}
