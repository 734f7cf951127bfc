package httpapi

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

type checkoutRequest struct {
	ShippingMethod string `json:"shipping_method"`
}

func (a *api) initiateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	u := userFrom(r.Context())
	res, err := a.svc.Checkout.Initiate(r.Context(), checkout.Request{
		CustomerEmail:  u.Email,
		CartCode:       cartCode(r),
		ShippingMethod: req.ShippingMethod,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeJSON(w, http.StatusOK, res)
}

type webhookResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
}

// paystackWebhook принимает уведомления процессора. Тело читается целиком до разбора,
// иначе подпись не сойдётся. Любой не-2xx ответ вызывает повторную доставку.
func (a *api) paystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.WebhookMaxBytes))
	if err != nil {
		a.requestLogger(r).WithError(err).Warn("webhook body rejected")
		a.writeError(w, r, domain.NewValidationError("body", "request body too large or unreadable"))
		return
	}

	res, err := a.svc.Webhooks.Handle(r.Context(), body, r.Header.Get(webhook.SignatureHeader))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.requestLogger(r).WithFields(log.Fields{
		"event":    res.Event,
		"status":   res.Status,
		"order_id": res.OrderID,
	}).Info("webhook processed")
	writeJSON(w, http.StatusOK, webhookResponse{Status: string(res.Status), OrderID: res.OrderID})
}
