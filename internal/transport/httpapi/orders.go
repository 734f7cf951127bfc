package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const ordersPageSize = 50

// listOrderItems возвращает строки заказов, оформленных на email пользователя.
func (a *api) listOrderItems(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.Orders.ListByEmail(r.Context(), userFrom(r.Context()).Email, ordersPageSize)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	items := make([]orderItemJSON, 0)
	for _, o := range orders {
		items = append(items, toOrderItemsJSON(o)...)
	}
	writeJSON(w, http.StatusOK, items)
}

// getOrder отдаёт заказ с историей. Чужой заказ неотличим от отсутствующего.
func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.svc.Orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !strings.EqualFold(o.CustomerEmail, userFrom(r.Context()).Email) {
		a.writeError(w, r, domain.ErrOrderNotFound)
		return
	}

	timeline, err := a.svc.Timeline.List(r.Context(), o.ID)
	if err != nil {
		a.requestLogger(r).WithError(err).Warn("order timeline unavailable")
		timeline = nil
	}
	writeJSON(w, http.StatusOK, toOrderJSON(o, timeline))
}
