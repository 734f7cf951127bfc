package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type upsertItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

func cartCode(r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil {
		return c.Value
	}
	return ""
}

func (a *api) setCartCookie(w http.ResponseWriter, code string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    code,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// resolveCart находит корзину по cookie или заводит новую. Cookie переписывается
// на каждом ответе, чтобы срок жизни отсчитывался от последнего обращения.
func (a *api) resolveCart(w http.ResponseWriter, r *http.Request) (domain.Cart, error) {
	c, _, err := a.svc.Carts.Resolve(r.Context(), cartCode(r))
	if err != nil {
		return domain.Cart{}, err
	}
	a.setCartCookie(w, c.Code)
	return c, nil
}

func (a *api) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := a.resolveCart(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	view, err := a.svc.Carts.View(r.Context(), c)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartJSON(view))
}

func (a *api) upsertCartItem(w http.ResponseWriter, r *http.Request) {
	var req upsertItemRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Quantity <= 0 {
		a.writeError(w, r, domain.ErrQuantityInvalid)
		return
	}

	c, err := a.resolveCart(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.svc.Carts.UpsertItem(r.Context(), c, req.ProductID, req.Quantity); err != nil {
		a.writeError(w, r, err)
		return
	}

	view, err := a.svc.Carts.Load(r.Context(), c.Code)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartJSON(view))
}

// removeCartItem всегда отвечает 204: отсутствие корзины или строки не ошибка.
func (a *api) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		a.writeError(w, r, domain.NewValidationError("product_id", "must be a positive integer"))
		return
	}

	view, err := a.svc.Carts.Load(r.Context(), cartCode(r))
	if errors.Is(err, domain.ErrCartNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.Carts.RemoveItem(r.Context(), view.Cart, productID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
