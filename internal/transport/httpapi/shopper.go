package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type toggleRequest struct {
	ProductID idList `json:"product_id"`
}

type wishlistItemJSON struct {
	Product productJSON `json:"product"`
	AddedAt time.Time   `json:"added_at"`
}

type recentRequest struct {
	ProductID int64 `json:"product_id"`
}

func (a *api) listWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Shopper.Wishlist(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]wishlistItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, wishlistItemJSON{Product: toProductJSON(it.Product), AddedAt: it.AddedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.svc.Shopper.ToggleWishlist(r.Context(), userFrom(r.Context()).ID, req.ProductID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) listRecent(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.Shopper.RecentlyViewed(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductsJSON(products))
}

func (a *api) touchRecent(w http.ResponseWriter, r *http.Request) {
	var req recentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.Shopper.TouchRecentlyViewed(r.Context(), userFrom(r.Context()).ID, req.ProductID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "product added to recently viewed"})
}

func (a *api) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Shopper.Addresses(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]addressJSON, 0, len(list))
	for _, addr := range list {
		out = append(out, toAddressJSON(addr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createAddress(w http.ResponseWriter, r *http.Request) {
	var req addressJSON
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	req.ID = 0
	created, err := a.svc.Shopper.CreateAddress(r.Context(), req.toDomain(userFrom(r.Context()).ID))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAddressJSON(created))
}

func (a *api) updateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := a.addressID(w, r)
	if !ok {
		return
	}
	var req addressJSON
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	req.ID = id
	updated, err := a.svc.Shopper.UpdateAddress(r.Context(), req.toDomain(userFrom(r.Context()).ID))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAddressJSON(updated))
}

func (a *api) deleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := a.addressID(w, r)
	if !ok {
		return
	}
	if err := a.svc.Shopper.DeleteAddress(r.Context(), userFrom(r.Context()).ID, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) addressID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "addressID"), 10, 64)
	if err != nil || id <= 0 {
		a.writeError(w, r, domain.ErrAddressNotFound)
		return 0, false
	}
	return id, true
}
