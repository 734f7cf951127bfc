package httpapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productJSON struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Price       string   `json:"price"`
	Image       string   `json:"image,omitempty"`
	Featured    bool     `json:"featured"`
	Gallery     []string `json:"gallery,omitempty"`
}

func toProductJSON(p domain.Product) productJSON {
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		Image:       p.Image,
		Featured:    p.Featured,
		Gallery:     p.Gallery,
	}
}

func toProductsJSON(products []domain.Product) []productJSON {
	out := make([]productJSON, 0, len(products))
	for _, p := range products {
		out = append(out, toProductJSON(p))
	}
	return out
}

type cartLineJSON struct {
	ID       int64       `json:"id"`
	Product  productJSON `json:"product"`
	Quantity int32       `json:"quantity"`
	SubTotal string      `json:"sub_total"`
}

type cartJSON struct {
	CartCode  string         `json:"cart_code"`
	Items     []cartLineJSON `json:"items"`
	ItemCount int32          `json:"item_count"`
	Total     string         `json:"total"`
}

func toCartJSON(v domain.CartView) cartJSON {
	out := cartJSON{
		CartCode: v.Cart.Code,
		Items:    make([]cartLineJSON, 0, len(v.Lines)),
		Total:    v.Total.StringFixed(2),
	}
	for _, l := range v.Lines {
		out.ItemCount += l.Item.Quantity
		out.Items = append(out.Items, cartLineJSON{
			ID:       l.Item.ID,
			Product:  toProductJSON(l.Product),
			Quantity: l.Item.Quantity,
			SubTotal: l.SubTotal.StringFixed(2),
		})
	}
	return out
}

type userJSON struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Username           string `json:"username"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	ProfilePictureURL  string `json:"profile_picture_url,omitempty"`
	RegistrationMethod string `json:"registration_method"`
}

func toUserJSON(u domain.User) userJSON {
	return userJSON{
		ID:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		ProfilePictureURL:  u.ProfilePictureURL,
		RegistrationMethod: string(u.RegistrationMethod),
	}
}

type orderItemJSON struct {
	OrderID   string    `json:"order_id"`
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int32     `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type timelineJSON struct {
	Type       string    `json:"type"`
	Reason     string    `json:"reason,omitempty"`
	Anomaly    bool      `json:"anomaly,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type orderJSON struct {
	ID            string          `json:"id"`
	CheckoutID    string          `json:"checkout_id"`
	Reference     string          `json:"reference,omitempty"`
	Amount        string          `json:"amount"`
	AmountMinor   int64           `json:"amount_minor"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []orderItemJSON `json:"items"`
	Timeline      []timelineJSON  `json:"timeline,omitempty"`
}

func toOrderItemsJSON(o domain.Order) []orderItemJSON {
	out := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, orderItemJSON{
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Status:    string(o.Status),
			CreatedAt: it.CreatedAt,
		})
	}
	return out
}

func toOrderJSON(o domain.Order, timeline []domain.TimelineEvent) orderJSON {
	out := orderJSON{
		ID:            o.ID,
		CheckoutID:    o.CheckoutID,
		Reference:     o.Reference,
		Amount:        domain.FromMinorUnits(o.AmountMinor).StringFixed(2),
		AmountMinor:   o.AmountMinor,
		Currency:      o.Currency,
		CustomerEmail: o.CustomerEmail,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		Items:         toOrderItemsJSON(o),
	}
	for _, ev := range timeline {
		out.Timeline = append(out.Timeline, timelineJSON{
			Type:       string(ev.Kind),
			Reason:     ev.Note,
			Anomaly:    ev.Kind.Anomaly(),
			OccurredAt: ev.OccurredAt,
		})
	}
	return out
}

type addressJSON struct {
	ID         int64  `json:"id,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`
	IsDefault  bool   `json:"is_default"`
}

func toAddressJSON(a domain.Address) addressJSON {
	return addressJSON{
		ID:         a.ID,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
	}
}

func (a addressJSON) toDomain(userID int64) domain.Address {
	return domain.Address{
		ID:         a.ID,
		UserID:     userID,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
	}
}

// idList принимает один ID или массив ID; числа и строки с цифрами равноправны.
type idList []int64

func (l *idList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return errIDList
		}
	} else {
		raw = []json.RawMessage{data}
	}

	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		id, err := parseID(item)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

var errIDList = domain.NewValidationError("", "expected a positive integer id or a list of ids")

func parseID(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errIDList
	}
	return id, nil
}
