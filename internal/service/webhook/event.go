package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Только EventChargeSuccess приводит к созданию заказа.
const EventChargeSuccess = "charge.success"

// ErrMalformedEvent: тело подписано верно, но не разбирается.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Event — уведомление процессора.
type Event struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}

// ChargeData — данные платежа в уведомлении.
type ChargeData struct {
	ID        FlexibleID `json:"id"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
	Metadata Metadata `json:"metadata"`
}

// FlexibleID принимает идентификатор и числом, и строкой.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id must be an integer: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// Metadata принимает метаданные объектом или JSON-строкой; пустая строка даёт пустые метаданные.
type Metadata domain.PaymentMetadata

func (m *Metadata) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*m = Metadata{}
			return nil
		}
		data = []byte(raw)
	}
	if bytes.Equal(data, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var meta domain.PaymentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	*m = Metadata(meta)
	return nil
}

// ParseEvent разбирает тело уведомления. Вызывать только после проверки подписи.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	ev.Event = strings.TrimSpace(ev.Event)
	if ev.Event == "" {
		return Event{}, fmt.Errorf("%w: event is empty", ErrMalformedEvent)
	}
	return ev, nil
}

// Confirmation переводит данные платежа в доменное подтверждение.
func (d ChargeData) Confirmation() domain.PaymentConfirmation {
	return domain.PaymentConfirmation{
		CheckoutID:    string(d.ID),
		Reference:     d.Reference,
		AmountMinor:   d.Amount,
		Currency:      d.Currency,
		CustomerEmail: d.Customer.Email,
		Metadata:      domain.PaymentMetadata(d.Metadata),
	}
}
