package payment

import (
	"context"
	"net/url"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// FakeGateway: настраиваемая заглушка процессора для локального запуска и тестов.
// Возвращает ссылку на BaseURL с reference в query и запоминает все сессии.
type FakeGateway struct {
	BaseURL string
	Err     error

	mu       sync.Mutex
	sessions []domain.PaymentSession
}

// NewFakeGateway возвращает заглушку с успешным сценарием по умолчанию.
func NewFakeGateway(baseURL string) *FakeGateway {
	if baseURL == "" {
		baseURL = "http://localhost:3000/pay"
	}
	return &FakeGateway{BaseURL: baseURL}
}

func (f *FakeGateway) InitializeTransaction(_ context.Context, session domain.PaymentSession) (domain.PaymentRedirect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions = append(f.sessions, session)
	if f.Err != nil {
		return domain.PaymentRedirect{}, f.Err
	}
	return domain.PaymentRedirect{
		AuthorizationURL: f.BaseURL + "?reference=" + url.QueryEscape(session.Reference),
		AccessCode:       "fake_" + session.Reference,
		Reference:        session.Reference,
	}, nil
}

// Sessions возвращает копию всех переданных сессий.
func (f *FakeGateway) Sessions() []domain.PaymentSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PaymentSession(nil), f.sessions...)
}

// Calls возвращает число вызовов InitializeTransaction.
func (f *FakeGateway) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

var _ domain.PaymentGateway = (*FakeGateway)(nil)
