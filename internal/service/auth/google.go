package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultGoogleUserInfoURL — endpoint профиля Google OAuth2.
const DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Profile содержит данные пользователя от внешнего провайдера.
type Profile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// IdentityProvider обменивает access-токен провайдера на профиль.
type IdentityProvider interface {
	UserInfo(ctx context.Context, accessToken string) (Profile, error)
}

// GoogleClient запрашивает профиль по userinfo endpoint.
type GoogleClient struct {
	url    string
	client *http.Client
}

func NewGoogleClient(url string, timeout time.Duration) *GoogleClient {
	if url == "" {
		url = DefaultGoogleUserInfoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{url: url, client: &http.Client{Timeout: timeout}}
}

func (g *GoogleClient) UserInfo(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Profile{}, domain.NewValidationError("token", "invalid Google access token")
	}

	var p Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo response: %w", err)
	}
	return p, nil
}
