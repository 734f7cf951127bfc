package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	minPasswordLength = 8
	// bcrypt обрезает пароль после 72 байт.
	maxPasswordLength = 72
)

// RegisterInput — данные формы регистрации.
type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// Session описывает выданный access-токен.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        domain.User
}

// Service отвечает за учётные записи и токены.
type Service struct {
	users    domain.UserRepository
	tokens   *TokenIssuer
	provider IdentityProvider
	logger   *log.Entry
	cost     int
}

// Option настраивает Service.
type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdentityProvider включает вход через внешний провайдер.
func WithIdentityProvider(p IdentityProvider) Option {
	return func(s *Service) { s.provider = p }
}

// WithBcryptCost меняет стоимость хэширования (в тестах bcrypt.MinCost).
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(users domain.UserRepository, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		logger: log.WithField("component", "auth-service"),
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register создаёт аккаунт с паролем.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.User{}, domain.NewValidationError("username", "username is required")
	}
	if in.Password != in.ConfirmPassword {
		return domain.User{}, domain.NewValidationError("confirm_password", "the passwords do not match")
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return domain.User{}, domain.NewValidationError("password",
			fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, domain.User{
		Email:              email,
		Username:           username,
		PasswordHash:       string(hash),
		RegistrationMethod: domain.RegistrationEmail,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login проверяет пароль и выдаёт токен.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if u.RegistrationMethod == domain.RegistrationGoogle {
		return Session{}, domain.ErrRegistrationMethodMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.WithFields(log.Fields{"security_event": true, "user_id": u.ID}).Warn("login failed: wrong password")
		return Session{}, domain.ErrInvalidCredentials
	}
	return s.issue(u)
}

// GoogleLogin находит или создаёт пользователя по профилю Google.
// Аккаунт, созданный через пароль, войти так не может.
func (s *Service) GoogleLogin(ctx context.Context, accessToken string) (Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Session{}, domain.NewValidationError("token", "token not provided")
	}
	if s.provider == nil {
		return Session{}, errors.New("google login is not configured")
	}

	profile, err := s.provider.UserInfo(ctx, accessToken)
	if err != nil {
		return Session{}, err
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return Session{}, domain.NewValidationError("email", "Google did not return an email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.RegistrationMethod != domain.RegistrationGoogle {
			return Session{}, domain.ErrRegistrationMethodMismatch
		}
	case errors.Is(err, domain.ErrUserNotFound):
		if u, err = s.createGoogleUser(ctx, email, profile); err != nil {
			return Session{}, err
		}
	default:
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.issue(u)
}

func (s *Service) createGoogleUser(ctx context.Context, email string, p Profile) (domain.User, error) {
	base := strings.TrimSpace(p.GivenName)
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}

	username := base
	for attempt := 0; ; attempt++ {
		u, err := s.users.Create(ctx, domain.User{
			Email:              email,
			Username:           username,
			FirstName:          p.GivenName,
			LastName:           p.FamilyName,
			ProfilePictureURL:  p.Picture,
			RegistrationMethod: domain.RegistrationGoogle,
		})
		if err == nil {
			s.logger.WithField("user_id", u.ID).Info("user registered via google")
			return u, nil
		}
		if !errors.Is(err, domain.ErrUsernameTaken) || attempt >= 3 {
			return domain.User{}, err
		}
		username = base + "_" + randomSuffix()
	}
}

// Authenticate проверяет токен и загружает пользователя.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.users.Get(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return u, err
}

func (s *Service) issue(u domain.User) (Session, error) {
	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, ExpiresAt: expires, User: u}, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if raw == "" || err != nil || addr.Address != raw {
		return "", domain.NewValidationError("email", "a valid email address is required")
	}
	return strings.ToLower(raw), nil
}

func randomSuffix() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
