package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	minPasswordLen = 6
	// bcrypt only accepts up to 72 bytes.
	maxPasswordLen = 72
)

// Identity is the authenticated user as seen by the rest of the app.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type User struct {
	Identity
	PasswordHash string
	CreatedAt    time.Time
}

//go:generate mockgen -source=auth.go -destination=repository_mock.go -package=auth
type Repository interface {
	// CreateUser assigns the user's ID. It returns ErrEmailTaken when the
	// email is already registered.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByEmail returns ErrUserNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(repo Repository, secret string, ttl time.Duration) *Service {
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the clock used to stamp and check tokens.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	if len(password) > maxPasswordLen {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	user := &User{
		Identity:     Identity{Email: email, DisplayName: displayName},
		PasswordHash: string(hash),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}

		return nil, fmt.Errorf("registering user: %w", err)
	}

	return &user.Identity, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Identity, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user.Identity, nil
}

type claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the identity.
func (s *Service) IssueToken(id Identity) (string, error) {
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// VerifyToken checks the signature and expiry and returns the identity the
// token was issued for.
func (s *Service) VerifyToken(token string) (*Identity, error) {
	var c claims

	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if c.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: c.Subject, Email: c.Email, DisplayName: c.DisplayName}, nil
}
