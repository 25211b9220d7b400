package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"thepup/internal/models/domain"
	"thepup/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

const issuer = "thepup"

// dummyHash: хэш той же стоимости, что и у настоящих паролей.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("thepup-no-such-admin"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("auth: dummy hash: %v", err))
	}
	return hash
})

type AdminRepository interface {
	FindAdminByEmail(ctx context.Context, email string) (domain.AdminUser, error)
	CreateAdmin(ctx context.Context, email, passwordHash string) (domain.AdminUser, error)
}

// Claims: содержимое access-токена администратора.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Token: выданный токен и время его истечения.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type Service struct {
	log    *slog.Logger
	repo   AdminRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(log *slog.Logger, repo AdminRepository, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		log:    log,
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// HashPassword возвращает bcrypt-хэш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login проверяет email и пароль и выдаёт токен.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	op := "auth.Login()"
	log := s.log.With(slog.String("op", op))

	admin, err := s.repo.FindAdminByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return Token{}, fmt.Errorf("%s: find admin: %w", op, err)
		}
		// сравниваем с фиктивным хэшем, чтобы время ответа не выдавало существующие email
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		log.Info("unknown admin email", slog.String("email", email))
		return Token{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		log.Info("wrong password", slog.String("email", email))
		return Token{}, ErrInvalidCredentials
	}

	return s.Issue(admin)
}

// Issue подписывает HS256-токен для администратора.
func (s *Service) Issue(admin domain.AdminUser) (Token, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		Email: admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse проверяет подпись и срок действия токена.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return claims, nil
}

// Bootstrap создаёт администратора из конфига, если его ещё нет.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	op := "auth.Bootstrap()"
	log := s.log.With(slog.String("op", op))

	if email == "" || password == "" {
		log.Debug("no bootstrap admin configured")
		return nil
	}

	_, err := s.repo.FindAdminByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.CreateAdmin(ctx, email, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("bootstrap admin created", slog.String("email", email))

	return nil
}
