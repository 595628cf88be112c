package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/metrics"
	"github.com/titikruang/ruang/internal/repository"
	"golang.org/x/crypto/argon2"
)

var ErrInvalidCreds = errors.New("invalid identity or device secret")

// AuthService issues anonymous identities. Each identity gets a device
// secret that lets the same device resume it once the token expires.
type AuthService struct {
	identityRepo repository.IdentityRepository
	jwtSecret    []byte
	tokenTTL     time.Duration
}

func NewAuthService(identityRepo repository.IdentityRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		identityRepo: identityRepo,
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     tokenTTL,
	}
}

type ResumeInput struct {
	Identity     uuid.UUID `json:"identity"`
	DeviceSecret string    `json:"device_secret"`
}

type AuthResponse struct {
	Identity     uuid.UUID `json:"identity"`
	AccessToken  string    `json:"access_token"`
	DeviceSecret string    `json:"device_secret,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *AuthService) SignInAnonymously(ctx context.Context) (*AuthResponse, error) {
	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: generating device secret: %v", domain.ErrProviderUnavailable, err)
	}

	hash, err := hashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing device secret: %v", domain.ErrProviderUnavailable, err)
	}

	identity := &domain.Identity{
		ID:         uuid.New(),
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("%w: creating identity: %v", domain.ErrProviderUnavailable, err)
	}
	metrics.IdentitiesIssued.Inc()

	resp, err := s.issue(identity.ID)
	if err != nil {
		return nil, err
	}
	resp.DeviceSecret = secret
	return resp, nil
}

func (s *AuthService) Resume(ctx context.Context, input ResumeInput) (*AuthResponse, error) {
	identity, err := s.identityRepo.GetByID(ctx, input.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: loading identity: %v", domain.ErrProviderUnavailable, err)
	}
	if identity == nil {
		return nil, ErrInvalidCreds
	}

	if !verifySecret(input.DeviceSecret, identity.SecretHash) {
		return nil, ErrInvalidCreds
	}

	return s.issue(identity.ID)
}

func (s *AuthService) issue(id uuid.UUID) (*AuthResponse, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	token, err := s.generateToken(id, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: generating token: %v", domain.ErrProviderUnavailable, err)
	}
	return &AuthResponse{Identity: id, AccessToken: token, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *AuthService) generateToken(id uuid.UUID, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": id.String(),
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashSecret(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifySecret(secret, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
