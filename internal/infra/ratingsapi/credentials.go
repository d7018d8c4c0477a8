package ratingsapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialSource supplies the bearer token for upstream calls.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials passes a pre-issued token through unchanged. An
// empty token means the upstream runs unauthenticated (dev setups).
type StaticCredentials struct {
	Value string
}

func (s StaticCredentials) Token(ctx context.Context) (string, error) {
	return s.Value, nil
}

// renewSkew re-mints the service token this long before expiry so an
// in-flight request never carries a token that dies mid-call.
const renewSkew = 30 * time.Second

// ServiceTokenMinter signs short-lived HS256 service tokens for the
// ratings upstream and caches each token until close to expiry.
type ServiceTokenMinter struct {
	Secret  []byte
	Issuer  string
	Subject string
	TTL     time.Duration
	Now     func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

func (m *ServiceTokenMinter) Token(ctx context.Context) (string, error) {
	if len(m.Secret) == 0 {
		return "", errors.New("ratingsapi: signing secret not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.cached != "" && now.Before(m.expires.Add(-renewSkew)) {
		return m.cached, nil
	}

	ttl := m.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	subject := m.Subject
	if subject == "" {
		subject = "webbuyer-backend"
	}
	claims := jwt.RegisteredClaims{
		Issuer:    m.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", err
	}
	m.cached = signed
	m.expires = now.Add(ttl)
	return signed, nil
}

func (m *ServiceTokenMinter) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
