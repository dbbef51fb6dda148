package cortex

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tinytelemetry/logsearch/internal/snowflake"
)

const (
	tokenTypeHeader = "X-Snowflake-Authorization-Token-Type"
	tokenTypePAT    = "PROGRAMMATIC_ACCESS_TOKEN"
	tokenTypeJWT    = "KEYPAIR_JWT"

	jwtLifetime = time.Hour
	jwtRefresh  = 5 * time.Minute
)

// authenticator returns the bearer token and its token type header value.
type authenticator interface {
	token(now time.Time) (string, string, error)
}

type patAuth struct{ pat string }

func (a patAuth) token(time.Time) (string, string, error) {
	return a.pat, tokenTypePAT, nil
}

// jwtAuth signs key-pair JWTs and reuses one until it is close to expiry.
type jwtAuth struct {
	key       *rsa.PrivateKey
	issuer    string
	subject   string
	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

func newJWTAuth(account, user string, key *rsa.PrivateKey) (*jwtAuth, error) {
	fp, err := snowflake.Fingerprint(key)
	if err != nil {
		return nil, err
	}
	qualified := accountIdentifier(account) + "." + strings.ToUpper(user)
	return &jwtAuth{
		key:     key,
		issuer:  qualified + "." + fp,
		subject: qualified,
	}, nil
}

func (a *jwtAuth) token(now time.Time) (string, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != "" && now.Add(jwtRefresh).Before(a.expiresAt) {
		return a.cached, tokenTypeJWT, nil
	}

	expires := now.Add(jwtLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    a.issuer,
		Subject:   a.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", "", fmt.Errorf("sign key-pair jwt: %w", err)
	}
	a.cached = signed
	a.expiresAt = expires
	return signed, tokenTypeJWT, nil
}

// accountIdentifier upper-cases the account and drops any region or cloud suffix.
func accountIdentifier(account string) string {
	account = strings.ToUpper(strings.TrimSpace(account))
	if i := strings.IndexByte(account, '.'); i >= 0 {
		account = account[:i]
	}
	return account
}
