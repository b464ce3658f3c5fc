package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/relgov/gateway/internal/observability"
)

// Sentinel errors for token validation.
var (
	// ErrNoToken indicates no well-formed bearer token was presented.
	ErrNoToken = errors.New("no bearer token provided")

	// ErrInvalidToken indicates the token failed verification.
	ErrInvalidToken = errors.New("invalid token")
)

const bearerPrefix = "Bearer "

// ExtractBearer returns the bearer token from the Authorization header, or
// ErrNoToken when the header is absent or malformed.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Validator verifies bearer tokens against a pre-shared secret. Verification
// is purely local; no backend call is made.
type Validator struct {
	secret    []byte
	algorithm jwa.SignatureAlgorithm
	logger    observability.Logger
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a token validator for the given secret and algorithm.
func NewValidator(secret, algorithm string, opts ...ValidatorOption) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	var alg jwa.SignatureAlgorithm
	switch algorithm {
	case "HS256":
		alg = jwa.HS256
	case "HS384":
		alg = jwa.HS384
	case "HS512":
		alg = jwa.HS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %q", algorithm)
	}

	v := &Validator{
		secret:    []byte(secret),
		algorithm: alg,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate verifies the token signature, expiry, and structure, and derives
// the identity from its claims.
func (v *Validator) Validate(ctx context.Context, raw string) (*Identity, error) {
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(v.algorithm, v.secret),
		jwt.WithValidate(true),
		jwt.WithContext(ctx),
	)
	if err != nil {
		v.logger.Debug("token verification failed", observability.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	identity := &Identity{
		ID:       token.Subject(),
		Email:    claimString(token, "email"),
		Role:     claimString(token, "role"),
		RawToken: raw,
	}

	// Some issuers put the user id in an "id" claim instead of "sub".
	if identity.ID == "" {
		identity.ID = claimString(token, "id")
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	return identity, nil
}

func claimString(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
