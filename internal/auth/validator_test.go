package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, mutate func(*jwt.Builder)) string {
	t.Helper()

	builder := jwt.NewBuilder().
		Subject("user-1").
		Claim("email", "dev@example.com").
		Claim("role", RoleSenior).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour))
	if mutate != nil {
		mutate(builder)
	}

	token, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"missing header", "", "", ErrNoToken},
		{"wrong scheme", "Basic abc", "", ErrNoToken},
		{"empty token", "Bearer   ", "", ErrNoToken},
		{"lowercase scheme rejected", "bearer abc", "", ErrNoToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractBearer(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewValidator(t *testing.T) {
	t.Parallel()

	t.Run("requires secret", func(t *testing.T) {
		t.Parallel()
		_, err := NewValidator("", "HS256")
		assert.Error(t, err)
	})

	t.Run("rejects unsupported algorithm", func(t *testing.T) {
		t.Parallel()
		_, err := NewValidator(testSecret, "RS256")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	validator, err := NewValidator(testSecret, "HS256")
	require.NoError(t, err)

	t.Run("claims carried verbatim", func(t *testing.T) {
		t.Parallel()

		raw := signToken(t, testSecret, nil)
		identity, err := validator.Validate(context.Background(), raw)
		require.NoError(t, err)

		assert.Equal(t, "user-1", identity.ID)
		assert.Equal(t, "dev@example.com", identity.Email)
		assert.Equal(t, RoleSenior, identity.Role)
		assert.Equal(t, raw, identity.RawToken)
	})

	t.Run("id claim fallback", func(t *testing.T) {
		t.Parallel()

		raw := signToken(t, testSecret, func(b *jwt.Builder) {
			b.Subject("").Claim("id", "user-42")
		})
		identity, err := validator.Validate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "user-42", identity.ID)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		raw := signToken(t, "some-other-secret", nil)
		_, err := validator.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		t.Parallel()

		raw := signToken(t, testSecret, func(b *jwt.Builder) {
			b.Expiration(time.Now().Add(-time.Hour))
		})
		_, err := validator.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		t.Parallel()

		_, err := validator.Validate(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		t.Parallel()

		raw := signToken(t, testSecret, func(b *jwt.Builder) {
			b.Subject("")
		})
		_, err := validator.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
