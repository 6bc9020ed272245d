package auth

import (
	"testing"
	"time"

	"github.com/erp/portal/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func signClaims(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()

	token, expiresAt, err := svc.GenerateAccessToken(GenerateTokenInput{
		UserID:   "u-1",
		Email:    "asha@example.com",
		Name:     "Asha",
		Username: "asha",
		Roles:    []string{"customer"},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, expiresAt, claims.GetExpiresAtTime(), time.Second)

	p := claims.Principal()
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, "asha", p.Username)
	assert.True(t, p.HasRole("customer"))
}

func TestValidateAccessToken_Rejections(t *testing.T) {
	svc := newTestJWTService()
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	notYet := valid
	notYet.NotBefore = jwt.NewNumericDate(now.Add(time.Hour))
	otherIssuer := valid
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not.a.token", ErrInvalidToken},
		{"wrong secret", signClaims(t, &Claims{RegisteredClaims: valid, UserID: "u-1"}, jwt.SigningMethodHS256, []byte("another-secret-of-32-characters!")), ErrInvalidToken},
		{"unsigned", signClaims(t, &Claims{RegisteredClaims: valid, UserID: "u-1"}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType), ErrInvalidToken},
		{"HS512 is not accepted", signClaims(t, &Claims{RegisteredClaims: valid, UserID: "u-1"}, jwt.SigningMethodHS512, []byte(testSecret)), ErrInvalidToken},
		{"expired", signClaims(t, &Claims{RegisteredClaims: expired, UserID: "u-1"}, jwt.SigningMethodHS256, []byte(testSecret)), ErrExpiredToken},
		{"not yet valid", signClaims(t, &Claims{RegisteredClaims: notYet, UserID: "u-1"}, jwt.SigningMethodHS256, []byte(testSecret)), ErrTokenNotYetValid},
		{"other issuer", signClaims(t, &Claims{RegisteredClaims: otherIssuer, UserID: "u-1"}, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"no identity", signClaims(t, &Claims{RegisteredClaims: valid, Name: "Nobody"}, jwt.SigningMethodHS256, []byte(testSecret)), ErrMissingIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClaims_PrincipalFallsBackToSubject(t *testing.T) {
	svc := newTestJWTService()
	token := signClaims(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Subject:   "sub-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "ravi@example.com",
	}, jwt.SigningMethodHS256, []byte(testSecret))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sub-9", claims.Principal().ID)
}

func TestValidateAccessToken_WithoutConfiguredIssuer(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: testSecret, AccessTokenExpiration: time.Minute})
	token := signClaims(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "anyone", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Email:            "guest@example.com",
	}, jwt.SigningMethodHS256, []byte(testSecret))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", claims.Principal().Email)
	assert.Equal(t, time.Minute, svc.GetAccessTokenExpiration())
}
