package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"land-review/internal/config"
	"land-review/internal/models"
	"land-review/internal/testutil"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(&config.AuthConfig{JWTSecret: testutil.TestJWTSecret})
	helper := testutil.NewAuthHelper()

	token, err := helper.GenerateToken(testutil.SalesRev)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	actor, err := svc.Authenticate("Bearer " + token)
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}
	if actor.ID != testutil.SalesRev.ID || !actor.HasRole(string(models.RoleSales)) {
		t.Errorf("Unexpected actor %+v", actor)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	secret := []byte(testutil.TestJWTSecret)
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{"sub": "rev-1", "roles": []string{"sales"}, "exp": time.Now().Add(time.Hour).Unix()}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{"expired", func() string {
			c := valid()
			c["exp"] = time.Now().Add(-time.Minute).Unix()
			return sign(t, jwt.SigningMethodHS256, secret, c)
		}, ErrExpiredToken},
		{"wrong secret", func() string {
			return sign(t, jwt.SigningMethodHS256, []byte("other"), valid())
		}, ErrInvalidToken},
		{"wrong algorithm", func() string {
			return sign(t, jwt.SigningMethodHS512, secret, valid())
		}, ErrInvalidToken},
		{"no expiry", func() string {
			c := valid()
			delete(c, "exp")
			return sign(t, jwt.SigningMethodHS256, secret, c)
		}, ErrInvalidToken},
		{"no subject", func() string {
			c := valid()
			delete(c, "sub")
			return sign(t, jwt.SigningMethodHS256, secret, c)
		}, ErrInvalidToken},
		{"garbage", func() string { return "not-a-token" }, ErrInvalidToken},
	}

	svc := NewService(&config.AuthConfig{JWTSecret: string(secret)})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssuer(t *testing.T) {
	svc := NewService(&config.AuthConfig{JWTSecret: testutil.TestJWTSecret, Issuer: "identity"})
	helper := testutil.NewAuthHelper()

	token, _ := helper.GenerateToken(testutil.Admin)
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Token without issuer should be rejected, got %v", err)
	}

	helper.Issuer = "identity"
	token, _ = helper.GenerateToken(testutil.Admin)
	if _, err := svc.ValidateToken(token); err != nil {
		t.Errorf("Token with issuer should pass, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for header, want := range tests {
		got, ok := BearerToken(header)
		if got != want || ok != (want != "") {
			t.Errorf("BearerToken(%q) = %q, %v", header, got, ok)
		}
	}
}
