package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/config"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/jwtutil"
)

func testJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})
}

func testPrincipal() *session.Principal {
	return &session.Principal{
		UserID:      "u1",
		Name:        "Alex",
		Email:       "alex@brightsmile.example",
		Role:        model.RoleDentist,
		TenantID:    "t1",
		Permissions: []string{"patients:view"},
	}
}

func runAuth(t *testing.T, mw echo.MiddlewareFunc, configure func(*http.Request)) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestAuthRoundTripViaHeader(t *testing.T) {
	jwt := testJWT()
	token, err := jwt.GenerateToken(testPrincipal())
	require.NoError(t, err)

	rec, c := runAuth(t, Auth(jwt), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	p, ok := PrincipalFrom(c)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, model.RoleDentist, p.Role)
	assert.Equal(t, "t1", p.TenantID)
	assert.Equal(t, []string{"patients:view"}, p.Permissions)
}

func TestAuthRoundTripViaCookie(t *testing.T) {
	jwt := testJWT()
	token, err := jwt.GenerateToken(testPrincipal())
	require.NoError(t, err)

	rec, c := runAuth(t, Auth(jwt), func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := PrincipalFrom(c)
	assert.True(t, ok)
}

func TestAuthMissingToken(t *testing.T) {
	rec, _ := runAuth(t, Auth(testJWT()), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMalformedHeader(t *testing.T) {
	rec, _ := runAuth(t, Auth(testJWT()), func(req *http.Request) {
		req.Header.Set("Authorization", "Token abc")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthForgedToken(t *testing.T) {
	forged := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "other-key", ExpirationHours: 1})
	token, err := forged.GenerateToken(testPrincipal())
	require.NoError(t, err)

	rec, _ := runAuth(t, Auth(testJWT()), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthAnonymousPasses(t *testing.T) {
	rec, c := runAuth(t, OptionalAuth(testJWT()), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := PrincipalFrom(c)
	assert.False(t, ok)
}

func TestOptionalAuthInvalidTokenTreatedAsAnonymous(t *testing.T) {
	rec, c := runAuth(t, OptionalAuth(testJWT()), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := PrincipalFrom(c)
	assert.False(t, ok)
}

func TestOptionalAuthAttachesPrincipal(t *testing.T) {
	jwt := testJWT()
	token, err := jwt.GenerateToken(testPrincipal())
	require.NoError(t, err)

	_, c := runAuth(t, OptionalAuth(jwt), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	p, ok := PrincipalFrom(c)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
}
