package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

// runJWT sends one request through JWTAuth into a probe handler that
// records the tenant it observed.
func runJWT(t *testing.T, authorization string) (*httptest.ResponseRecorder, uint64, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID uint64
	var reached bool
	handler := JWTAuth(testSecret)(func(c echo.Context) error {
		reached = true
		gotID, _ = HotelID(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, gotID, reached
}

func TestJWTAuthValidTokenInjectsTenant(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{"hotel_id": float64(42)})
	rec, hotelID, reached := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, uint64(42), hotelID)
}

func TestJWTAuthFallsBackToSubjectClaim(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{"sub": "7"})
	rec, hotelID, _ := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), hotelID)
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _, reached := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	raw := signToken(t, "some-other-secret", jwt.MapClaims{"hotel_id": float64(1)})
	rec, _, reached := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthTokenWithoutTenant(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{"name": "no tenant here"})
	rec, _, reached := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthRejectsNonHMACAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"hotel_id": float64(1)})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	rec, _, reached := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}
