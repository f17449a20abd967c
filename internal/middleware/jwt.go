// Package middleware contains reusable HTTP middleware. Authentication
// itself is external to this service: tokens are issued elsewhere and
// arrive here only to be verified and reduced to a stable tenant
// identifier.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the authenticated tenant into the request context.
// The provided secret must match the one used by the external issuer.
// Handlers read the tenant via HotelID(c); any request without a valid
// token never reaches them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject other algorithms.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// The issuer encodes the tenant in the hotel_id claim with
			// the subject as fallback. Reject tokens with neither.
			hotelID, ok := tenantFromClaims(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token carries no tenant"})
			}
			c.Set("hotel_id", hotelID)
			return next(c)
		}
	}
}

// tenantFromClaims extracts the hotel identifier from the hotel_id or
// sub claim, tolerating the numeric and string encodings different
// issuers produce.
func tenantFromClaims(claims jwt.MapClaims) (uint64, bool) {
	for _, key := range []string{"hotel_id", "sub"} {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 {
				return uint64(v), true
			}
		case string:
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// HotelID returns the authenticated tenant stored by JWTAuth.
func HotelID(c echo.Context) (uint64, bool) {
	v, ok := c.Get("hotel_id").(uint64)
	return v, ok
}
