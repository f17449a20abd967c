package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-billing/internal/repository"
)

// HotelHandler serves the tenant's own profile: name, configured table
// count and default rates. The UI uses the table count to render the
// floor grid it queries busy state for.
type HotelHandler struct {
	Hotels *repository.HotelRepo
}

// NewHotelHandler constructs a HotelHandler. The repository must be non-nil.
func NewHotelHandler(hotels *repository.HotelRepo) *HotelHandler {
	if hotels == nil {
		panic("nil repository passed to NewHotelHandler")
	}
	return &HotelHandler{Hotels: hotels}
}

// Get handles GET /v1/hotel and returns the caller's hotel profile.
func (h *HotelHandler) Get(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	hotel, err := h.Hotels.GetByID(c.Request().Context(), hotelID)
	if err != nil {
		return writeStoreError(c, "hotel.get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hotel": hotel})
}
