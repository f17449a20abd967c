package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-billing/internal/repository"
)

// writeStoreError maps the store-layer error taxonomy onto HTTP. The
// switch is exhaustive over the closed kind set; no handler branches on
// error text. Only the user-safe message leaves the process — the full
// technical detail (including any underlying driver error) is logged
// server-side here and nowhere else.
func writeStoreError(c echo.Context, op string, err error) error {
	kind := repository.KindOf(err)
	msg := "internal error"
	var se *repository.StoreError
	if errors.As(err, &se) && kind != repository.KindTransient {
		msg = se.Msg
	}

	status := http.StatusInternalServerError
	switch kind {
	case repository.KindConflict:
		status = http.StatusConflict
	case repository.KindInvalidOperation:
		status = http.StatusConflict
	case repository.KindNotFound:
		status = http.StatusNotFound
	case repository.KindValidation:
		status = http.StatusBadRequest
	case repository.KindTransient:
		status = http.StatusInternalServerError
		msg = "service temporarily unavailable"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "op", op, "kind", kind.String(), "error", err)
	} else {
		slog.Info("request rejected", "op", op, "kind", kind.String(), "error", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

// getHotelID pulls the authenticated tenant out of the context; the
// JWT middleware guarantees it is present on protected routes.
func getHotelID(c echo.Context) (uint64, error) {
	v, ok := c.Get("hotel_id").(uint64)
	if !ok || v == 0 {
		return 0, errors.New("no tenant in context")
	}
	return v, nil
}
