package httpserver

import (
	"errors"
	"net/http"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/service"
	"github.com/labstack/echo/v4"
)

// errorResponse maps service errors onto HTTP codes without leaking
// internals. Cross-owner lookups surface the same 404 as true misses.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrMissingIdentity):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "session_id is not provided"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal server error"})
	}
}
