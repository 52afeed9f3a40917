package httpserver

import (
	"net/http"
	"strconv"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/service"
	"github.com/labstack/echo/v4"
)

type ShippingHTTP struct {
	Svc      *service.ShippingService
	Resolver *identity.Resolver
}

func (h *ShippingHTTP) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.ship")

	owner, err := h.Resolver.Resolve(c, c.QueryParam("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	profile, err := h.Svc.Profile(ctx, owner)
	if err != nil {
		l.Error("get_ship_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *ShippingHTTP) GetCurrent(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := h.Resolver.Resolve(c, c.QueryParam("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	addr, err := h.Svc.Selected(ctx, owner)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, addr)
}

func (h *ShippingHTTP) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := h.Resolver.Resolve(c, c.QueryParam("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	addr, err := h.Svc.Address(ctx, owner, uint(id))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, addr)
}

func (h *ShippingHTTP) AddAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.shipping")

	var req struct {
		SessionID string `json:"session_id"`
		Default   bool   `json:"default"`
		service.AddressInput
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	addr, err := h.Svc.AddAddress(ctx, owner, req.AddressInput, req.Default)
	if err != nil {
		l.Error("add_shipping_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, addr)
}

func (h *ShippingHTTP) UpdateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.shipping")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var req struct {
		SessionID string `json:"session_id"`
		service.AddressUpdate
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	addr, err := h.Svc.UpdateAddress(ctx, owner, uint(id), req.AddressUpdate)
	if err != nil {
		l.Warn("update_shipping_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, addr)
}

func (h *ShippingHTTP) SetFlag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "flag.shipping")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var req struct {
		SessionID string `json:"session_id"`
		Flag      string `json:"flag"`
		Value     *bool  `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	value := true
	if req.Value != nil {
		value = *req.Value
	}

	addr, err := h.Svc.SetFlag(ctx, owner, uint(id), req.Flag, value)
	if err != nil {
		l.Warn("flag_shipping_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, addr)
}
