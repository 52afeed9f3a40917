package httpserver

import (
	"net/http"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/service"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc      *service.CartService
	Orders   *service.OrderService
	Resolver *identity.Resolver
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	owner, err := h.Resolver.Resolve(c, c.QueryParam("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	view, err := h.Svc.View(ctx, owner)
	if err != nil {
		l.Error("get_cart_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	var req struct {
		SessionID string `json:"session_id"`
		Slug      string `json:"slug"`
		Quantity  uint   `json:"quantity"`
		Action    string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	// A non-empty action means "set this quantity"; empty means increment.
	line, err := h.Svc.AddOrUpdateLine(ctx, owner, req.Slug, req.Quantity, req.Action != "")
	if err != nil {
		l.Warn("add_to_cart_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.cart")

	var req struct {
		SessionID string `json:"session_id"`
		Slug      string `json:"slug"`
		Quantity  uint   `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.Svc.RemoveUnits(ctx, owner, req.Slug, req.Quantity); err != nil {
		l.Warn("remove_from_cart_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cartitem updated"})
}

func (h *CartHTTP) DeleteFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.cart")

	var req struct {
		SessionID string `json:"session_id"`
		Slug      string `json:"slug"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.Svc.DeleteLine(ctx, owner, req.Slug); err != nil {
		l.Warn("delete_from_cart_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cartitem deleted"})
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clear.cart")

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.Svc.Clear(ctx, owner); err != nil {
		l.Error("clear_cart_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "all cartitem deleted"})
}

func (h *CartHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.orders")

	owner, err := h.Resolver.Resolve(c, c.QueryParam("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	orders, err := h.Orders.List(ctx, owner)
	if err != nil {
		l.Error("get_orders_error", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}
