package httpserver

import (
	"errors"
	"net/http"

	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/repo"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ProductHTTP serves the read-only catalog the cart prices against.
type ProductHTTP struct {
	Repo *repo.GormRepo
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.products")

	products, err := h.Repo.ListProducts(ctx)
	if err != nil {
		l.Error("get_products_error", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal server error"})
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	p, err := h.Repo.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal server error"})
	}
	return c.JSON(http.StatusOK, p)
}
