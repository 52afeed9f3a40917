package httpserver

import (
	"net/http"

	"github.com/emkxpress/shop/internal/metrics"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	ProductHandler  *ProductHTTP
	CartHandler     *CartHTTP
	ShippingHandler *ShippingHTTP
	CheckoutHandler *CheckoutHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:slug", d.ProductHandler.GetProduct)

	cart := v1.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("/add", d.CartHandler.AddToCart)
	cart.POST("/remove", d.CartHandler.RemoveFromCart)
	cart.POST("/delete", d.CartHandler.DeleteFromCart)
	cart.POST("/clear", d.CartHandler.ClearCart)

	v1.GET("/orders", d.CartHandler.GetOrders)

	v1.GET("/ship", d.ShippingHandler.GetProfile)
	shipping := v1.Group("/shipping")
	shipping.GET("/current", d.ShippingHandler.GetCurrent)
	shipping.GET("/:id", d.ShippingHandler.GetByID)
	shipping.POST("", d.ShippingHandler.AddAddress)
	shipping.PATCH("/:id", d.ShippingHandler.UpdateAddress)
	shipping.PATCH("/:id/flag", d.ShippingHandler.SetFlag)

	checkout := v1.Group("/checkout")
	checkout.POST("/flutterwave", d.CheckoutHandler.InitiateFlutterwave)
	checkout.POST("/flutterwave/callback", d.CheckoutHandler.FlutterwaveCallback)
	checkout.POST("/paystack", d.CheckoutHandler.InitiatePaystack)
	checkout.POST("/paystack/verify", d.CheckoutHandler.PaystackVerify)

	e.POST("/webhooks/flutterwave", d.CheckoutHandler.FlutterwaveWebhook)
}
