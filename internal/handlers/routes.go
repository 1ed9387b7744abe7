package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
	"github.com/imrishuroy/go-decor-cartflow/internal/checkout"
	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/validation"
)

const (
	sessionHeader   = "X-Cart-Session"
	requestIDHeader = "X-Request-Id"

	ctxSession   = "cart_session"
	ctxRequestID = "request_id"
)

// HandlerConfig groups dependencies for the cart and checkout handlers.
type HandlerConfig struct {
	Carts     *cart.Manager
	Checkout  *checkout.Service
	Logger    *logger.Logger
	Validator *validatorv10.Validate
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
}

// RegisterRoutes mounts /health, /metrics, /cart and /checkout on r.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}

	r.Use(requestID(cfg.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	ch := &cartHandler{carts: cfg.Carts, validate: cfg.Validator}
	cartGroup := r.Group("/cart", requireSession(cfg.Logger))
	{
		cartGroup.GET("", ch.get)
		cartGroup.GET("/totals", ch.totals)

		cartGroup.POST("/items", ch.addItem)
		cartGroup.POST("/items/:index/increase", ch.increase)
		cartGroup.POST("/items/:index/decrease", ch.decrease)
		cartGroup.PUT("/items/:index/quantity", ch.setQuantity)
		cartGroup.DELETE("/items/:index", ch.removeItem)

		cartGroup.POST("/quotes", ch.addQuote)
		cartGroup.DELETE("/quotes/:index", ch.removeQuote)

		cartGroup.DELETE("/by-id/items/:id", ch.removeItemByID)
		cartGroup.POST("/by-id/items/:id/increase", ch.increaseByID)
		cartGroup.POST("/by-id/items/:id/decrease", ch.decreaseByID)
		cartGroup.PUT("/by-id/items/:id/quantity", ch.setQuantityByID)
		cartGroup.DELETE("/by-id/quotes/:id", ch.removeQuoteByID)
	}

	co := &checkoutHandler{svc: cfg.Checkout}
	r.POST("/checkout", requireSession(cfg.Logger), co.submit)
}

// requestID echoes or mints X-Request-Id and tags the request's log lines with it.
func requestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set(ctxRequestID, id)
		c.Request = c.Request.WithContext(log.WithField(c.Request.Context(), "request_id", id))
		c.Next()
	}
}

func requireSession(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := strings.TrimSpace(c.GetHeader(sessionHeader))
		if session == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_cart_session"})
			return
		}
		c.Set(ctxSession, session)
		c.Request = c.Request.WithContext(log.WithSession(c.Request.Context(), session))
		c.Next()
	}
}
