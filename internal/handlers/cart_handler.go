package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
	"github.com/imrishuroy/go-decor-cartflow/internal/validation"
)

type cartHandler struct {
	carts    *cart.Manager
	validate *validatorv10.Validate
}

type quantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

func (h *cartHandler) store(c *gin.Context) *cart.Store {
	return h.carts.For(c.GetString(ctxSession))
}

func (h *cartHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store(c).Snapshot(c.Request.Context()))
}

func (h *cartHandler) totals(c *gin.Context) {
	c.JSON(http.StatusOK, h.store(c).ComputeTotals(c.Request.Context()))
}

func (h *cartHandler) addItem(c *gin.Context) {
	var in validation.LineItemInput
	if err := validation.BindAndValidate(c, &in, h.validate); err != nil {
		return
	}
	ctx := c.Request.Context()
	s := h.store(c)
	if c.Query("merge") == "true" {
		s.MergeLineItem(ctx, in.ToLineItem())
	} else {
		s.AddLineItem(ctx, in.ToLineItem())
	}
	c.JSON(http.StatusCreated, s.Snapshot(ctx))
}

func (h *cartHandler) addQuote(c *gin.Context) {
	var in validation.QuoteDraftInput
	if err := validation.BindAndValidate(c, &in, h.validate); err != nil {
		return
	}
	q := h.store(c).AddQuote(c.Request.Context(), in.ToDraft())
	c.JSON(http.StatusCreated, q)
}

func (h *cartHandler) increase(c *gin.Context) {
	h.byIndex(c, func(s *cart.Store, i int) bool { return s.IncreaseQuantity(c.Request.Context(), i) })
}

func (h *cartHandler) decrease(c *gin.Context) {
	h.byIndex(c, func(s *cart.Store, i int) bool { return s.DecreaseQuantity(c.Request.Context(), i) })
}

func (h *cartHandler) removeItem(c *gin.Context) {
	h.byIndex(c, func(s *cart.Store, i int) bool { return s.RemoveLineItem(c.Request.Context(), i) })
}

func (h *cartHandler) setQuantity(c *gin.Context) {
	raw, ok := bindQuantity(c)
	if !ok {
		return
	}
	h.byIndex(c, func(s *cart.Store, i int) bool { return s.SetQuantity(c.Request.Context(), i, raw) })
}

func (h *cartHandler) removeQuote(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s := h.store(c)
	if !s.RemoveQuote(ctx, i) {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote_not_found"})
		return
	}
	c.JSON(http.StatusOK, s.Snapshot(ctx))
}

func (h *cartHandler) increaseByID(c *gin.Context) {
	h.byID(c, func(s *cart.Store, id string) bool { return s.IncreaseQuantityByID(c.Request.Context(), id) })
}

func (h *cartHandler) decreaseByID(c *gin.Context) {
	h.byID(c, func(s *cart.Store, id string) bool { return s.DecreaseQuantityByID(c.Request.Context(), id) })
}

func (h *cartHandler) removeItemByID(c *gin.Context) {
	h.byID(c, func(s *cart.Store, id string) bool { return s.RemoveLineItemByID(c.Request.Context(), id) })
}

func (h *cartHandler) setQuantityByID(c *gin.Context) {
	raw, ok := bindQuantity(c)
	if !ok {
		return
	}
	h.byID(c, func(s *cart.Store, id string) bool { return s.SetQuantityByID(c.Request.Context(), id, raw) })
}

func (h *cartHandler) removeQuoteByID(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.store(c)
	if !s.RemoveQuoteByID(ctx, c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote_not_found"})
		return
	}
	c.JSON(http.StatusOK, s.Snapshot(ctx))
}

// byIndex runs op and answers with the resulting cart. A false from op is a
// 404 only when the index is outside the cart; otherwise it was a no-op.
func (h *cartHandler) byIndex(c *gin.Context, op func(s *cart.Store, i int) bool) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s := h.store(c)
	changed := op(s, i)
	snap := s.Snapshot(ctx)
	if !changed && i >= len(snap.Items) {
		c.JSON(http.StatusNotFound, gin.H{"error": "line_item_not_found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *cartHandler) byID(c *gin.Context, op func(s *cart.Store, id string) bool) {
	id := c.Param("id")
	ctx := c.Request.Context()
	s := h.store(c)
	changed := op(s, id)
	snap := s.Snapshot(ctx)
	if !changed && !hasItem(snap.Items, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "line_item_not_found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func hasItem(items []cart.CartLineItem, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func indexParam(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_index"})
		return 0, false
	}
	return i, true
}

// bindQuantity accepts {"quantity": 3} or {"quantity": "3"}.
func bindQuantity(c *gin.Context) (string, bool) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return "", false
	}
	raw := strings.Trim(strings.TrimSpace(string(req.Quantity)), `"`)
	if _, ok := cart.ParseQuantity(raw); !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": map[string]string{"quantity": "must be a positive integer"},
		})
		return "", false
	}
	return raw, true
}
