package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-decor-cartflow/internal/checkout"
	"github.com/imrishuroy/go-decor-cartflow/internal/validation"
)

type checkoutHandler struct {
	svc *checkout.Service
}

type checkoutResponse struct {
	SubmissionID   string `json:"submission_id"`
	Status         string `json:"status"`
	DecoratorID    int64  `json:"decorador_id"`
	EstimatedValue string `json:"estimated_value"`
	Message        string `json:"message,omitempty"`
}

// submit binds the order form and hands it to the pipeline. Field validation
// happens inside the pipeline so that every outcome is counted there.
func (h *checkoutHandler) submit(c *gin.Context) {
	var form validation.OrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), checkout.Request{
		Session:       c.GetString(ctxSession),
		Form:          form,
		CorrelationID: c.GetString(ctxRequestID),
	})

	var ve *checkout.ValidationError
	var se *checkout.SubmitError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, checkoutResponse{
			SubmissionID:   res.SubmissionID,
			Status:         res.State.String(),
			DecoratorID:    res.DecoratorID,
			EstimatedValue: res.EstimatedValue.String(),
			Message:        res.Message,
		})
	case errors.Is(err, checkout.ErrSubmissionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "submission_in_progress"})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": ve.Fields})
	case errors.As(err, &se):
		c.JSON(http.StatusBadGateway, gin.H{"error": "submit_failed", "message": se.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
