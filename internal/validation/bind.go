package validation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": FieldErrors(err),
		})
		return err
	}
	return nil
}

// FieldErrors maps each offending field (by JSON name) to a short message.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "required_for_arc":
		return fmt.Sprintf("is required for service type %q", fe.Param())
	case "email":
		return "must be a valid email address"
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	case "gt", "gte", "min":
		return fmt.Sprintf("must be %s %s", map[string]string{"gt": ">", "gte": ">=", "min": ">="}[fe.Tag()], fe.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "decimals":
		return fmt.Sprintf("must have at most %s decimal places", fe.Param())
	case "datauri":
		return "must be a data URI"
	}
	return fe.Error()
}
