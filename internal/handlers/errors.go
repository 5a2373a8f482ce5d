package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/umsebenzi/internal/constants"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
	"github.com/yukikurage/umsebenzi/internal/services"
	"github.com/yukikurage/umsebenzi/internal/tracker"
)

func init() {
	// Report binding failures under the JSON field name instead of the Go one
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	}
}

// bindJSON binds the request body and writes a 400 response on failure.
// Validation failures are reported per field.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		apierrors.BadRequestWithDetails(c, "Invalid request body", bindingDetails(validationErrs))
		return false
	}

	apierrors.BadRequest(c, "Invalid request body")
	return false
}

func bindingDetails(errs validator.ValidationErrors) map[string][]string {
	details := make(map[string][]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = append(details[fe.Field()], bindingMessage(fe))
	}
	return details
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return services.MsgFieldRequired
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	default:
		return "Invalid value."
	}
}

// respondError maps service and domain errors to API responses.
func respondError(c *gin.Context, err error) {
	var validationErr *tracker.ValidationError
	var codeErr *tracker.CodeFormatError

	switch {
	case errors.As(err, &validationErr):
		apierrors.FieldError(c, validationErr.Field, validationErr.Message)
	case errors.As(err, &codeErr):
		log.Printf("data integrity error: %v", err)
		apierrors.InternalError(c, "Stored task code is malformed")
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrParentNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectCodeTaken),
		errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.FieldError(c, "password", fmt.Sprintf("Password must be at least %d characters.", constants.MinPasswordLength))
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity, apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, err.Error()))
	default:
		log.Printf("request failed: %v", err)
		apierrors.InternalError(c, "")
	}
}
