// Package common holds the response envelopes, problem details and request
// binding shared by every route group.
package common

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	conversionsvc "github.com/kaushal/skillcredits/pkg/service/conversion"
	"github.com/kaushal/skillcredits/pkg/service/rewards"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: field-level validation errors
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// SuccessResponseJSON writes a Response envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ProblemDetailsJSON writes an RFC 9457 problem. The status comes from
// ErrorToStatusCode(err) unless an int is passed in args; a string in args
// replaces the detail. Details of 5xx errors are not exposed.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	status := fiber.StatusInternalServerError
	detail := ""
	if err != nil {
		status = ErrorToStatusCode(err)
		detail = err.Error()
	}
	explicitDetail := false
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			detail = v
			explicitDetail = true
		case int:
			status = v
		}
	}
	if status >= fiber.StatusInternalServerError && !explicitDetail {
		detail = ""
	}
	return writeProblem(c, ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(c *fiber.Ctx, pd ProblemDetails) error {
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(pd.Status).JSON(pd)
}

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, account.ErrInsufficientCredits):
		return fiber.StatusBadRequest
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, conversion.ErrConversionNotFound),
		errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, conversion.ErrInvalidStatusTransition),
		errors.Is(err, transaction.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, account.ErrAmountMustBePositive),
		errors.Is(err, account.ErrUserIDRequired),
		errors.Is(err, transaction.ErrInvalidType),
		errors.Is(err, transaction.ErrCategoryRequired),
		errors.Is(err, conversion.ErrBelowMinimum),
		errors.Is(err, conversion.ErrUnsupportedCurrency),
		errors.Is(err, conversion.ErrInvalidAddress),
		errors.Is(err, conversionsvc.ErrTxHashRequired),
		errors.Is(err, rewards.ErrUnknownEventType):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body into T and validates it.
// On failure it writes the problem response and returns a nil pointer.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return nil, ProblemDetailsJSON(c, "Invalid request body", err, fiber.StatusBadRequest)
		}
	}
	if err := ValidateStruct(c, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// ValidateStruct validates v and writes a 400 problem listing the failing fields.
// It returns nil when v is valid.
func ValidateStruct(c *fiber.Ctx, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ProblemDetailsJSON(c, "Validation failed", err, fiber.StatusBadRequest)
	}
	return writeProblem(c, ProblemDetails{
		Type:   "about:blank",
		Title:  "Validation failed",
		Status: fiber.StatusBadRequest,
		Detail: "one or more fields are invalid",
		Errors: FieldErrors(verrs),
	})
}

// FieldErrors renders validator errors as field -> message.
func FieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := "failed on '" + fe.Tag() + "'"
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		out[fe.Field()] = msg
	}
	return out
}
