package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
}

// RespondWithError sends a failed envelope. errs may be nil.
func RespondWithError(c *fiber.Ctx, statusCode int, message string, errs map[string][]string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}

// RespondWithJSON sends a successful envelope. A nil data is omitted.
func RespondWithJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var sliceIndex = regexp.MustCompile(`\[(\d+)\]`)

// FieldPath turns a validator namespace such as
// "TimelineRequest.image_timeline[2].start_time" into "image_timeline.2.start_time".
func FieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	return sliceIndex.ReplaceAllString(namespace, ".$1")
}

// FormatValidationErrors groups validator/v10 errors by field path.
func FormatValidationErrors(err error) map[string][]string {
	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			out["_"] = []string{err.Error()}
		}
		return out
	}
	for _, fe := range verrs {
		path := FieldPath(fe.Namespace())
		msg := fmt.Sprintf("Field '%s' failed on the '%s' tag", path, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s (value: %s)", msg, fe.Param())
		}
		out[path] = append(out[path], msg)
	}
	return out
}
