package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/EternisAI/soc-agent-sync/internal/apperr"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidation makes the gin validator report JSON field names, so
// missing fields are named the way clients send them.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
	})
}

var registerOnce sync.Once

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// bindError converts a ShouldBindJSON failure into a validation error.
func bindError(err error) *apperr.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("invalid request body: " + err.Error())
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.Missing(missing...)
	}
	return &apperr.ValidationError{Fields: invalid, Reason: "invalid fields"}
}
