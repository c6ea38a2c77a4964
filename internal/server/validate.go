package server

import (
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// nonAnswers are rejected by the "substantive" tag.
var nonAnswers = []string{"i dont know", "i don't know", "idk", "skip"}

var registerOnce sync.Once

// registerValidators adds the custom tags to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("substantive", substantive)
		}
	})
}

func substantive(fl validator.FieldLevel) bool {
	s := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	return s != "" && !slices.Contains(nonAnswers, s)
}
