// Package validator wires go-playground/validator into gin with custom tags.
package validator

import (
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CustomValidator implements gin's binding.StructValidator.
type CustomValidator struct {
	once     sync.Once
	validate *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	return &CustomValidator{}
}

// ValidateStruct validates structs and pointers to structs; other kinds pass.
func (v *CustomValidator) ValidateStruct(obj interface{}) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	v.lazyinit()
	return v.validate.Struct(obj)
}

// Engine returns the underlying *validator.Validate.
func (v *CustomValidator) Engine() interface{} {
	v.lazyinit()
	return v.validate
}

func (v *CustomValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName("binding")
		_ = v.validate.RegisterValidation("relpath", validateRelPath)
		_ = v.validate.RegisterValidation("ext", validateExt)
		_ = v.validate.RegisterValidation("cron", validateCron)
	})
}

// validateRelPath accepts empty strings and relative paths that stay inside
// the scan root.
func validateRelPath(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	s = strings.ReplaceAll(s, "\\", "/")
	if strings.HasPrefix(s, "/") {
		return false
	}
	clean := path.Clean(s)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

// validateExt accepts ".vbk" or "vbk" style extensions without separators.
func validateExt(fl validator.FieldLevel) bool {
	s := strings.TrimPrefix(strings.TrimSpace(fl.Field().String()), ".")
	return s != "" && !strings.ContainsAny(s, "/\\. ")
}

// validateCron accepts 5-field cron expressions only.
func validateCron(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if len(strings.Fields(s)) != 5 {
		return false
	}
	_, err := cronParser.Parse(s)
	return err == nil
}
