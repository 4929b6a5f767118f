package routes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormErrors maps a struct field name to its first problem.
type FormErrors map[string]string

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})
	return v
}

// validateForm checks form and returns Indonesian messages. A `msg` struct
// tag overrides the generated message for its field.
func validateForm(form any) FormErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FormErrors{"form": "Data tidak valid"}
	}

	t := reflect.TypeOf(form)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := FormErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.StructField()]; seen {
			continue
		}
		msg := fieldMessage(fe)
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if custom := f.Tag.Get("msg"); custom != "" {
				msg = custom
			}
		}
		out[fe.StructField()] = msg
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " wajib diisi"
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s minimal %s karakter", label, fe.Param())
		}
		return fmt.Sprintf("%s minimal %s", label, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s maksimal %s karakter", label, fe.Param())
		}
		return fmt.Sprintf("%s maksimal %s", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s harus salah satu dari %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return label + " tidak cocok"
	case "datetime":
		return label + " tidak valid"
	}
	return label + " tidak valid"
}
