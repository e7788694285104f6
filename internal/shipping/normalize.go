package shipping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/types"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Normalize validates a quote request. Every problem is reported in the error
// details keyed by field path, e.g. "cart[0].quantity".
func Normalize(req QuoteRequest) (NormalizedRequest, error) {
	details := map[string]string{}
	var out NormalizedRequest

	if req.Destination == nil {
		details["destination"] = "is required"
	} else {
		dest := Destination{
			Country:    strings.ToUpper(strings.TrimSpace(req.Destination.Country)),
			PostalCode: strings.TrimSpace(req.Destination.PostalCode),
			State:      strings.TrimSpace(req.Destination.State),
			City:       strings.TrimSpace(req.Destination.City),
		}
		collectValidation(details, "destination", validate.Struct(dest))
		out.Destination = dest
	}

	items, ok := decodeCart(req.Cart, details)
	if ok {
		out.Items = items
	}

	if len(details) > 0 {
		message := "invalid quote request"
		if req.Destination == nil {
			message = "destination is required"
		}
		return NormalizedRequest{}, pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
	}
	if out.Items == nil {
		out.Items = []CartItem{}
	}
	return out, nil
}

func decodeCart(raw json.RawMessage, details map[string]string) ([]CartItem, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []CartItem{}, true
	}
	if trimmed[0] != '[' {
		details["cart"] = "must be an array"
		return nil, false
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		details["cart"] = "must be an array"
		return nil, false
	}

	items := make([]CartItem, 0, len(elements))
	valid := true
	for i, element := range elements {
		path := fmt.Sprintf("cart[%d]", i)
		elem := bytes.TrimSpace(element)
		if len(elem) == 0 || elem[0] != '{' {
			details[path] = "must be an object"
			valid = false
			continue
		}

		var input CartItemInput
		if err := json.Unmarshal(elem, &input); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				details[path+"."+typeErr.Field] = "must be a " + jsonKind(typeErr.Type)
			} else {
				details[path] = "is invalid"
			}
			valid = false
			continue
		}

		input.SKU = strings.TrimSpace(input.SKU)
		input.ID = strings.TrimSpace(input.ID)
		before := len(details)
		collectValidation(details, path, validate.Struct(input))
		if input.Price != nil && input.Price.IsNegative() {
			details[path+".price"] = "must not be negative"
		}
		if len(details) != before {
			valid = false
			continue
		}

		item := CartItem{
			SKU:        input.SKU,
			ID:         input.ID,
			Quantity:   input.Quantity,
			WeightOz:   input.Weight,
			Dimensions: input.Dimensions,
		}
		if input.Price != nil {
			cents := types.CentsFromDecimal(*input.Price)
			item.PriceCents = &cents
		}
		items = append(items, item)
	}
	return items, valid
}

func collectValidation(details map[string]string, prefix string, err error) {
	if err == nil {
		return
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		details[prefix] = "is invalid"
		return
	}
	for _, fe := range errs {
		// Namespace is "<Struct>.<field>[.<nested>]"; swap the struct name for the request path.
		ns := fe.Namespace()
		if idx := strings.Index(ns, "."); idx >= 0 {
			ns = ns[idx+1:]
		}
		details[prefix+"."+ns] = validationMessage(fe)
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when id is empty"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	}
	return "is invalid"
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "valid value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "whole number"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	}
	return "valid value"
}
