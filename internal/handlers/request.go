package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/httpx"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

const defaultMaxBodySize = 64 * 1024

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// flexibleNumber accepts a JSON number or a numeric string. Anything else decodes to an
// absent value instead of failing the request. Numbers outside shipping.InRange are kept
// absent and flagged so the "measure" validation rejects them.
type flexibleNumber struct {
	decimal.NullDecimal
	outOfRange bool
}

func (n *flexibleNumber) UnmarshalJSON(data []byte) error {
	n.NullDecimal = decimal.NullDecimal{}
	n.outOfRange = false
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	if !shipping.InRange(value) {
		n.outOfRange = true
		return nil
	}
	n.NullDecimal = decimal.NewNullDecimal(value)
	return nil
}

// newRequestValidator reports JSON field names and validates flexibleNumber as float64 so
// numeric tags such as gte apply to it. Out-of-range numbers surface as +Inf, which only the
// "measure" tag rejects.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		n, ok := field.Interface().(flexibleNumber)
		switch {
		case !ok:
			return nil
		case n.outOfRange:
			return math.Inf(1)
		case !n.Valid:
			return nil
		}
		return n.Decimal.InexactFloat64()
	}, flexibleNumber{})
	_ = v.RegisterValidation("measure", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Float64 {
			return true
		}
		return !math.IsInf(f.Float(), 0)
	})
	return v
}

func validationViolations(err error) []httpx.Violation {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]httpx.Violation, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		out = append(out, httpx.Violation{Field: field, Message: violationMessage(fe)})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "exceeds maximum length " + fe.Param()
	case "measure":
		return "is out of range"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
