package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// Fields is a decoded JSON object. It keeps track of which members were sent,
// so absent and null can be told apart.
type Fields map[string]json.RawMessage

// DecodeFields reads a JSON object body.
func DecodeFields(body io.Reader) (Fields, error) {
	var f Fields
	if err := json.NewDecoder(body).Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

func (f Fields) Present(name string) bool {
	_, ok := f[name]
	return ok
}

func (f Fields) IsNull(name string) bool {
	raw, ok := f[name]
	return !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

var (
	validate = validator.New()
	trans    ut.Translator
)

func init() {
	validate.RegisterTagNameFunc(jsonName)

	_ = validate.RegisterValidation("object", jsonShape('{'))
	_ = validate.RegisterValidation("array", jsonShape('['))
	_ = validate.RegisterValidation("collection", jsonShape('{', '['))
	_ = validate.RegisterValidation("between", between)

	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")

	addMessage("required", "The {0} field is required.")
	addMessage("gte", "The {0} field must be at least {1}.", fieldParam)
	addMessage("lte", "The {0} field must not be greater than {1}.", fieldParam)
	addMessage("between", "The {0} field must be between {1} and {2}.", betweenParams)
	addMessage("oneof", "The selected {0} is invalid.")
	addMessage("hexcolor", "The {0} field format is invalid.")
	addMessage("len", "The {0} field must be {1} characters.", fieldParam)
	addMessage("object", "The {0} field must be an object.")
	addMessage("array", "The {0} field must be an array.")
	addMessage("collection", "The {0} field must be an array.")

	_ = validate.RegisterTranslation("max", trans, func(t ut.Translator) error {
		if err := t.Add("max-string", "The {0} field must not be greater than {1} characters.", true); err != nil {
			return err
		}
		return t.Add("max-number", "The {0} field must not be greater than {1}.", true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		key := "max-number"
		if fe.Kind() == reflect.String {
			key = "max-string"
		}
		msg, err := t.T(key, label(fe.Field()), fe.Param())
		if err != nil {
			return fe.Error()
		}
		return msg
	})
}

func addMessage(tag, text string, params ...func(validator.FieldError) []string) {
	_ = validate.RegisterTranslation(tag, trans, func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		args := []string{label(fe.Field())}
		for _, p := range params {
			args = append(args, p(fe)...)
		}
		msg, err := t.T(tag, args...)
		if err != nil {
			return fe.Error()
		}
		return msg
	})
}

func fieldParam(fe validator.FieldError) []string { return []string{fe.Param()} }

func betweenParams(fe validator.FieldError) []string {
	lo, hi, _ := strings.Cut(fe.Param(), ":")
	return []string{lo, hi}
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func label(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// jsonShape accepts raw JSON members that open with one of the given bytes.
func jsonShape(open ...byte) validator.Func {
	return func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Slice || f.Type().Elem().Kind() != reflect.Uint8 {
			return false
		}
		b := bytes.TrimSpace(f.Bytes())
		if len(b) == 0 || bytes.IndexByte(open, b[0]) < 0 {
			return false
		}
		return json.Valid(b)
	}
}

// between takes an inclusive "lo:hi" range.
func between(fl validator.FieldLevel) bool {
	lo, hi, ok := strings.Cut(fl.Param(), ":")
	if !ok {
		return false
	}
	low, err1 := strconv.ParseFloat(lo, 64)
	high, err2 := strconv.ParseFloat(hi, 64)
	if err1 != nil || err2 != nil {
		return false
	}

	var n float64
	switch f := fl.Field(); f.Kind() {
	case reflect.Float32, reflect.Float64:
		n = f.Float()
	case reflect.Int, reflect.Int32, reflect.Int64:
		n = float64(f.Int())
	default:
		return false
	}
	return n >= low && n <= high
}

// Bind copies the members of f into the struct dst points to and checks its
// validate tags. The report is keyed by member name with one message each.
//
// Strings are trimmed, and blank strings count as null. A null is accepted
// by fields tagged omitnil and reported as missing by required ones; any
// other field rejects it.
func Bind(f Fields, dst interface{}) map[string][]string {
	errs := make(map[string][]string)
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name := jsonName(sf)
		if name == "" || !sf.IsExported() || !f.Present(name) {
			continue
		}

		tag := sf.Tag.Get("validate")
		raw := f[name]
		if f.IsNull(name) || blank(raw) {
			if !strings.HasPrefix(tag, "omitnil") && !strings.HasPrefix(tag, "required") {
				errs[name] = []string{fmt.Sprintf("The %s field must not be null.", label(name))}
			}
			continue
		}
		if msg := assign(rv.Field(i), raw); msg != "" {
			errs[name] = []string{fmt.Sprintf("The %s field %s.", label(name), msg)}
		}
	}

	var ves validator.ValidationErrors
	if err := validate.Struct(dst); errors.As(err, &ves) {
		for _, fe := range ves {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = []string{fe.Translate(trans)}
		}
	}
	return errs
}

func blank(raw json.RawMessage) bool {
	var s string
	return json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) == ""
}

// assign decodes raw into fv and returns the type message on mismatch.
// Numbers may arrive as numeric strings.
func assign(fv reflect.Value, raw json.RawMessage) string {
	target := fv
	if fv.Kind() == reflect.Ptr {
		target = reflect.New(fv.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "must be a string"
		}
		target.SetString(strings.TrimSpace(s))
	case reflect.Float64:
		n, ok := parseNumber(raw)
		if !ok {
			return "must be a number"
		}
		target.SetFloat(n)
	case reflect.Int64:
		n, ok := parseNumber(raw)
		if !ok || n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return "must be an integer"
		}
		target.SetInt(int64(n))
	case reflect.Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "must be true or false"
		}
		target.SetBool(b)
	case reflect.Slice:
		if target.Type().Elem().Kind() != reflect.Uint8 {
			return "is invalid"
		}
		target.SetBytes(append([]byte(nil), raw...))
	default:
		if err := json.Unmarshal(raw, target.Addr().Interface()); err != nil {
			return "is invalid"
		}
	}

	if fv.Kind() == reflect.Ptr {
		fv.Set(target.Addr())
	}
	return ""
}

// Changes returns the bound value of each member present in f, keyed by
// member name, for a partial update. Nil values clear the column.
func Changes(f Fields, src interface{}) map[string]interface{} {
	rv := reflect.Indirect(reflect.ValueOf(src))
	rt := rv.Type()

	out := make(map[string]interface{})
	for i := 0; i < rt.NumField(); i++ {
		name := jsonName(rt.Field(i))
		if name == "" || !f.Present(name) {
			continue
		}
		fv := rv.Field(i)
		switch {
		case (fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Slice) && fv.IsNil():
			out[name] = nil
		case fv.Kind() == reflect.Ptr:
			out[name] = fv.Elem().Interface()
		default:
			out[name] = fv.Interface()
		}
	}
	return out
}

// FlattenErrors lists the messages ordered by member name.
func FlattenErrors(errs map[string][]string) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		out = append(out, errs[k]...)
	}
	return out
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}
