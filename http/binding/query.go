package binding

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
)

// QueryUnmarshaler lets a type parse its own query value.
type QueryUnmarshaler interface {
	UnmarshalQuery(string) error
}

var unmarshalerType = reflect.TypeFor[QueryUnmarshaler]()

// ArrayStrategy selects how slice fields are read.
type ArrayStrategy int

const (
	// ArrayStrategyMultiple reads ?o=a&o=b
	ArrayStrategyMultiple ArrayStrategy = iota
	// ArrayStrategyComma reads ?o=a,b
	ArrayStrategyComma
	// ArrayStrategyBoth splits a single comma separated value, else
	// takes repeated values.
	ArrayStrategyBoth
)

// QueryParser binds url.Values into flat structs.
type QueryParser struct {
	tagName       string
	arrayStrategy ArrayStrategy
}

func NewQueryParser() *QueryParser {
	return &QueryParser{
		tagName:       "query",
		arrayStrategy: ArrayStrategyBoth,
	}
}

func (qp *QueryParser) SetArrayStrategy(strategy ArrayStrategy) {
	qp.arrayStrategy = strategy
}

// Bind applies default tags, overwrites fields given a non-empty value
// and validates the result.
func (qp *QueryParser) Bind(values url.Values, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return &BindError{Type: "bind_error", Message: "v must be a non-nil pointer to struct"}
	}
	if err := defaults.Set(v); err != nil {
		return &BindError{Type: "bind_error", Message: "invalid default: " + err.Error()}
	}

	rv = rv.Elem()
	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !field.CanSet() {
			continue
		}
		name := qp.queryName(sf)
		if name == "-" {
			continue
		}
		raw := values[name]
		if len(raw) == 0 || (len(raw) == 1 && raw[0] == "") {
			continue
		}
		if err := qp.setField(field, raw, sf.Name); err != nil {
			return err
		}
	}
	return validate(v)
}

// queryName is the query tag, else the json tag, else the lower-cased
// field name.
func (qp *QueryParser) queryName(sf reflect.StructField) string {
	for _, tag := range []string{qp.tagName, "json"} {
		if t := sf.Tag.Get(tag); t != "" {
			return strings.Split(t, ",")[0]
		}
	}
	return strings.ToLower(sf.Name)
}

func (qp *QueryParser) setField(field reflect.Value, values []string, fieldName string) error {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		field = field.Elem()
	}
	if field.CanAddr() && field.Addr().Type().Implements(unmarshalerType) {
		if err := field.Addr().Interface().(QueryUnmarshaler).UnmarshalQuery(values[0]); err != nil {
			return &BindError{Type: "bind_error", Field: fieldName, Message: "failed to unmarshal query: " + err.Error()}
		}
		return nil
	}
	if field.Kind() != reflect.Slice {
		return setScalar(field, values[0], fieldName)
	}

	var items []string
	switch qp.arrayStrategy {
	case ArrayStrategyMultiple:
		items = values
	case ArrayStrategyComma:
		items = strings.Split(values[0], ",")
	default:
		if len(values) == 1 && strings.Contains(values[0], ",") {
			items = strings.Split(values[0], ",")
		} else {
			items = values
		}
	}

	slice := reflect.MakeSlice(field.Type(), len(items), len(items))
	for i, item := range items {
		if err := setScalar(slice.Index(i), strings.TrimSpace(item), fieldName); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}

func setScalar(field reflect.Value, value, fieldName string) error {
	invalid := func(what string, err error) error {
		return &BindError{Type: "bind_error", Field: fieldName, Message: "invalid " + what + " value: " + err.Error()}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return invalid("integer", err)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return invalid("unsigned integer", err)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid("float", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("boolean", err)
		}
		field.SetBool(b)
	default:
		return &BindError{Type: "bind_error", Field: fieldName, Message: "unsupported field type: " + field.Kind().String()}
	}
	return nil
}
