package beanforge

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// TypeConverter turns a resolved value into the type a constructor
// parameter or struct field requires. Implementations must return a
// TypeMismatchError when conversion is impossible.
type TypeConverter interface {
	Convert(value any, target reflect.Type) (any, error)
}

// defaultConverter covers assignability, pointer normalization, string
// parsing for simple kinds and numeric widening. Anything richer belongs
// in a custom TypeConverter installed via WithTypeConverter.
type defaultConverter struct{}

var durationType = reflect.TypeOf(time.Duration(0))

func (defaultConverter) Convert(value any, target reflect.Type) (any, error) {
	if target == nil {
		return value, nil
	}
	if value == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return nil, nil
		default:
			return nil, &TypeMismatchError{Value: value, Target: target}
		}
	}

	vt := reflect.TypeOf(value)
	if vt.AssignableTo(target) {
		return value, nil
	}

	// Pointer normalization: *T -> T and T -> *T.
	if vt.Kind() == reflect.Pointer && vt.Elem().AssignableTo(target) {
		return reflect.ValueOf(value).Elem().Interface(), nil
	}
	if target.Kind() == reflect.Pointer && vt.AssignableTo(target.Elem()) {
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(reflect.ValueOf(value))
		return ptr.Interface(), nil
	}

	if s, ok := value.(string); ok {
		return convertString(s, target)
	}

	// Numeric widening and other value conversions. Cross-kind string
	// conversions are excluded so that int -> string never produces a rune
	// string; string kind to string kind (named string types) stays allowed.
	if vt.ConvertibleTo(target) && (target.Kind() == reflect.String) == (vt.Kind() == reflect.String) {
		return reflect.ValueOf(value).Convert(target).Interface(), nil
	}

	if target.Kind() == reflect.String {
		if s, ok := value.(fmt.Stringer); ok {
			return s.String(), nil
		}
	}

	return nil, &TypeMismatchError{Value: value, Target: target}
}

func convertString(s string, target reflect.Type) (any, error) {
	if target == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, &TypeMismatchError{Value: s, Target: target, Err: err}
		}
		return d, nil
	}
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, target.Bits())
		if err != nil {
			return nil, &TypeMismatchError{Value: s, Target: target, Err: err}
		}
		return reflect.ValueOf(n).Convert(target).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, target.Bits())
		if err != nil {
			return nil, &TypeMismatchError{Value: s, Target: target, Err: err}
		}
		return reflect.ValueOf(n).Convert(target).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, target.Bits())
		if err != nil {
			return nil, &TypeMismatchError{Value: s, Target: target, Err: err}
		}
		return reflect.ValueOf(f).Convert(target).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, &TypeMismatchError{Value: s, Target: target, Err: err}
		}
		return b, nil
	case reflect.String:
		// Named string types.
		return reflect.ValueOf(s).Convert(target).Interface(), nil
	default:
		return nil, &TypeMismatchError{Value: s, Target: target}
	}
}
