package beanforge

import (
	"math"
	"reflect"
)

// Type-distance constants. Lower is better. The strict-mode plateaus and
// the raw bias mirror the reference resolution behaviour: a raw set that
// matches without conversion beats an equally distant converted set by
// exactly rawWeightBias.
const (
	weightIncompatible    = math.MaxInt32
	weightStrictRawMatch  = math.MaxInt32 - 1024
	weightStrictConverted = math.MaxInt32 - 512
	rawWeightBias         = 1024
)

// assignableValue reports whether value can be used as-is for a parameter
// of type t. A nil value matches any nil-able parameter kind.
func assignableValue(t reflect.Type, value any) bool {
	if value == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return true
		default:
			return false
		}
	}
	return reflect.TypeOf(value).AssignableTo(t)
}

// typeDifferenceWeight scores one value set against one parameter-type
// list. Exact type matches cost nothing, each interface hop costs one,
// any non-assignable value makes the whole set incompatible.
func typeDifferenceWeight(paramTypes []reflect.Type, args []any) int {
	result := 0
	for i, pt := range paramTypes {
		if !assignableValue(pt, args[i]) {
			return weightIncompatible
		}
		if args[i] == nil {
			continue
		}
		if at := reflect.TypeOf(args[i]); at != pt && pt.Kind() == reflect.Interface {
			result++
		}
	}
	return result
}

// typeDifferenceWeight computes the lenient score for the holder: the
// converted set and the raw set are scored independently and the raw
// score is biased lower, so an unconverted exact match is preferred over
// a coerced one at equal distance.
func (h *argumentsHolder) typeDifferenceWeight(paramTypes []reflect.Type) int {
	converted := typeDifferenceWeight(paramTypes, h.arguments)
	raw := typeDifferenceWeight(paramTypes, h.rawArguments) - rawWeightBias
	if raw < converted {
		return raw
	}
	return converted
}

// assignabilityWeight computes the strict score: no partial credit, only
// the three plateaus. Candidates tie only when literally indistinguishable
// on assignability.
func (h *argumentsHolder) assignabilityWeight(paramTypes []reflect.Type) int {
	for i, pt := range paramTypes {
		if !assignableValue(pt, h.arguments[i]) {
			return weightIncompatible
		}
	}
	for i, pt := range paramTypes {
		if !assignableValue(pt, h.rawArguments[i]) {
			return weightStrictConverted
		}
	}
	return weightStrictRawMatch
}
