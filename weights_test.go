package beanforge

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// --- Type-distance scoring ---

func TestWeights_ExactBeatsInterfaceHop(t *testing.T) {
	t.Parallel()

	exact := typeDifferenceWeight([]reflect.Type{TypeOf[*Config]()}, []any{&Config{}})
	hop := typeDifferenceWeight([]reflect.Type{TypeOf[interface{ String() string }]()}, []any{stringable{}})

	require.Equal(t, 0, exact)
	require.Equal(t, 1, hop)
}

func TestWeights_IncompatibleValue(t *testing.T) {
	t.Parallel()

	w := typeDifferenceWeight([]reflect.Type{TypeOf[int]()}, []any{"nope"})
	require.Equal(t, weightIncompatible, w)
}

func TestWeights_RawMatchPreferredOverConverted(t *testing.T) {
	t.Parallel()

	// Raw and converted both match: the raw bias makes the holder score
	// below a purely converted match.
	h := &argumentsHolder{
		rawArguments: []any{5},
		arguments:    []any{5},
	}
	require.Equal(t, -rawWeightBias, h.typeDifferenceWeight([]reflect.Type{TypeOf[int]()}))

	// Raw no longer matches after conversion: only the converted score
	// counts.
	h = &argumentsHolder{
		rawArguments: []any{"5"},
		arguments:    []any{5},
	}
	require.Equal(t, 0, h.typeDifferenceWeight([]reflect.Type{TypeOf[int]()}))
}

func TestWeights_StrictPlateaus(t *testing.T) {
	t.Parallel()

	h := &argumentsHolder{
		rawArguments: []any{5},
		arguments:    []any{5},
	}
	require.Equal(t, weightStrictRawMatch, h.assignabilityWeight([]reflect.Type{TypeOf[int]()}))

	h = &argumentsHolder{
		rawArguments: []any{"5"},
		arguments:    []any{5},
	}
	require.Equal(t, weightStrictConverted, h.assignabilityWeight([]reflect.Type{TypeOf[int]()}))

	h = &argumentsHolder{
		rawArguments: []any{"x"},
		arguments:    []any{"x"},
	}
	require.Equal(t, weightIncompatible, h.assignabilityWeight([]reflect.Type{TypeOf[int]()}))
}
