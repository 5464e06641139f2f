package beanforge

import (
	"fmt"
	"reflect"
)

// Lookup retrieves a managed bean by name from within the current
// construction session. Collaborators invoked during construction must
// resolve through the Lookup they are handed, never through Container.Get,
// which would re-enter the singleton mutex.
type Lookup func(name string) (any, error)

// ValueResolver turns a declared, possibly symbolic argument or property
// value into a concrete runtime value. It must be idempotent on values
// that are already concrete. The default resolver handles Ref values via
// the lookup and passes everything else through unchanged.
type ValueResolver func(raw any, lookup Lookup) (any, error)

func defaultValueResolver(raw any, lookup Lookup) (any, error) {
	if ref, ok := raw.(Ref); ok {
		return lookup(ref.Name)
	}
	return raw, nil
}

// DependencyResolver fills an autowired constructor parameter by locating
// a compatible managed bean. It returns the value together with the name
// of the bean it came from, so the container can record the dependent
// relationship. requesting is the bean under construction; names in
// exclude must not be considered.
type DependencyResolver func(required reflect.Type, requesting string, exclude map[string]struct{}, lookup Lookup) (value any, matched string, err error)

// InstantiationStrategy abstracts how a chosen constructor is actually
// invoked, so that callers can interpose wrapping or interception. ctor is
// nil when the definition declares no constructors; the strategy then
// allocates the target type directly.
type InstantiationStrategy interface {
	Instantiate(def *Definition, name string, ctor *Constructor, args []any) (any, error)
}

// reflectiveStrategy is the default InstantiationStrategy: plain reflective
// invocation, with zero-value allocation for constructor-less struct
// definitions.
type reflectiveStrategy struct{}

func (reflectiveStrategy) Instantiate(def *Definition, name string, ctor *Constructor, args []any) (obj any, err error) {
	if ctor == nil {
		return allocate(def.Type)
	}

	in := make([]reflect.Value, len(ctor.params))
	for i, pt := range ctor.params {
		if args[i] == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		in[i] = reflect.ValueOf(args[i])
	}

	defer func() {
		if r := recover(); r != nil {
			obj = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()

	out := ctor.fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// allocate builds a zero instance for a constructor-less definition.
// Pointer-to-struct and struct types are supported; anything else needs a
// constructor or an instance registration.
func allocate(t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("definition has no target type and no constructor")
	}
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return reflect.New(t.Elem()).Interface(), nil
	case t.Kind() == reflect.Struct:
		return reflect.New(t).Interface(), nil
	default:
		return nil, fmt.Errorf("type %v is not instantiable without a constructor", t)
	}
}

// PreInstantiationHook runs before candidate construction. A non-nil
// result short-circuits construction entirely and is used as the bean.
type PreInstantiationHook func(name string, def *Definition) (any, error)

// EarlyReferenceHook may wrap the raw object exposed as an early reference
// to in-progress dependents of a circular graph. It runs at most once per
// construction, when the early accessor is first invoked.
type EarlyReferenceHook func(name string, obj any) (any, error)

// PostInitializationHook runs after property population and Initialize.
// A non-nil result replaces the bean; replacing it after the raw identity
// was consumed by a dependent trips the raw-injection check.
type PostInitializationHook func(name string, obj any) (any, error)

// ProductHook post-processes objects obtained from a Producer before they
// are cached and handed out.
type ProductHook func(name string, product any) (any, error)
