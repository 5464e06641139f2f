package beanforge

import (
	"fmt"
	"reflect"
	"sync"
)

// Ref is a declared value that refers to another managed bean by name.
// The value resolver replaces it with the bean instance at construction
// time, which may itself trigger construction of that bean.
type Ref struct {
	Name string
}

// ValueHolder carries one declared argument value together with optional
// type and name hints used during argument matching. Resolution works on
// copies; source links a copy back to the declared holder so the cached
// plan can store the unresolved form for late re-resolution.
type ValueHolder struct {
	Value any
	Type  reflect.Type
	Name  string

	source *ValueHolder
}

// ArgValues holds the declared constructor argument values of a
// definition, split into index-bound and generic entries.
type ArgValues struct {
	indexed map[int]*ValueHolder
	generic []*ValueHolder
}

func NewArgValues() *ArgValues {
	return &ArgValues{indexed: make(map[int]*ValueHolder)}
}

func (av *ArgValues) AddIndexed(index int, vh *ValueHolder) error {
	if index < 0 {
		return fmt.Errorf("invalid constructor argument index: %d", index)
	}
	av.indexed[index] = vh
	return nil
}

func (av *ArgValues) AddGeneric(vh *ValueHolder) {
	av.generic = append(av.generic, vh)
}

// Count returns the number of declared argument values, indexed and
// generic combined.
func (av *ArgValues) Count() int {
	return len(av.indexed) + len(av.generic)
}

// indexedValue returns the index-bound holder matching the required type
// and parameter name, if any.
func (av *ArgValues) indexedValue(index int, required reflect.Type, name string) *ValueHolder {
	vh, ok := av.indexed[index]
	if !ok {
		return nil
	}
	if vh.Type != nil && required != nil && !vh.Type.AssignableTo(required) {
		return nil
	}
	if vh.Name != emptyString && name != emptyString && vh.Name != name {
		return nil
	}
	return vh
}

// genericValue returns the next unused generic holder compatible with the
// required type and name. A nil required type with an empty name matches
// only untyped, unnamed holders; this is the autowire-fallback probe.
func (av *ArgValues) genericValue(required reflect.Type, name string, used map[*ValueHolder]struct{}) *ValueHolder {
	for _, vh := range av.generic {
		if _, taken := used[vh]; taken {
			continue
		}
		if vh.Name != emptyString && (name == emptyString || vh.Name != name) {
			continue
		}
		if vh.Type != nil && (required == nil || !vh.Type.AssignableTo(required)) {
			continue
		}
		if vh.Type == nil && vh.Name == emptyString && required != nil && !assignableValue(required, vh.Value) {
			continue
		}
		return vh
	}
	return nil
}

// argumentValue finds a declared value for one parameter, trying the
// index binding first and falling back to the generic pool.
func (av *ArgValues) argumentValue(index int, required reflect.Type, name string, used map[*ValueHolder]struct{}) *ValueHolder {
	if vh := av.indexedValue(index, required, name); vh != nil {
		return vh
	}
	return av.genericValue(required, name, used)
}

// maxIndex returns the highest declared index, or -1 when none.
func (av *ArgValues) maxIndex() int {
	max := -1
	for i := range av.indexed {
		if i > max {
			max = i
		}
	}
	return max
}

// Property is a declared property value applied to an exported struct
// field after instantiation.
type Property struct {
	Name  string
	Value any
}

// Definition describes how to build one logical bean: the target type,
// candidate constructors, declared argument values, declared properties,
// scope and resolution mode. A definition is shared across repeated
// construction requests; once a constructor and its arguments have been
// resolved they are cached on the definition and reused.
type Definition struct {
	Type         reflect.Type
	Scope        Scope
	Mode         ResolutionMode
	Autowire     bool
	Constructors []*Constructor
	Args         *ArgValues
	Properties   []Property

	// Cached plan. Guarded by planMu, never by the singleton mutex, so
	// unrelated beans do not serialize on argument resolution. Exactly one
	// of resolvedArgs/preparedArgs is populated once argumentsResolved is
	// set: resolvedArgs when every argument could be memoized verbatim,
	// preparedArgs when any argument needs late re-resolution.
	planMu              sync.Mutex
	resolvedConstructor *Constructor
	argumentsResolved   bool
	resolvedArgs        []any
	preparedArgs        []any

	// First error raised by an option, surfaced at registration.
	err error
}

// DefinitionOption configures a Definition during construction.
type DefinitionOption func(*Definition) error

// NewDefinition creates a bean definition for the given target type.
// Struct types are normalized to pointer-to-struct, matching the
// container's injection semantics. Options are applied in order; the
// first option error is reported by Container.Register.
func NewDefinition(target reflect.Type, opts ...DefinitionOption) *Definition {
	if target != nil && target.Kind() == reflect.Struct {
		target = reflect.PointerTo(target)
	}
	def := &Definition{
		Type:     target,
		Scope:    ScopeSingleton,
		Mode:     ModeLenient,
		Autowire: true,
		Args:     NewArgValues(),
	}
	def.err = applyOptions(def, opts)
	return def
}

func applyOptions(def *Definition, opts []DefinitionOption) error {
	for _, opt := range opts {
		if err := opt(def); err != nil {
			return err
		}
	}
	return nil
}

// TypeOf returns the reflect.Type for T without needing a value.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// WithScope sets the definition's scope. The default is ScopeSingleton.
func WithScope(s Scope) DefinitionOption {
	return func(def *Definition) error {
		def.Scope = s
		return nil
	}
}

// WithResolutionMode sets the constructor resolution mode. The default is
// ModeLenient.
func WithResolutionMode(m ResolutionMode) DefinitionOption {
	return func(def *Definition) error {
		def.Mode = m
		return nil
	}
}

// WithAutowire enables or disables autowiring of constructor parameters
// that have no matching declared value. Enabled by default.
func WithAutowire(enabled bool) DefinitionOption {
	return func(def *Definition) error {
		def.Autowire = enabled
		return nil
	}
}

// WithConstructor adds a candidate constructor. The function must return
// (T) or (T, error). The exported-ness of the name determines the
// candidate's accessibility during ordering. Optional paramNames enable
// name-based argument matching and must cover every parameter when given.
func WithConstructor(name string, fn any, paramNames ...string) DefinitionOption {
	return func(def *Definition) error {
		ctor, err := newConstructor(name, fn, paramNames)
		if err != nil {
			return err
		}
		def.Constructors = append(def.Constructors, ctor)
		return nil
	}
}

// WithIndexedArg declares a constructor argument bound to a parameter
// index.
func WithIndexedArg(index int, value any) DefinitionOption {
	return func(def *Definition) error {
		return def.Args.AddIndexed(index, &ValueHolder{Value: value})
	}
}

// WithNamedArg declares a constructor argument bound to a parameter name.
func WithNamedArg(name string, value any) DefinitionOption {
	return func(def *Definition) error {
		def.Args.AddGeneric(&ValueHolder{Value: value, Name: name})
		return nil
	}
}

// WithArg declares an untyped generic constructor argument, matched
// against parameters in declaration order.
func WithArg(value any) DefinitionOption {
	return func(def *Definition) error {
		def.Args.AddGeneric(&ValueHolder{Value: value})
		return nil
	}
}

// WithTypedArg declares a generic constructor argument restricted to
// parameters of the given type.
func WithTypedArg(value any, t reflect.Type) DefinitionOption {
	return func(def *Definition) error {
		def.Args.AddGeneric(&ValueHolder{Value: value, Type: t})
		return nil
	}
}

// WithProperty declares a property value set on the named exported field
// after instantiation. The value may be a Ref.
func WithProperty(name string, value any) DefinitionOption {
	return func(def *Definition) error {
		def.Properties = append(def.Properties, Property{Name: name, Value: value})
		return nil
	}
}

// cachedPlan reads the cached plan under the descriptor lock. argsToResolve
// is non-nil when the plan was stored in prepared form and must be
// re-resolved before use.
func (def *Definition) cachedPlan() (ctor *Constructor, args []any, argsToResolve []any) {
	def.planMu.Lock()
	defer def.planMu.Unlock()
	ctor = def.resolvedConstructor
	if ctor != nil && def.argumentsResolved {
		args = def.resolvedArgs
		if args == nil {
			argsToResolve = def.preparedArgs
		}
	}
	return ctor, args, argsToResolve
}
