package beanforge

const (
	emptyString = ""
	pathSep     = " -> "
)

// ProducerPrefix dereferences a Producer bean itself rather than its
// product: Get("conn") returns the product, Get("&conn") the producer.
const ProducerPrefix = "&"

type tag string

const (
	// inject is the struct tag consulted during property population.
	// The tag value names the bean to inject. The field MUST be exported.
	inject tag = "di.inject"
)

// Scope controls how many instances of a definition the container creates.
type Scope int

const (
	// ScopeSingleton is the default: one shared instance per container,
	// registered in the singleton registry and eligible for circular
	// reference resolution.
	ScopeSingleton Scope = iota

	// ScopePrototype creates a fresh instance on every Get call. Prototype
	// cycles are never resolvable because there is no shared identity to
	// expose early.
	ScopePrototype
)

func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopePrototype:
		return "prototype"
	default:
		return "unknown"
	}
}

// ResolutionMode selects how constructor candidates that score equally
// are treated.
type ResolutionMode int

const (
	// ModeLenient is the default: ties are resolved in favour of the
	// first-scored candidate in scan order.
	ModeLenient ResolutionMode = iota

	// ModeStrict raises an AmbiguousConstructorError when two candidates
	// tie at the best score.
	ModeStrict
)

func (m ResolutionMode) String() string {
	switch m {
	case ModeLenient:
		return "lenient"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}
