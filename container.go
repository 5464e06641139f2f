// Package beanforge is an object-graph construction engine: definitions
// describe how to build named beans, the container selects the best
// matching constructor for each, binds and converts its arguments, and
// manages the resulting singletons in a registry that supports circular
// references between beans.
package beanforge

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Container owns the bean definitions and the singleton registry.
// Use [New] to create an instance.
//
// A single RWMutex forms the singleton exclusion domain: every lifecycle
// transition and every construction session runs under the write lock,
// while completed singletons and cached products are served under the
// read lock or lock-free. Nested resolution during a session, including
// circular references, stays inside the session and never re-locks;
// collaborators invoked mid-construction must resolve through the Lookup
// they are handed rather than calling Get.
type Container struct {
	mu sync.RWMutex

	definitions map[string]*Definition

	singletons         map[string]any
	earlySingletons    map[string]any
	singletonFactories map[string]singletonFactory
	inCreation         map[string]struct{}
	dependents         map[string]map[string]struct{}

	// Producer product cache. Lock-free reads; writes only under mu.
	products sync.Map

	allowCircular     bool
	allowRawInjection bool

	converter          TypeConverter
	strategy           InstantiationStrategy
	valueResolver      ValueResolver
	dependencyResolver DependencyResolver

	preHooks     []PreInstantiationHook
	earlyHooks   []EarlyReferenceHook
	postHooks    []PostInitializationHook
	productHooks []ProductHook
}

// Option configures a Container during construction.
type Option func(*Container)

// WithCircularReferences enables or disables resolution of singleton
// reference cycles via early references. Enabled by default; with it
// disabled any cycle fails with a CircularDependencyError.
func WithCircularReferences(allow bool) Option {
	return func(c *Container) { c.allowCircular = allow }
}

// WithRawInjection tolerates dependents keeping the raw identity of a bean
// that initialization later replaced with a wrapped object. Disabled by
// default, in which case that situation raises a RawInjectionError.
func WithRawInjection(allow bool) Option {
	return func(c *Container) { c.allowRawInjection = allow }
}

// WithTypeConverter replaces the default type converter.
func WithTypeConverter(tc TypeConverter) Option {
	return func(c *Container) { c.converter = tc }
}

// WithInstantiationStrategy replaces the default reflective invocation
// strategy.
func WithInstantiationStrategy(s InstantiationStrategy) Option {
	return func(c *Container) { c.strategy = s }
}

// WithValueResolver replaces the default declared-value resolver.
func WithValueResolver(vr ValueResolver) Option {
	return func(c *Container) { c.valueResolver = vr }
}

// WithDependencyResolver replaces the default by-type autowiring resolver.
func WithDependencyResolver(dr DependencyResolver) Option {
	return func(c *Container) { c.dependencyResolver = dr }
}

// WithPreInstantiationHook adds a hook run before candidate construction.
func WithPreInstantiationHook(h PreInstantiationHook) Option {
	return func(c *Container) { c.preHooks = append(c.preHooks, h) }
}

// WithEarlyReferenceHook adds a hook that may wrap early references.
func WithEarlyReferenceHook(h EarlyReferenceHook) Option {
	return func(c *Container) { c.earlyHooks = append(c.earlyHooks, h) }
}

// WithPostInitializationHook adds a hook run after initialization; it may
// replace the bean.
func WithPostInitializationHook(h PostInitializationHook) Option {
	return func(c *Container) { c.postHooks = append(c.postHooks, h) }
}

// WithProductHook adds a hook run on producer products before caching.
func WithProductHook(h ProductHook) Option {
	return func(c *Container) { c.productHooks = append(c.productHooks, h) }
}

// New creates an empty Container ready for registration.
func New(opts ...Option) *Container {
	c := &Container{
		definitions:        make(map[string]*Definition),
		singletons:         make(map[string]any),
		earlySingletons:    make(map[string]any),
		singletonFactories: make(map[string]singletonFactory),
		inCreation:         make(map[string]struct{}),
		dependents:         make(map[string]map[string]struct{}),
		allowCircular:      true,
		converter:          defaultConverter{},
		strategy:           reflectiveStrategy{},
		valueResolver:      defaultValueResolver,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a bean definition under the given name. Names are
// case-sensitive; a name may be registered once.
func (c *Container) Register(name string, def *Definition) error {
	if name == emptyString {
		return ErrNameEmpty
	}
	if def == nil {
		return ErrNilDefinition
	}
	if def.err != nil {
		return fmt.Errorf("definition for bean %q: %w", name, def.err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.definitions[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	c.definitions[name] = def
	return nil
}

// RegisterInstance registers a ready-made object as a completed singleton.
// Struct instances are normalized to pointers for consistent injection
// behaviour.
func (c *Container) RegisterInstance(name string, instance any) error {
	if name == emptyString {
		return ErrNameEmpty
	}
	if instance == nil {
		return ErrNilInstance
	}

	beanType := reflect.TypeOf(instance)
	if beanType.Kind() == reflect.Struct {
		ptr := reflect.New(beanType)
		ptr.Elem().Set(reflect.ValueOf(instance))
		instance = ptr.Interface()
		beanType = ptr.Type()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.definitions[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	if _, exists := c.singletons[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	c.definitions[name] = &Definition{
		Type:  beanType,
		Scope: ScopeSingleton,
		Mode:  ModeLenient,
		Args:  NewArgValues(),
	}
	c.addSingleton(name, instance)
	return nil
}

// Contains reports whether a definition or completed singleton exists for
// the name.
func (c *Container) Contains(name string) bool {
	name = strings.TrimPrefix(name, ProducerPrefix)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.definitions[name]; ok {
		return true
	}
	return c.containsSingleton(name)
}

// Get returns the bean registered under name, constructing it and its
// dependencies on demand. For Producer beans the product is returned;
// prefix the name with ProducerPrefix to obtain the producer itself.
func (c *Container) Get(name string) (any, error) {
	if name == emptyString {
		return nil, ErrNameEmpty
	}
	canonical := strings.TrimPrefix(name, ProducerPrefix)

	// Lock-free product fast path.
	if canonical == name {
		if cached, ok := c.products.Load(canonical); ok {
			return unwrapProduct(cached), nil
		}
	}

	// Completed-singleton fast path.
	c.mu.RLock()
	obj, done := c.singletons[canonical]
	c.mu.RUnlock()
	if done {
		if _, isProducer := obj.(Producer); !isProducer {
			if canonical != name {
				return nil, fmt.Errorf("%w: %q", ErrNotProducer, canonical)
			}
			return obj, nil
		}
		if canonical != name {
			return obj, nil
		}
		// Producer product not cached yet: fall through to a session.
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(name, nil)
}

// GetWithArgs constructs the bean with the given explicit arguments.
// Explicit arguments bypass declared values, autowiring and the cached
// plan, and require an exact parameter-count match. For a singleton they
// apply only if the bean has not been created yet.
func (c *Container) GetWithArgs(name string, args ...any) (any, error) {
	if name == emptyString {
		return nil, ErrNameEmpty
	}
	if len(args) == 0 {
		return c.Get(name)
	}
	canonical := strings.TrimPrefix(name, ProducerPrefix)

	c.mu.Lock()
	defer c.mu.Unlock()

	def, ok := c.definitions[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, canonical)
	}
	switch def.Scope {
	case ScopePrototype:
		obj, err := c.createBean(canonical, def, args, []string{canonical})
		if err != nil {
			return nil, err
		}
		return c.objectFor(name, canonical, obj)
	default:
		obj, err := c.createSingleton(canonical, nil, func() (any, error) {
			return c.createBean(canonical, def, args, []string{canonical})
		})
		if err != nil {
			return nil, err
		}
		return c.objectFor(name, canonical, obj)
	}
}

// MustGet is Get, panicking on error. Prefer Get in production code.
func (c *Container) MustGet(name string) any {
	obj, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return obj
}

// ResolveAs returns the bean registered under name cast to type T.
func ResolveAs[T any](c *Container, name string) (T, error) {
	var zero T
	obj, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("bean %q is %T, not the requested type", name, obj)
	}
	return typed, nil
}

// get resolves a name inside a construction session. The session holds
// the exclusive lock; chain carries the names currently being constructed
// on this call path, for cycle detection and error reporting.
func (c *Container) get(name string, chain []string) (any, error) {
	canonical := strings.TrimPrefix(name, ProducerPrefix)

	// Completed singleton or, for beans mid-construction, an early
	// reference produced by the registered accessor.
	obj, err := c.singleton(canonical, true)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		return c.objectFor(name, canonical, obj)
	}

	def, ok := c.definitions[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, canonical)
	}

	switch def.Scope {
	case ScopePrototype:
		for _, ancestor := range chain {
			if ancestor == canonical {
				return nil, &CircularDependencyError{
					Name:   canonical,
					Chain:  chain,
					Reason: "prototype cycle cannot be resolved",
				}
			}
		}
		obj, err := c.createBean(canonical, def, nil, chainWith(chain, canonical))
		if err != nil {
			return nil, err
		}
		return c.objectFor(name, canonical, obj)
	default:
		obj, err := c.createSingleton(canonical, chain, func() (any, error) {
			return c.createBean(canonical, def, nil, chainWith(chain, canonical))
		})
		if err != nil {
			return nil, err
		}
		return c.objectFor(name, canonical, obj)
	}
}

// objectFor maps a registered bean object to the object the request asked
// for, dereferencing producers to their products unless the producer
// itself was addressed.
func (c *Container) objectFor(requestedName, canonical string, obj any) (any, error) {
	producerRef := strings.HasPrefix(requestedName, ProducerPrefix)
	producer, isProducer := obj.(Producer)
	if producerRef {
		if !isProducer {
			return nil, fmt.Errorf("%w: %q", ErrNotProducer, canonical)
		}
		return obj, nil
	}
	if !isProducer {
		return obj, nil
	}
	if cached, ok := c.products.Load(canonical); ok {
		return unwrapProduct(cached), nil
	}
	return c.productFrom(producer, canonical)
}

// createBean builds one bean instance: pre-instantiation hooks first, then
// the full construction pipeline.
func (c *Container) createBean(name string, def *Definition, explicitArgs []any, chain []string) (any, error) {
	for _, hook := range c.preHooks {
		obj, err := hook(name, def)
		if err != nil {
			return nil, &ConstructionError{Name: name, Err: err}
		}
		if obj != nil {
			// Terminal short-circuit: normal construction is skipped.
			return obj, nil
		}
	}
	return c.doCreateBean(name, def, explicitArgs, chain)
}

// doCreateBean instantiates, early-exposes, populates and initializes a
// bean, then reconciles the exposed object with any early reference that
// was consumed while the bean was mid-construction.
func (c *Container) doCreateBean(name string, def *Definition, explicitArgs []any, chain []string) (any, error) {
	bean, err := c.createBeanInstance(name, def, explicitArgs, chain)
	if err != nil {
		return nil, err
	}

	earlyExposure := def.Scope == ScopeSingleton && c.allowCircular && c.isInCreation(name)
	if earlyExposure {
		c.addSingletonFactory(name, func() (any, error) {
			return c.earlyReference(name, bean)
		})
	}

	exposed := bean
	if err := c.populate(name, def, bean, chain); err != nil {
		return nil, err
	}
	exposed, err = c.initialize(name, exposed)
	if err != nil {
		return nil, err
	}

	if earlyExposure {
		earlyRef, err := c.singleton(name, false)
		if err != nil {
			return nil, err
		}
		if earlyRef != nil {
			if identical(exposed, bean) {
				// All consumers of the cycle see the same identity.
				exposed = earlyRef
			} else if !c.allowRawInjection {
				if deps := c.dependentsOf(name); len(deps) > 0 {
					return nil, &RawInjectionError{Name: name, Dependents: deps}
				}
			}
		}
	}
	return exposed, nil
}

// createBeanInstance produces the raw object, via constructor resolution
// when candidates exist and via direct allocation otherwise.
func (c *Container) createBeanInstance(name string, def *Definition, explicitArgs []any, chain []string) (any, error) {
	if len(def.Constructors) == 0 {
		if explicitArgs != nil || def.Args.Count() > 0 {
			return nil, &UnsatisfiedDependencyError{
				Name: name,
				Msg:  "arguments declared but no constructor registered",
			}
		}
		obj, err := c.strategy.Instantiate(def, name, nil, nil)
		if err != nil {
			return nil, &ConstructionError{Name: name, Err: err}
		}
		return obj, nil
	}

	ctor, args, err := c.resolveConstructor(name, def, explicitArgs, chain)
	if err != nil {
		return nil, err
	}
	obj, err := c.strategy.Instantiate(def, name, ctor, args)
	if err != nil {
		return nil, &ConstructionError{Name: name, Constructor: ctor.String(), Err: err}
	}
	return obj, nil
}

// earlyReference builds the object exposed to in-progress dependents of a
// cycle, applying the early-reference hooks exactly once.
func (c *Container) earlyReference(name string, bean any) (any, error) {
	exposed := bean
	for _, hook := range c.earlyHooks {
		out, err := hook(name, exposed)
		if err != nil {
			return nil, &ConstructionError{Name: name, Err: err}
		}
		if out != nil {
			exposed = out
		}
	}
	return exposed, nil
}

// initialize runs the Initializer callback and the post-initialization
// hooks, which may replace the bean.
func (c *Container) initialize(name string, bean any) (any, error) {
	if initr, ok := bean.(Initializer); ok {
		if err := initr.Initialize(); err != nil {
			return nil, fmt.Errorf("initializer for bean %q failed: %w", name, err)
		}
	}
	exposed := bean
	for _, hook := range c.postHooks {
		out, err := hook(name, exposed)
		if err != nil {
			return nil, &ConstructionError{Name: name, Err: err}
		}
		if out != nil {
			exposed = out
		}
	}
	return exposed, nil
}

// sessionLookup returns the Lookup handed to collaborators during the
// construction of requesting. Resolved names are recorded as dependencies
// of the requesting bean.
func (c *Container) sessionLookup(requesting string, chain []string) Lookup {
	return func(name string) (any, error) {
		obj, err := c.get(name, chain)
		if err != nil {
			return nil, err
		}
		if requesting != emptyString {
			c.registerDependent(strings.TrimPrefix(name, ProducerPrefix), requesting)
		}
		return obj, nil
	}
}

func (c *Container) resolveValue(raw any, lookup Lookup) (any, error) {
	return c.valueResolver(raw, lookup)
}

func (c *Container) definitionNames() []string {
	names := make([]string, 0, len(c.definitions))
	for name := range c.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func chainWith(chain []string, name string) []string {
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return append(next, name)
}

// identical reports reference identity between two bean objects, without
// panicking on uncomparable dynamic types.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Func, reflect.Map, reflect.UnsafePointer, reflect.Slice:
		if vb.Kind() != va.Kind() {
			return false
		}
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return false
}
