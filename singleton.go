package beanforge

import (
	"sort"
)

// Singleton lifecycle management. Every state transition here runs inside
// a construction session, which holds the container's exclusive lock, so
// none of these methods locks on its own. Entry states per name:
// absent -> in creation -> optionally early-exposed -> fully initialized
// -> optionally removed.

// singletonFactory is the lazy accessor registered for a bean under
// construction. Invoking it produces the early reference.
type singletonFactory func() (any, error)

// singleton returns the registered object for name, consulting the
// completed registry first, then, for beans currently in creation, the
// cached early reference. With allowEarly set it will invoke a pending
// early-reference accessor; the produced reference is cached so every
// consumer within the cycle sees the same identity.
func (c *Container) singleton(name string, allowEarly bool) (any, error) {
	if obj, ok := c.singletons[name]; ok {
		return obj, nil
	}
	if !c.isInCreation(name) {
		return nil, nil
	}
	if obj, ok := c.earlySingletons[name]; ok {
		return obj, nil
	}
	if !allowEarly {
		return nil, nil
	}
	factory, ok := c.singletonFactories[name]
	if !ok {
		return nil, nil
	}
	obj, err := factory()
	if err != nil {
		return nil, err
	}
	c.earlySingletons[name] = obj
	delete(c.singletonFactories, name)
	return obj, nil
}

// createSingleton runs create for name with in-creation marking, then
// promotes the result to the completed registry. A name already marked in
// creation means the call chain looped back without an early reference to
// break it, which is fatal.
func (c *Container) createSingleton(name string, chain []string, create func() (any, error)) (any, error) {
	if obj, ok := c.singletons[name]; ok {
		return obj, nil
	}
	if err := c.beforeSingletonCreation(name, chain); err != nil {
		return nil, err
	}
	obj, err := create()
	c.afterSingletonCreation(name)
	if err != nil {
		// The singleton may have appeared implicitly in the meantime, e.g.
		// through a nested request that completed it first.
		if existing, ok := c.singletons[name]; ok {
			return existing, nil
		}
		c.abandonFailedSingleton(name)
		return nil, err
	}
	c.addSingleton(name, obj)
	return obj, nil
}

// abandonFailedSingleton drops every trace a failed creation attempt left
// for the name: the early-exposure accessor and reference, and dependent
// records in both directions. Without this the name would linger with an
// accessor registered but neither in creation nor initialized, keeping the
// abandoned raw object reachable.
func (c *Container) abandonFailedSingleton(name string) {
	delete(c.singletonFactories, name)
	delete(c.earlySingletons, name)
	delete(c.dependents, name)
	for _, set := range c.dependents {
		delete(set, name)
	}
}

func (c *Container) beforeSingletonCreation(name string, chain []string) error {
	if _, creating := c.inCreation[name]; creating {
		return &CircularDependencyError{Name: name, Chain: chain}
	}
	c.inCreation[name] = struct{}{}
	return nil
}

func (c *Container) afterSingletonCreation(name string) {
	delete(c.inCreation, name)
}

func (c *Container) isInCreation(name string) bool {
	_, creating := c.inCreation[name]
	return creating
}

// addSingletonFactory registers the early-reference accessor for a bean
// that has just been instantiated but not yet initialized.
func (c *Container) addSingletonFactory(name string, factory singletonFactory) {
	if _, done := c.singletons[name]; done {
		return
	}
	c.singletonFactories[name] = factory
	delete(c.earlySingletons, name)
}

// addSingleton promotes a fully initialized object and drops any
// early-exposure state for the name.
func (c *Container) addSingleton(name string, obj any) {
	c.singletons[name] = obj
	delete(c.singletonFactories, name)
	delete(c.earlySingletons, name)
}

func (c *Container) containsSingleton(name string) bool {
	_, ok := c.singletons[name]
	return ok
}

// registerDependent records that dependent holds a reference to the bean
// named dependency. Consulted by the raw-identity reconciliation.
func (c *Container) registerDependent(dependency, dependent string) {
	if dependency == dependent {
		return
	}
	set, ok := c.dependents[dependency]
	if !ok {
		set = make(map[string]struct{})
		c.dependents[dependency] = set
	}
	set[dependent] = struct{}{}
}

func (c *Container) dependentsOf(name string) []string {
	set := c.dependents[name]
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for dep := range set {
		names = append(names, dep)
	}
	sort.Strings(names)
	return names
}

// removeSingleton clears every registry trace of name, including the
// product cache entry, in one step.
func (c *Container) removeSingleton(name string) {
	delete(c.singletons, name)
	delete(c.earlySingletons, name)
	delete(c.singletonFactories, name)
	delete(c.dependents, name)
	c.products.Delete(name)
}

// RemoveSingleton drops the singleton registered under name together with
// its cached producer product, if any. The definition stays registered, so
// a subsequent Get rebuilds the bean.
func (c *Container) RemoveSingleton(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeSingleton(name)
}

// ClearSingletons removes every completed singleton and cached product.
// Definitions stay registered. Intended for container teardown and tests.
func (c *Container) ClearSingletons() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.singletons {
		delete(c.singletons, name)
	}
	for name := range c.earlySingletons {
		delete(c.earlySingletons, name)
	}
	for name := range c.singletonFactories {
		delete(c.singletonFactories, name)
	}
	for name := range c.dependents {
		delete(c.dependents, name)
	}
	c.products.Range(func(key, _ any) bool {
		c.products.Delete(key)
		return true
	})
}

// SingletonNames returns the names of all completed singletons, sorted.
func (c *Container) SingletonNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.singletons))
	for name := range c.singletons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DependentsOf returns the names of beans recorded as holding a reference
// to the named bean, sorted.
func (c *Container) DependentsOf(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dependentsOf(name)
}
