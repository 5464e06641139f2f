package beanforge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// nodeX takes nodeY through its constructor; nodeY points back at nodeX
// through a declared property. Resolvable only when nodeY is requested
// first: nodeY gets instantiated, exposes an early reference, and nodeX is
// built against it during nodeY's population.
type nodeX struct{ Y *nodeY }

type nodeY struct{ X *nodeX }

func registerCycle(c *Container) {
	def := NewDefinition(TypeOf[nodeX](),
		WithConstructor("NewNodeX", func(y *nodeY) *nodeX { return &nodeX{Y: y} }),
	)
	if err := c.Register("x", def); err != nil {
		panic(err)
	}
	def = NewDefinition(TypeOf[nodeY](),
		WithProperty("X", Ref{Name: "x"}),
	)
	if err := c.Register("y", def); err != nil {
		panic(err)
	}
}

func TestCycle_ConstructorPlusPropertyResolves(t *testing.T) {
	t.Parallel()
	c := New()
	registerCycle(c)

	obj, err := c.Get("y")
	require.NoError(t, err)
	y := obj.(*nodeY)

	objX, err := c.Get("x")
	require.NoError(t, err)
	x := objX.(*nodeX)

	// Both sides of the cycle hold the final identities.
	require.Same(t, x, y.X)
	require.Same(t, y, x.Y)
}

func TestCycle_ConstructorCycleFails(t *testing.T) {
	t.Parallel()
	c := New()
	registerCycle(c)

	// Requesting x first puts the cycle through constructor injection on
	// both sides: x has no instance to expose early while its constructor
	// arguments are being resolved.
	_, err := c.Get("x")
	require.Error(t, err)
	var cde *CircularDependencyError
	require.ErrorAs(t, err, &cde)
	require.Equal(t, "x", cde.Name)
}

func TestCycle_DisabledCircularReferencesFails(t *testing.T) {
	t.Parallel()
	c := New(WithCircularReferences(false))
	registerCycle(c)

	_, err := c.Get("y")
	require.Error(t, err)
	var cde *CircularDependencyError
	require.ErrorAs(t, err, &cde)
}

func TestCycle_EarlyReferenceHookRunsOnceAndWins(t *testing.T) {
	t.Parallel()
	hookCalls := 0
	wrapped := &nodeY{}

	c := New(WithEarlyReferenceHook(func(name string, obj any) (any, error) {
		if name == "y" {
			hookCalls++
			return wrapped, nil
		}
		return nil, nil
	}))
	registerCycle(c)

	obj, err := c.Get("y")
	require.NoError(t, err)
	require.Equal(t, 1, hookCalls)

	// The wrapped early reference is both what the in-cycle consumer got
	// and what ends up registered as the singleton.
	require.Same(t, wrapped, obj)
	objX, err := c.Get("x")
	require.NoError(t, err)
	require.Same(t, wrapped, objX.(*nodeX).Y)
}

func TestCycle_RawInjectionDetected(t *testing.T) {
	t.Parallel()
	wrapper := &nodeY{}

	// The post-initialization hook replaces y after x already consumed y's
	// raw early reference; x now holds a stale identity.
	c := New(WithPostInitializationHook(func(name string, obj any) (any, error) {
		if name == "y" {
			return wrapper, nil
		}
		return nil, nil
	}))
	registerCycle(c)

	_, err := c.Get("y")
	require.Error(t, err)
	var rie *RawInjectionError
	require.ErrorAs(t, err, &rie)
	require.Equal(t, "y", rie.Name)
	require.Contains(t, rie.Dependents, "x")
}

func TestCycle_RawInjectionTolerated(t *testing.T) {
	t.Parallel()
	wrapper := &nodeY{}

	c := New(
		WithRawInjection(true),
		WithPostInitializationHook(func(name string, obj any) (any, error) {
			if name == "y" {
				return wrapper, nil
			}
			return nil, nil
		}),
	)
	registerCycle(c)

	obj, err := c.Get("y")
	require.NoError(t, err)
	require.Same(t, wrapper, obj)

	// x keeps the raw early reference, not the wrapper.
	objX, err := c.Get("x")
	require.NoError(t, err)
	x := objX.(*nodeX)
	require.NotNil(t, x.Y)
	require.NotSame(t, wrapper, x.Y)
}

// --- Prototype cycles ---

type protoA struct{ B *protoB }

type protoB struct{ A *protoA }

func TestCycle_PrototypesNeverResolve(t *testing.T) {
	t.Parallel()
	c := New()

	require.NoError(t, c.Register("a", NewDefinition(TypeOf[protoA](),
		WithScope(ScopePrototype),
		WithProperty("B", Ref{Name: "b"}),
	)))
	require.NoError(t, c.Register("b", NewDefinition(TypeOf[protoB](),
		WithScope(ScopePrototype),
		WithProperty("A", Ref{Name: "a"}),
	)))

	_, err := c.Get("a")
	require.Error(t, err)
	var cde *CircularDependencyError
	require.ErrorAs(t, err, &cde)
	require.Equal(t, "a", cde.Name)
	require.Equal(t, []string{"a", "b"}, cde.Chain)
}

func TestCycle_SelfReferencingPrototype(t *testing.T) {
	t.Parallel()
	c := New()

	require.NoError(t, c.Register("a", NewDefinition(TypeOf[protoA](),
		WithScope(ScopePrototype),
		WithProperty("B", Ref{Name: "a"}),
	)))

	_, err := c.Get("a")
	require.Error(t, err)
	var cde *CircularDependencyError
	require.ErrorAs(t, err, &cde)
}

func TestFailedCreationLeavesNoEarlyState(t *testing.T) {
	t.Parallel()
	c := New()
	registerCycle(c)

	// The constructor-side entry fails; along the way y was instantiated
	// and registered an early-reference accessor that must not survive.
	_, err := c.Get("x")
	require.Error(t, err)

	c.mu.RLock()
	require.Empty(t, c.singletonFactories)
	require.Empty(t, c.earlySingletons)
	require.Empty(t, c.inCreation)
	require.Empty(t, c.dependents)
	c.mu.RUnlock()
	require.Empty(t, c.SingletonNames())

	// The registry is clean enough for the property-side entry to still
	// resolve the cycle afterwards.
	obj, err := c.Get("y")
	require.NoError(t, err)
	y := obj.(*nodeY)
	objX, err := c.Get("x")
	require.NoError(t, err)
	require.Same(t, objX, y.X)
}

// --- Registry bookkeeping ---

func TestDependentsBookkeeping(t *testing.T) {
	t.Parallel()
	c := New()
	registerCycle(c)

	_, err := c.Get("y")
	require.NoError(t, err)

	require.Contains(t, c.DependentsOf("y"), "x")
	require.Contains(t, c.DependentsOf("x"), "y")

	c.RemoveSingleton("y")
	require.Empty(t, c.DependentsOf("y"))
}

func TestSingletonNames_Sorted(t *testing.T) {
	t.Parallel()
	c := New()
	require.NoError(t, c.RegisterInstance("zeta", &Logger{}))
	require.NoError(t, c.RegisterInstance("alpha", &Logger{}))
	require.NoError(t, c.RegisterInstance("mike", &Logger{}))

	require.Equal(t, []string{"alpha", "mike", "zeta"}, c.SingletonNames())
}

func TestFailedSingletonIsRetriable(t *testing.T) {
	t.Parallel()
	c := New()

	attempts := 0
	require.NoError(t, c.Register("flaky", NewDefinition(TypeOf[Logger](),
		WithConstructor("NewLogger", func() (*Logger, error) {
			attempts++
			if attempts == 1 {
				return nil, errTestBoom
			}
			return &Logger{}, nil
		}),
	)))

	_, err := c.Get("flaky")
	require.Error(t, err)

	obj, err := c.Get("flaky")
	require.NoError(t, err)
	require.NotNil(t, obj)
	require.Equal(t, 2, attempts)
}
