package beanforge

// Producer is a managed bean whose purpose is to build another object,
// the product. Get on the producer's name returns the product; prefix the
// name with ProducerPrefix to address the producer itself.
type Producer interface {
	// Product builds or returns the produced object. A nil product is
	// legitimate, e.g. during cyclic partial construction.
	Product() (any, error)

	// Shared reports whether the product is a shared singleton. Non-shared
	// products are rebuilt on every request and never cached.
	Shared() bool
}

// nullProduct marks a legitimately absent product in the cache, so a nil
// result is cached like any other.
type nullProductType struct{}

var nullProduct = nullProductType{}

func wrapProduct(obj any) any {
	if obj == nil {
		return nullProduct
	}
	return obj
}

func unwrapProduct(obj any) any {
	if obj == nullProduct {
		return nil
	}
	return obj
}

// productFrom returns the object a producer bean stands for. Shared
// products of registered singleton producers go through the product
// cache; the fast read path on c.products is lock-free, writes happen
// only here, inside the session lock.
func (c *Container) productFrom(factory Producer, name string) (any, error) {
	if factory.Shared() && c.containsSingleton(name) {
		if cached, ok := c.products.Load(name); ok {
			return unwrapProduct(cached), nil
		}
		object, err := c.produce(factory, name)
		if err != nil {
			return nil, err
		}
		// The product may have been cached in the meantime by a nested
		// request triggered from within Product itself.
		if cached, ok := c.products.Load(name); ok {
			return unwrapProduct(cached), nil
		}
		if object != nil {
			if c.isInCreation(name) {
				// Mid-construction: hand out the unprocessed product
				// without caching it yet.
				return object, nil
			}
			if err := c.beforeSingletonCreation(name, nil); err != nil {
				return nil, err
			}
			object, err = c.postProcessProduct(name, object)
			c.afterSingletonCreation(name)
			if err != nil {
				return nil, err
			}
		}
		if c.containsSingleton(name) {
			c.products.Store(name, wrapProduct(object))
		}
		return object, nil
	}

	object, err := c.produce(factory, name)
	if err != nil {
		return nil, err
	}
	if object != nil {
		return c.postProcessProduct(name, object)
	}
	return object, nil
}

// produce invokes the producer once. An empty result while the producer
// bean itself is still mid-construction means the product is not yet
// available, which must propagate instead of being cached as absent.
func (c *Container) produce(factory Producer, name string) (any, error) {
	object, err := factory.Product()
	if err != nil {
		return nil, &ConstructionError{Name: name, Err: err}
	}
	if object == nil && c.isInCreation(name) {
		return nil, &CircularDependencyError{
			Name:   name,
			Reason: "producer currently in creation returned no product",
		}
	}
	return object, nil
}

func (c *Container) postProcessProduct(name string, object any) (any, error) {
	for _, hook := range c.productHooks {
		out, err := hook(name, object)
		if err != nil {
			return nil, &ConstructionError{Name: name, Err: err}
		}
		if out != nil {
			object = out
		}
	}
	return object, nil
}
