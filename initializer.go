package beanforge

// Initializer is an optional interface that a bean may implement to perform
// additional initialization after its properties have been populated.
//
// Beans implementing this interface must define Initialize() error. The
// container calls Initialize() during construction, after property
// population and before post-initialization hooks. If Initialize returns an
// error, construction of the bean fails with that error.
//
// Note: This interface is intentionally defined with no references to
// internal container types to avoid introducing cyclic dependencies when
// implemented by beans in other modules/packages.
type Initializer interface {
	Initialize() error
}
