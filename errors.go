package beanforge

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	ErrNameEmpty         = errors.New("bean name is empty")
	ErrNilDefinition     = errors.New("definition is nil")
	ErrNilInstance       = errors.New("instance is nil")
	ErrAlreadyRegistered = errors.New("bean already registered")
	ErrNotFound          = errors.New("bean not found")
	ErrNotProducer       = errors.New("bean is not a producer")
)

// UnsatisfiedDependencyError reports that no candidate constructor could be
// bound for a bean, or that a required argument could not be resolved or
// converted. Err carries the last (most specific) per-candidate cause;
// Suppressed carries the remaining ones.
type UnsatisfiedDependencyError struct {
	Name       string
	Msg        string
	Err        error
	Suppressed []error
}

func (e *UnsatisfiedDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("unsatisfied dependency for bean ")
	b.WriteString(strconv.Quote(e.Name))
	if e.Msg != emptyString {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UnsatisfiedDependencyError) Unwrap() error { return e.Err }

// AmbiguousConstructorError reports that two or more candidates tied at the
// best type-distance score under strict resolution. Candidates holds the
// full tied set.
type AmbiguousConstructorError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousConstructorError) Error() string {
	return fmt.Sprintf("ambiguous constructor matches for bean %q: [%s]",
		e.Name, strings.Join(e.Candidates, ", "))
}

// CircularDependencyError reports an unresolvable construction cycle:
// a singleton cycle while circular resolution is disabled, a constructor
// cycle, a prototype cycle, or a producer whose product is requested while
// the producer is still mid-construction.
type CircularDependencyError struct {
	Name   string
	Chain  []string
	Reason string
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("bean ")
	b.WriteString(strconv.Quote(e.Name))
	b.WriteString(" is currently in creation")
	if len(e.Chain) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Chain, pathSep))
		b.WriteString(pathSep)
		b.WriteString(e.Name)
	}
	if e.Reason != emptyString {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// RawInjectionError reports that the raw identity of a bean was handed to
// dependents during circular resolution but initialization then replaced
// the bean with a wrapped object, so those dependents hold a stale
// reference. Tolerated only via WithRawInjection.
type RawInjectionError struct {
	Name       string
	Dependents []string
}

func (e *RawInjectionError) Error() string {
	return fmt.Sprintf("bean %q has been injected into other beans [%s] in its raw version "+
		"as part of a circular reference, but has eventually been wrapped; "+
		"those beans do not hold the final version of the bean",
		e.Name, strings.Join(e.Dependents, ", "))
}

// ConstructionError wraps a failure raised by the instantiation strategy or
// the chosen constructor itself. Never retried.
type ConstructionError struct {
	Name        string
	Constructor string
	Err         error
}

func (e *ConstructionError) Error() string {
	if e.Constructor != emptyString {
		return fmt.Sprintf("construction of bean %q via %s failed: %v", e.Name, e.Constructor, e.Err)
	}
	return fmt.Sprintf("construction of bean %q failed: %v", e.Name, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// TypeMismatchError reports a value that could not be converted to a
// required type.
type TypeMismatchError struct {
	Value  any
	Target reflect.Type
	Err    error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("cannot convert value of type %T to required type %v", e.Value, e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }
