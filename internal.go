package beanforge

import (
	"fmt"
	"reflect"
	"strings"
)

// Property population and tag-driven field injection. Both run inside a
// construction session, after instantiation and before Initialize.

// populate applies the definition's declared properties to the bean and
// then injects every field carrying the inject tag.
func (c *Container) populate(name string, def *Definition, bean any, chain []string) error {
	lookup := c.sessionLookup(name, chain)

	for _, prop := range def.Properties {
		value, err := c.resolveValue(prop.Value, lookup)
		if err != nil {
			return fmt.Errorf("resolving property %q of bean %q: %w", prop.Name, name, err)
		}
		if err := c.setField(bean, prop.Name, value); err != nil {
			return fmt.Errorf("populating bean %q: %w", name, err)
		}
	}
	return c.injectTagged(name, bean, lookup)
}

// setField assigns value to the named exported field of a pointer-to-struct
// bean, converting it to the field type first.
func (c *Container) setField(bean any, fieldName string, value any) error {
	rv := reflect.ValueOf(bean)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cannot set property %q on non-struct bean of type %T", fieldName, bean)
	}
	field := rv.Elem().FieldByName(fieldName)
	if !field.IsValid() {
		return fmt.Errorf("no field %q on type %v", fieldName, rv.Elem().Type())
	}
	if !field.CanSet() {
		return fmt.Errorf("field %q on type %v is not settable", fieldName, rv.Elem().Type())
	}
	return c.assignField(field, value)
}

// injectTagged walks the bean's exported fields and fills every one tagged
// with the inject tag from the container, resolving each named bean through
// the session lookup.
func (c *Container) injectTagged(name string, bean any, lookup Lookup) error {
	rv := reflect.ValueOf(bean)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	elem := rv.Elem()
	elemType := elem.Type()

	for i := 0; i < elemType.NumField(); i++ {
		structField := elemType.Field(i)
		beanName, ok := structField.Tag.Lookup(string(inject))
		if !ok {
			continue
		}
		beanName = strings.TrimSpace(beanName)
		if beanName == emptyString {
			return fmt.Errorf("bean %q: empty %s tag on field %q", name, inject, structField.Name)
		}
		field := elem.Field(i)
		if !field.CanSet() {
			return fmt.Errorf("bean %q: %s tag on unexported field %q", name, inject, structField.Name)
		}
		dependency, err := lookup(beanName)
		if err != nil {
			return fmt.Errorf("injecting %q into field %q of bean %q: %w", beanName, structField.Name, name, err)
		}
		if err := c.assignField(field, dependency); err != nil {
			return fmt.Errorf("injecting %q into field %q of bean %q: %w", beanName, structField.Name, name, err)
		}
	}
	return nil
}

// assignField converts value to the field's type and sets it. A nil value
// leaves the field at its zero value.
func (c *Container) assignField(field reflect.Value, value any) error {
	converted, err := c.converter.Convert(value, field.Type())
	if err != nil {
		return err
	}
	if converted == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}
