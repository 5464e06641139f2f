package beanforge

import (
	"fmt"
	"go/token"
	"reflect"
	"sort"
	"strings"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Constructor is one candidate construction procedure for a definition:
// a function returning (T) or (T, error). Candidates compete during
// resolution; ordering and scoring decide which one builds the bean.
type Constructor struct {
	Name       string
	Fn         any
	ParamNames []string

	fn     reflect.Value
	params []reflect.Type
}

func newConstructor(name string, fn any, paramNames []string) (*Constructor, error) {
	if name == emptyString {
		return nil, fmt.Errorf("constructor name is empty")
	}
	val := reflect.ValueOf(fn)
	if !val.IsValid() || val.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor %q must be a function", name)
	}
	typ := val.Type()
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return nil, fmt.Errorf("constructor %q must return (T) or (T, error)", name)
	}
	if typ.NumOut() == 2 && !typ.Out(1).Implements(errType) {
		return nil, fmt.Errorf("constructor %q: second return value must implement error", name)
	}
	if len(paramNames) > 0 && len(paramNames) != typ.NumIn() {
		return nil, fmt.Errorf("constructor %q: %d parameter names for %d parameters",
			name, len(paramNames), typ.NumIn())
	}
	params := make([]reflect.Type, typ.NumIn())
	for i := range params {
		params[i] = typ.In(i)
	}
	return &Constructor{
		Name:       name,
		Fn:         fn,
		ParamNames: paramNames,
		fn:         val,
		params:     params,
	}, nil
}

// exported reports the candidate's accessibility, derived from its
// registered name.
func (ct *Constructor) exported() bool {
	return token.IsExported(ct.Name)
}

func (ct *Constructor) paramName(i int) string {
	if i < len(ct.ParamNames) {
		return ct.ParamNames[i]
	}
	return emptyString
}

func (ct *Constructor) String() string {
	names := make([]string, len(ct.params))
	for i, p := range ct.params {
		names[i] = p.String()
	}
	return ct.Name + "(" + strings.Join(names, ", ") + ")"
}

// sortConstructors orders candidates by accessibility descending, then
// parameter count descending. The scan in resolveConstructor relies on
// this ordering for its greedy early exit.
func sortConstructors(ctors []*Constructor) {
	sort.SliceStable(ctors, func(i, j int) bool {
		ei, ej := ctors[i].exported(), ctors[j].exported()
		if ei != ej {
			return ei
		}
		return len(ctors[i].params) > len(ctors[j].params)
	})
}
