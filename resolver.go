package beanforge

import (
	"fmt"
	"reflect"
)

// autowiredArgument marks a cached prepared-argument slot whose value came
// from dependency resolution and must be re-resolved on every use.
type autowiredArgument struct{}

// argumentsHolder carries the three forms of one candidate's bound
// arguments. Built fresh per candidate, discarded on rejection, promoted
// to the definition's cached plan on acceptance.
type argumentsHolder struct {
	rawArguments      []any
	arguments         []any
	preparedArguments []any
	resolveNecessary  bool
}

func newArgumentsHolder(size int) *argumentsHolder {
	return &argumentsHolder{
		rawArguments:      make([]any, size),
		arguments:         make([]any, size),
		preparedArguments: make([]any, size),
	}
}

func explicitArgumentsHolder(args []any) *argumentsHolder {
	return &argumentsHolder{rawArguments: args, arguments: args, preparedArguments: args}
}

// storeCache promotes this holder to the definition's cached plan. When
// any argument needs late re-resolution only the prepared form is stored;
// otherwise the converted arguments are cached verbatim.
func (h *argumentsHolder) storeCache(def *Definition, ctor *Constructor) {
	def.planMu.Lock()
	defer def.planMu.Unlock()
	def.resolvedConstructor = ctor
	def.argumentsResolved = true
	if h.resolveNecessary {
		def.preparedArgs = h.preparedArguments
		def.resolvedArgs = nil
	} else {
		def.resolvedArgs = h.arguments
		def.preparedArgs = nil
	}
}

// resolveConstructor selects a constructor for the definition and binds
// its arguments. Explicit args bypass scoring and caching and require an
// exact arity match. Without explicit args the definition's cached plan is
// reused when present; a fresh resolution stores its result back on the
// definition.
func (c *Container) resolveConstructor(name string, def *Definition, explicitArgs []any, chain []string) (*Constructor, []any, error) {
	var ctorToUse *Constructor
	var argsToUse []any

	if explicitArgs != nil {
		argsToUse = explicitArgs
	} else {
		var argsToResolve []any
		ctorToUse, argsToUse, argsToResolve = def.cachedPlan()
		if argsToResolve != nil {
			resolved, err := c.resolvePreparedArguments(name, ctorToUse, argsToResolve, chain)
			if err != nil {
				return nil, nil, err
			}
			argsToUse = resolved
		}
	}

	if ctorToUse != nil {
		return ctorToUse, argsToUse, nil
	}

	var resolvedValues *ArgValues
	minArgCount := 0
	if explicitArgs != nil {
		minArgCount = len(explicitArgs)
	} else {
		resolvedValues = NewArgValues()
		var err error
		minArgCount, err = c.resolveDeclaredArguments(name, def.Args, resolvedValues, chain)
		if err != nil {
			return nil, nil, err
		}
	}

	candidates := make([]*Constructor, len(def.Constructors))
	copy(candidates, def.Constructors)
	sortConstructors(candidates)

	minWeight := weightIncompatible
	var holderToUse *argumentsHolder
	var ambiguous []*Constructor
	var causes []error

	for _, candidate := range candidates {
		paramTypes := candidate.params

		if ctorToUse != nil && len(argsToUse) > len(paramTypes) {
			// Already found a greedy constructor that can be satisfied;
			// all remaining candidates are strictly less greedy.
			break
		}
		if len(paramTypes) < minArgCount {
			continue
		}

		var holder *argumentsHolder
		if resolvedValues != nil {
			bound, err := c.createArgumentArray(name, def, resolvedValues, candidate, chain)
			if err != nil {
				// Candidate is ineligible, not fatal. Keep the cause and
				// try the next one.
				causes = append(causes, err)
				continue
			}
			holder = bound
		} else {
			if len(paramTypes) != len(explicitArgs) {
				continue
			}
			holder = explicitArgumentsHolder(explicitArgs)
		}

		var weight int
		if def.Mode == ModeLenient {
			weight = holder.typeDifferenceWeight(paramTypes)
		} else {
			weight = holder.assignabilityWeight(paramTypes)
		}
		if weight < minWeight {
			ctorToUse = candidate
			holderToUse = holder
			argsToUse = holder.arguments
			minWeight = weight
			ambiguous = nil
		} else if ctorToUse != nil && weight == minWeight {
			if ambiguous == nil {
				ambiguous = append(ambiguous, ctorToUse)
			}
			ambiguous = append(ambiguous, candidate)
		}
	}

	if ctorToUse == nil {
		if len(causes) > 0 {
			last := causes[len(causes)-1]
			if ude, ok := last.(*UnsatisfiedDependencyError); ok {
				ude.Suppressed = causes[:len(causes)-1]
				return nil, nil, ude
			}
			return nil, nil, &UnsatisfiedDependencyError{
				Name:       name,
				Err:        last,
				Suppressed: causes[:len(causes)-1],
			}
		}
		return nil, nil, &UnsatisfiedDependencyError{
			Name: name,
			Msg:  "could not resolve matching constructor (hint: specify index/type/name arguments for simple parameters to avoid type ambiguities)",
		}
	}
	if len(ambiguous) > 1 && def.Mode == ModeStrict {
		names := make([]string, len(ambiguous))
		for i, ct := range ambiguous {
			names[i] = ct.String()
		}
		return nil, nil, &AmbiguousConstructorError{Name: name, Candidates: names}
	}

	if explicitArgs == nil {
		holderToUse.storeCache(def, ctorToUse)
	}
	return ctorToUse, argsToUse, nil
}

// resolveDeclaredArguments copies the definition's declared values into
// resolvedValues, passing each through the value resolver, and returns the
// minimum parameter count a candidate must have: the larger of the
// declared value count and one past the highest declared index.
func (c *Container) resolveDeclaredArguments(name string, declared *ArgValues, resolvedValues *ArgValues, chain []string) (int, error) {
	minArgCount := declared.Count()
	if highest := declared.maxIndex(); highest+1 > minArgCount {
		minArgCount = highest + 1
	}

	lookup := c.sessionLookup(name, chain)

	for index, vh := range declared.indexed {
		resolved, err := c.resolveValue(vh.Value, lookup)
		if err != nil {
			return 0, &UnsatisfiedDependencyError{Name: name, Err: err}
		}
		if err := resolvedValues.AddIndexed(index, &ValueHolder{
			Value:  resolved,
			Type:   vh.Type,
			Name:   vh.Name,
			source: vh,
		}); err != nil {
			return 0, err
		}
	}
	for _, vh := range declared.generic {
		resolved, err := c.resolveValue(vh.Value, lookup)
		if err != nil {
			return 0, &UnsatisfiedDependencyError{Name: name, Err: err}
		}
		resolvedValues.AddGeneric(&ValueHolder{
			Value:  resolved,
			Type:   vh.Type,
			Name:   vh.Name,
			source: vh,
		})
	}
	return minArgCount, nil
}

// createArgumentArray binds one candidate's parameters against the
// resolved declared values, converting each value to the parameter type.
// Parameters without a declared match are autowired when permitted. Any
// failure makes the candidate ineligible and is returned as the cause.
func (c *Container) createArgumentArray(name string, def *Definition, resolvedValues *ArgValues, candidate *Constructor, chain []string) (*argumentsHolder, error) {
	paramTypes := candidate.params
	args := newArgumentsHolder(len(paramTypes))
	used := make(map[*ValueHolder]struct{}, len(paramTypes))
	var autowiredNames []string

	for i, paramType := range paramTypes {
		paramName := candidate.paramName(i)

		vh := resolvedValues.argumentValue(i, paramType, paramName, used)
		// No direct match: when not autowiring, or when the declared value
		// count already equals the arity, fall back to the next untyped
		// generic value; it may still fit after conversion.
		if vh == nil && (!def.Autowire || len(paramTypes) == resolvedValues.Count()) {
			vh = resolvedValues.genericValue(nil, emptyString, used)
		}

		if vh != nil {
			used[vh] = struct{}{}
			original := vh.Value
			converted, err := c.converter.Convert(original, paramType)
			if err != nil {
				return nil, &UnsatisfiedDependencyError{
					Name: name,
					Msg: fmt.Sprintf("could not convert argument value for parameter %d of %s",
						i, candidate.String()),
					Err: err,
				}
			}
			args.resolveNecessary = true
			if vh.source != nil {
				args.preparedArguments[i] = vh.source.Value
			} else {
				args.preparedArguments[i] = original
			}
			args.arguments[i] = converted
			args.rawArguments[i] = original
			continue
		}

		if !def.Autowire {
			return nil, &UnsatisfiedDependencyError{
				Name: name,
				Msg: fmt.Sprintf("ambiguous argument values for parameter %d of type %v in %s; "+
					"did you specify the correct bean references as arguments?",
					i, paramType, candidate.String()),
			}
		}

		value, matched, err := c.resolveAutowired(paramType, name, nil, chain)
		if err != nil {
			return nil, &UnsatisfiedDependencyError{
				Name: name,
				Msg: fmt.Sprintf("could not autowire parameter %d of type %v in %s",
					i, paramType, candidate.String()),
				Err: err,
			}
		}
		args.rawArguments[i] = value
		args.arguments[i] = value
		args.preparedArguments[i] = autowiredArgument{}
		args.resolveNecessary = true
		if matched != emptyString {
			autowiredNames = append(autowiredNames, matched)
		}
	}

	for _, autowired := range autowiredNames {
		c.registerDependent(autowired, name)
	}
	return args, nil
}

// resolvePreparedArguments re-resolves a cached prepared plan for one
// construction request. The cache itself is never mutated here.
func (c *Container) resolvePreparedArguments(name string, ctor *Constructor, argsToResolve []any, chain []string) ([]any, error) {
	lookup := c.sessionLookup(name, chain)
	resolved := make([]any, len(argsToResolve))
	for i, argValue := range argsToResolve {
		paramType := ctor.params[i]
		var err error
		switch argValue.(type) {
		case autowiredArgument:
			var matched string
			argValue, matched, err = c.resolveAutowired(paramType, name, nil, chain)
			if err != nil {
				return nil, &UnsatisfiedDependencyError{Name: name, Err: err}
			}
			if matched != emptyString {
				c.registerDependent(matched, name)
			}
		default:
			argValue, err = c.resolveValue(argValue, lookup)
			if err != nil {
				return nil, &UnsatisfiedDependencyError{Name: name, Err: err}
			}
		}
		converted, err := c.converter.Convert(argValue, paramType)
		if err != nil {
			return nil, &UnsatisfiedDependencyError{
				Name: name,
				Msg:  fmt.Sprintf("could not convert prepared argument %d for %s", i, ctor.String()),
				Err:  err,
			}
		}
		resolved[i] = converted
	}
	return resolved, nil
}

// resolveAutowired locates a value for an autowired parameter, through the
// custom dependency resolver when installed, otherwise by scanning the
// registered definitions for a uniquely matching bean type.
func (c *Container) resolveAutowired(required reflect.Type, requesting string, exclude map[string]struct{}, chain []string) (any, string, error) {
	lookup := c.sessionLookup(requesting, chain)
	if c.dependencyResolver != nil {
		return c.dependencyResolver(required, requesting, exclude, lookup)
	}
	matched, err := c.findAutowireCandidate(required, requesting, exclude)
	if err != nil {
		return nil, emptyString, err
	}
	value, err := lookup(matched)
	if err != nil {
		return nil, emptyString, err
	}
	return value, matched, nil
}

func (c *Container) findAutowireCandidate(required reflect.Type, requesting string, exclude map[string]struct{}) (string, error) {
	var matches []string
	for _, name := range c.definitionNames() {
		if name == requesting {
			continue
		}
		if _, skip := exclude[name]; skip {
			continue
		}
		def := c.definitions[name]
		if def.Type == nil {
			continue
		}
		if def.Type.AssignableTo(required) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return emptyString, fmt.Errorf("%w: no bean of type %v available for autowiring", ErrNotFound, required)
	case 1:
		return matches[0], nil
	default:
		return emptyString, fmt.Errorf("no unique bean of type %v: found %d candidates %v",
			required, len(matches), matches)
	}
}
