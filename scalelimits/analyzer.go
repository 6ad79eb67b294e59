// Package scalelimits computes the scale factor a function run's default
// resource limits are multiplied by, based on how large the
// query-relevant parts of the input document are. See spec.md §4.C.
package scalelimits

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const (
	// MinScaleFactor is the floor every analysis clamps to.
	MinScaleFactor = 1.0
	// MaxScaleFactor is the ceiling every analysis clamps to.
	MaxScaleFactor = 10.0

	directiveName = "scaleLimits"
	argumentName  = "rate"
)

// ParseError wraps a schema or query parse failure with source-location
// context, per spec.md §4.C's "Failure" clause.
type ParseError struct {
	Source string // "schema" or "query"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parse error: %s", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Analyze walks input along the shape of query (a single GraphQL
// operation validated against schema) and returns a scale factor clamped
// to [MinScaleFactor, MaxScaleFactor].
func Analyze(schemaSDL, querySrc string, input any) (float64, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL})
	if err != nil {
		return 0, &ParseError{Source: "schema", Err: err}
	}

	doc, queryErrs := gqlparser.LoadQuery(schema, querySrc)
	if len(queryErrs) > 0 {
		return 0, &ParseError{Source: "query", Err: queryErrs}
	}
	if len(doc.Operations) == 0 {
		return 0, &ParseError{Source: "query", Err: fmt.Errorf("no operations in query document")}
	}

	a := &analyzer{
		doc:        doc,
		valueStack: [][]any{{input}},
		rates:      map[string]map[int]float64{},
	}
	if err := a.walk(doc.Operations[0].SelectionSet); err != nil {
		return 0, err
	}
	return a.finalScale(), nil
}

type analyzer struct {
	doc        *ast.QueryDocument
	valueStack [][]any
	pathStack  []string
	rates      map[string]map[int]float64
}

func (a *analyzer) walk(set ast.SelectionSet) error {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			if err := a.visitField(s); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			frag := a.doc.Fragments.ForName(s.Name)
			if frag == nil {
				return fmt.Errorf("scalelimits: unresolved fragment %q", s.Name)
			}
			if err := a.walk(frag.SelectionSet); err != nil {
				return err
			}
		case *ast.InlineFragment:
			if err := a.walk(s.SelectionSet); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *analyzer) visitField(f *ast.Field) error {
	responseKey := f.Alias
	if responseKey == "" {
		responseKey = f.Name
	}
	a.pathStack = append(a.pathStack, responseKey)
	defer func() { a.pathStack = a.pathStack[:len(a.pathStack)-1] }()

	rate, hasRate, err := rateForField(f.Definition)
	if err != nil {
		return err
	}

	parents := a.valueStack[len(a.valueStack)-1]
	nested := make([]any, 0, len(parents))

	pathKey := strings.Join(a.pathStack, "\x1f")

	for idx, parent := range parents {
		child, hasChild := lookupChild(parent, f.Name)

		if hasRate {
			length := valueLength(child, hasChild)
			contribution := float64(length) * rate

			group := a.rates[pathKey]
			if group == nil {
				group = map[int]float64{}
				a.rates[pathKey] = group
			}
			if contribution > group[idx] {
				group[idx] = contribution
			}
		}

		switch v := child.(type) {
		case []any:
			nested = append(nested, v...)
		default:
			if hasChild && child != nil {
				nested = append(nested, child)
			}
		}
	}

	a.valueStack = append(a.valueStack, nested)
	err = a.walk(f.SelectionSet)
	a.valueStack = a.valueStack[:len(a.valueStack)-1]
	return err
}

func (a *analyzer) finalScale() float64 {
	best := 0.0
	for _, group := range a.rates {
		sum := 0.0
		for _, v := range group {
			sum += v
		}
		if sum > best {
			best = sum
		}
	}
	if best < MinScaleFactor {
		best = MinScaleFactor
	}
	if best > MaxScaleFactor {
		best = MaxScaleFactor
	}
	return best
}

// lookupChild implements spec.md §4.C step 3's "child = v.k if v is an
// object, else none".
func lookupChild(parent any, key string) (any, bool) {
	obj, ok := parent.(map[string]any)
	if !ok {
		return nil, false
	}
	v, exists := obj[key]
	return v, exists
}

// valueLength implements "string length, array length, or 1 for
// scalars/null/missing".
func valueLength(v any, present bool) int {
	if !present {
		return 1
	}
	switch val := v.(type) {
	case string:
		return len(val)
	case []any:
		return len(val)
	default:
		return 1
	}
}

// rateForField reads the scaleLimits directive's rate argument off a
// field definition, per spec.md §4.C step 2. A directive present without
// a well-formed float rate is an analyzer error (spec.md §7 kind 8).
func rateForField(def *ast.FieldDefinition) (float64, bool, error) {
	if def == nil {
		return 0, false, nil
	}
	d := def.Directives.ForName(directiveName)
	if d == nil {
		return 0, false, nil
	}
	arg := d.Arguments.ForName(argumentName)
	if arg == nil || arg.Value == nil {
		return 0, false, fmt.Errorf("scalelimits: @%s on field %q is missing required argument %q", directiveName, def.Name, argumentName)
	}
	switch arg.Value.Kind {
	case ast.FloatValue, ast.IntValue:
		f, err := strconv.ParseFloat(arg.Value.Raw, 64)
		if err != nil {
			return 0, false, fmt.Errorf("scalelimits: @%s on field %q has non-numeric rate %q", directiveName, def.Name, arg.Value.Raw)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("scalelimits: @%s on field %q has non-float rate argument", directiveName, def.Name)
	}
}
