// Package outputvalidation checks a guest's decoded output against the
// result type declared by a GraphQL schema's Mutation.handleResult(result:
// …) argument, supplementing spec.md's component list with a trimmed port
// of the original project's output validator (see DESIGN.md).
package outputvalidation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Error describes one mismatch between a value and its expected type, at
// a specific path into the output document.
type Error struct {
	Message string
	Path    []string
}

func (e Error) String() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Path, "."), e.Message)
}

var shopifyGIDPattern = regexp.MustCompile(`^gid://shopify/([a-zA-Z0-9_]+)/([a-zA-Z0-9]+)$`)

// Validate parses schemaSDL, locates Mutation.handleResult's `result`
// argument type, and checks value against it. It returns a non-nil error
// only when the schema fails to parse or does not define a mutation root
// with a handleResult field taking a result argument — mismatches
// between value and the result type are reported as an Error slice,
// never as the returned error.
func Validate(schemaSDL string, value any) ([]Error, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL})
	if err != nil {
		return nil, fmt.Errorf("outputvalidation: schema parse error: %w", err)
	}

	resultType, err := handleResultType(schema)
	if err != nil {
		return nil, err
	}

	var errs []Error
	checkValue(schema, resultType, value, nil, &errs)
	return errs, nil
}

func handleResultType(schema *ast.Schema) (*ast.Type, error) {
	if schema.Mutation == nil {
		return nil, fmt.Errorf("outputvalidation: schema does not define a mutation root")
	}
	field := schema.Mutation.Fields.ForName("handleResult")
	if field == nil {
		return nil, fmt.Errorf("outputvalidation: mutation root does not define a field named handleResult")
	}
	arg := field.Arguments.ForName("result")
	if arg == nil {
		return nil, fmt.Errorf("outputvalidation: handleResult does not define an argument named result")
	}
	return arg.Type, nil
}

// checkValue recursively coerces value against t, appending an Error for
// every mismatch found. This is intentionally not a full GraphQL input
// coercion engine: it covers null/non-null, list element checks, object
// required-field presence, scalar/enum kind compatibility, and the
// Shopify ID custom scalar's gid:// shape. oneOf input objects and
// Decimal string coercion are not implemented (see DESIGN.md).
func checkValue(schema *ast.Schema, t *ast.Type, value any, path []string, errs *[]Error) {
	if t == nil {
		return
	}

	if value == nil {
		if t.NonNull {
			*errs = append(*errs, Error{
				Message: fmt.Sprintf("got null when non-null value of type %s was expected", t.Name()),
				Path:    clonePath(path),
			})
		}
		return
	}

	if t.NamedType != "" {
		checkNamed(schema, t.NamedType, value, path, errs)
		return
	}

	// List type.
	arr, ok := value.([]any)
	if !ok {
		*errs = append(*errs, Error{
			Message: fmt.Sprintf("expected a list for type %s", t.String()),
			Path:    clonePath(path),
		})
		return
	}
	for i, elem := range arr {
		checkValue(schema, t.Elem, elem, append(path, fmt.Sprintf("%d", i)), errs)
	}
}

func checkNamed(schema *ast.Schema, typeName string, value any, path []string, errs *[]Error) {
	def := schema.Types[typeName]
	if def == nil {
		return
	}

	switch def.Kind {
	case ast.Scalar:
		checkScalar(typeName, value, path, errs)

	case ast.Enum:
		s, ok := value.(string)
		if !ok {
			*errs = append(*errs, Error{
				Message: fmt.Sprintf("no implicit conversion to enum %s", typeName),
				Path:    clonePath(path),
			})
			return
		}
		if def.EnumValues.ForName(s) == nil {
			*errs = append(*errs, Error{
				Message: fmt.Sprintf("no enum member %q on type %s", s, typeName),
				Path:    clonePath(path),
			})
		}

	case ast.InputObject, ast.Object:
		obj, ok := value.(map[string]any)
		if !ok {
			*errs = append(*errs, Error{
				Message: fmt.Sprintf("expected an object for type %s", typeName),
				Path:    clonePath(path),
			})
			return
		}
		var missing []string
		for _, field := range def.Fields {
			fv, present := obj[field.Name]
			if !present || fv == nil {
				if field.Type.NonNull && field.DefaultValue == nil {
					missing = append(missing, field.Name)
				}
				continue
			}
			checkValue(schema, field.Type, fv, append(path, field.Name), errs)
		}
		if len(missing) > 0 {
			*errs = append(*errs, Error{
				Message: fmt.Sprintf("no value for required fields on input type %s: %s", typeName, strings.Join(missing, ", ")),
				Path:    clonePath(path),
			})
		}

	default:
		// Interfaces/unions aren't reachable from a handleResult argument
		// type in practice; skip rather than false-positive.
	}
}

func checkScalar(typeName string, value any, path []string, errs *[]Error) {
	switch typeName {
	case "ID":
		s, ok := value.(string)
		if !ok {
			*errs = append(*errs, Error{Message: "cannot coerce non-string value to ID", Path: clonePath(path)})
			return
		}
		if !shopifyGIDPattern.MatchString(s) {
			*errs = append(*errs, Error{Message: "invalid GID format", Path: clonePath(path)})
		}

	case "String":
		if _, ok := value.(string); !ok {
			*errs = append(*errs, Error{Message: "no implicit conversion to String", Path: clonePath(path)})
		}

	case "Int", "Float":
		if _, ok := value.(float64); !ok {
			*errs = append(*errs, Error{Message: fmt.Sprintf("no implicit conversion to %s", typeName), Path: clonePath(path)})
		}

	case "Boolean":
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, Error{Message: "no implicit conversion to Boolean", Path: clonePath(path)})
		}

	default:
		// Unknown custom scalar (other than ID): the original only
		// special-cases Decimal and ID; anything else passes through
		// unchecked, same as the original's default Ok(()) arm.
	}
}

func clonePath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
