package index

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Predicate is a small engine-agnostic filter expression. Backends translate
// predicates to their own query language at the boundary, so the core never
// builds string-typed filter maps.
type Predicate interface {
	isPredicate()
	String() string
}

// Equals matches records whose field equals a single value.
type Equals struct {
	Field string
	Value any
}

func (Equals) isPredicate() {}

func (p Equals) String() string {
	return fmt.Sprintf("%s=%v", p.Field, p.Value)
}

// OneOf matches records whose field equals any of the given values.
type OneOf struct {
	Field  string
	Values []any
}

func (OneOf) isPredicate() {}

func (p OneOf) String() string {
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s in (%s)", p.Field, strings.Join(parts, ", "))
}

// And matches records satisfying every child predicate.
type And []Predicate

func (And) isPredicate() {}

func (p And) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}

// placeholderFunc renders the i-th (1-based) SQL placeholder for a backend:
// "$1" for Postgres, "?" for SQLite.
type placeholderFunc func(i int) string

// toSQL translates a predicate into a WHERE clause fragment and its args.
// columns maps predicate field names to qualified column names; unknown
// fields are an error rather than a silent no-op.
func toSQL(p Predicate, columns map[string]string, ph placeholderFunc, argOffset int) (string, []any, error) {
	switch v := p.(type) {
	case nil:
		return "", nil, nil
	case Equals:
		col, ok := columns[v.Field]
		if !ok {
			return "", nil, eris.Errorf("index: unknown filter field %q", v.Field)
		}
		return fmt.Sprintf("%s = %s", col, ph(argOffset+1)), []any{v.Value}, nil
	case OneOf:
		col, ok := columns[v.Field]
		if !ok {
			return "", nil, eris.Errorf("index: unknown filter field %q", v.Field)
		}
		if len(v.Values) == 0 {
			return "1 = 0", nil, nil // empty OneOf matches nothing
		}
		marks := make([]string, len(v.Values))
		args := make([]any, len(v.Values))
		for i, val := range v.Values {
			marks[i] = ph(argOffset + 1 + i)
			args[i] = val
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(marks, ", ")), args, nil
	case And:
		var clauses []string
		var args []any
		for _, child := range v {
			clause, childArgs, err := toSQL(child, columns, ph, argOffset+len(args))
			if err != nil {
				return "", nil, err
			}
			if clause == "" {
				continue
			}
			clauses = append(clauses, clause)
			args = append(args, childArgs...)
		}
		if len(clauses) == 0 {
			return "", nil, nil
		}
		return "(" + strings.Join(clauses, " AND ") + ")", args, nil
	default:
		return "", nil, eris.Errorf("index: unsupported predicate type %T", p)
	}
}
