package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// QueryStyle tells how a query template refers to the data.
type QueryStyle int

const (
	// StyleEntity templates use entity and field names, e.g. `SELECT e FROM Employee e WHERE e.firstName = ?1`.
	StyleEntity QueryStyle = iota
	// StyleNative templates are plain SQL over table and column names.
	StyleNative
)

// Binding is the placeholder style of a query template.
type Binding int

const (
	// BindPositional placeholders are `?1`, `?2`, ... bound by argument order.
	BindPositional Binding = iota
	// BindNamed placeholders are `:name`, bound from a pgx.NamedArgs.
	BindNamed
)

// Shape is the number of rows a query is expected to produce.
type Shape int

const (
	ShapeExec     Shape = iota // no result rows
	ShapeOne                   // exactly one row
	ShapeOptional              // zero or one row
	ShapeMany                  // any number of rows
)

var (
	// ErrInvalidQuery is returned when a query template cannot be compiled.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidBinding is returned when arguments do not fit the query placeholders.
	ErrInvalidBinding = errors.New("invalid query binding")
)

// FieldMapping links an entity field to its column.
type FieldMapping struct {
	Field  string
	Column string
}

// Entity describes how an entity maps onto a table.
type Entity struct {
	Name   string
	Table  string
	Fields []FieldMapping
}

func (e Entity) column(field string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Column, true
		}
	}
	return "", false
}

// QueryDef is a query as declared by hand.
type QueryDef struct {
	Name     string
	Template string
	Style    QueryStyle
	Binding  Binding
	Shape    Shape
}

// Query is a compiled QueryDef. SQL always uses `$N` placeholders.
type Query struct {
	QueryDef
	SQL    string
	params []string
	arity  int
}

// Bind turns caller arguments into the ordered argument list for SQL.
// Positional queries take their values in order, named queries take exactly one pgx.NamedArgs.
func (q *Query) Bind(args ...any) ([]any, error) {
	if q.Binding == BindPositional {
		if len(args) != q.arity {
			return nil, fmt.Errorf("%w: query %s expects %d arguments, got %d", ErrInvalidBinding, q.Name, q.arity, len(args))
		}
		return args, nil
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("%w: query %s expects a single pgx.NamedArgs, got %d arguments",
			ErrInvalidBinding, q.Name, len(args))
	}
	named, ok := args[0].(pgx.NamedArgs)
	if !ok {
		return nil, fmt.Errorf("%w: query %s expects pgx.NamedArgs, got %T", ErrInvalidBinding, q.Name, args[0])
	}

	bound := make([]any, len(q.params))
	for i, name := range q.params {
		value, found := named[name]
		if !found {
			return nil, fmt.Errorf("%w: query %s is missing parameter %q", ErrInvalidBinding, q.Name, name)
		}
		bound[i] = value
	}
	if len(named) != len(q.params) {
		for name := range named {
			if !q.hasParam(name) {
				return nil, fmt.Errorf("%w: query %s has no parameter %q", ErrInvalidBinding, q.Name, name)
			}
		}
	}

	return bound, nil
}

func (q *Query) hasParam(name string) bool {
	for _, p := range q.params {
		if p == name {
			return true
		}
	}
	return false
}

// QueryRegistry holds compiled queries by name.
type QueryRegistry struct {
	entity  Entity
	queries map[string]*Query
}

// CompileQueries compiles every definition against entity. The first invalid
// definition aborts compilation.
func CompileQueries(entity Entity, defs []QueryDef) (*QueryRegistry, error) {
	registry := &QueryRegistry{entity: entity, queries: make(map[string]*Query, len(defs))}

	for _, def := range defs {
		if _, exists := registry.queries[def.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate query name %q", ErrInvalidQuery, def.Name)
		}
		query, err := compileQuery(entity, def)
		if err != nil {
			return nil, err
		}
		registry.queries[def.Name] = query
	}

	return registry, nil
}

// MustCompileQueries is like CompileQueries but panics on error.
func MustCompileQueries(entity Entity, defs []QueryDef) *QueryRegistry {
	registry, err := CompileQueries(entity, defs)
	if err != nil {
		panic(err)
	}
	return registry
}

// Get returns the compiled query registered under name.
func (r *QueryRegistry) Get(name string) (*Query, bool) {
	query, ok := r.queries[name]
	return query, ok
}

func (r *QueryRegistry) mustGet(name string) *Query {
	query, ok := r.queries[name]
	if !ok {
		panic("query is not registered: " + name)
	}
	return query
}

func compileQuery(entity Entity, def QueryDef) (*Query, error) {
	text := def.Template
	if def.Style == StyleEntity {
		var err error
		if text, err = translateEntityQuery(entity, text); err != nil {
			return nil, fmt.Errorf("query %s: %w", def.Name, err)
		}
	}

	sql, params, arity, err := rewritePlaceholders(text, def.Binding)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", def.Name, err)
	}

	return &Query{QueryDef: def, SQL: sql, params: params, arity: arity}, nil
}

var entitySelectRe = regexp.MustCompile(`(?is)^\s*SELECT\s+(\w+)\s+FROM\s+(\w+)\s+(\w+)\b(.*)$`)

// translateEntityQuery rewrites `SELECT e FROM Entity e ...` into SQL over the entity table,
// expanding the projection to every mapped column and resolving `e.field` references.
func translateEntityQuery(entity Entity, text string) (string, error) {
	match := entitySelectRe.FindStringSubmatch(text)
	if match == nil {
		return "", fmt.Errorf("%w: entity query must start with SELECT <alias> FROM <Entity> <alias>", ErrInvalidQuery)
	}
	selectAlias, entityName, alias, rest := match[1], match[2], match[3], match[4]

	if entityName != entity.Name {
		return "", fmt.Errorf("%w: unknown entity %q", ErrInvalidQuery, entityName)
	}
	if selectAlias != alias {
		return "", fmt.Errorf("%w: selected alias %q is not declared, expected %q", ErrInvalidQuery, selectAlias, alias)
	}

	projection := make([]string, len(entity.Fields))
	for i, f := range entity.Fields {
		projection[i] = alias + "." + f.Column
	}

	var fieldErr error
	fieldRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\.(\w+)`)
	rest = fieldRe.ReplaceAllStringFunc(rest, func(ref string) string {
		field := ref[len(alias)+1:]
		column, ok := entity.column(field)
		if !ok {
			if fieldErr == nil {
				fieldErr = fmt.Errorf("%w: entity %s has no field %q", ErrInvalidQuery, entity.Name, field)
			}
			return ref
		}
		return alias + "." + column
	})
	if fieldErr != nil {
		return "", fieldErr
	}

	return "SELECT " + strings.Join(projection, ", ") + " FROM " + entity.Table + " " + alias + rest, nil
}

// rewritePlaceholders converts `?N` and `:name` placeholders into `$N`. Quoted literals
// and `::` casts are copied unchanged. For named queries it returns the parameter names
// in placeholder order, for positional ones the highest ordinal.
func rewritePlaceholders(text string, binding Binding) (string, []string, int, error) {
	var (
		out      strings.Builder
		names    []string
		index    = make(map[string]int)
		ordinals = make(map[int]bool)
		arity    int
	)

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\'':
			end := closingQuote(text, i)
			if end < 0 {
				return "", nil, 0, fmt.Errorf("%w: unterminated string literal", ErrInvalidQuery)
			}
			out.WriteString(text[i : end+1])
			i = end + 1
		case c == ':' && i+1 < len(text) && text[i+1] == ':':
			out.WriteString("::")
			i += 2
		case c == ':' && i+1 < len(text) && isIdentStart(text[i+1]):
			if binding != BindNamed {
				return "", nil, 0, fmt.Errorf("%w: named placeholder in positional query", ErrInvalidQuery)
			}
			end := i + 1
			for end < len(text) && isIdentPart(text[end]) {
				end++
			}
			name := text[i+1 : end]
			pos, seen := index[name]
			if !seen {
				names = append(names, name)
				pos = len(names)
				index[name] = pos
			}
			out.WriteString("$" + strconv.Itoa(pos))
			i = end
		case c == '?' && i+1 < len(text) && isDigit(text[i+1]):
			if binding != BindPositional {
				return "", nil, 0, fmt.Errorf("%w: positional placeholder in named query", ErrInvalidQuery)
			}
			end := i + 1
			for end < len(text) && isDigit(text[end]) {
				end++
			}
			ordinal, err := strconv.Atoi(text[i+1 : end])
			if err != nil || ordinal == 0 {
				return "", nil, 0, fmt.Errorf("%w: bad positional placeholder %q", ErrInvalidQuery, text[i:end])
			}
			ordinals[ordinal] = true
			arity = max(arity, ordinal)
			out.WriteString("$" + strconv.Itoa(ordinal))
			i = end
		default:
			out.WriteByte(c)
			i++
		}
	}

	for ordinal := 1; ordinal <= arity; ordinal++ {
		if !ordinals[ordinal] {
			return "", nil, 0, fmt.Errorf("%w: positional placeholder ?%d is never used", ErrInvalidQuery, ordinal)
		}
	}
	if binding == BindNamed {
		arity = len(names)
	}

	return out.String(), names, arity, nil
}

// closingQuote returns the index of the quote closing the literal opened at start.
func closingQuote(text string, start int) int {
	for i := start + 1; i < len(text); i++ {
		if text[i] != '\'' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
