package filter

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-json"
)

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithCache enables caching of compiled filters with the specified size
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache[*Filter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) CompilerOption {
	return func(c *Compiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// Compiler compiles expressions into filters over catalog items
type Compiler struct {
	helperFuncs map[string]any
	cache       *lruCache[*Filter]
}

// NewCompiler creates a new expr-based filter compiler
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compile compiles an expression into an executable filter
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
			Position:   -1,
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	env := make(map[string]any, len(c.helperFuncs)+1)
	maps.Copy(env, c.helperFuncs)
	env["item"] = map[string]any{}

	// item fields are unknown until run time
	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Position:   -1,
			Err:        err,
		}
	}

	filter := &Filter{
		expression:  expression,
		program:     program,
		helperFuncs: c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *Compiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *Compiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	expression  string
	program     *vm.Program
	helperFuncs map[string]any
}

// Expression returns the original expression
func (f *Filter) Expression() string {
	return f.expression
}

// Eval runs the filter against one item.
func (f *Filter) Eval(item any) (bool, error) {
	fields, ok := item.(map[string]any)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			Reason:     "item is not an object",
		}
	}

	result, err := expr.Run(f.program, f.runtimeEnvironment(fields))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Item:       itemLabel(fields),
			Reason:     "failed to evaluate expression",
			Err:        err,
		}
	}

	matched, _ := result.(bool)
	return matched, nil
}

// Match reports whether item satisfies the filter. Items that are not
// objects and items the expression fails on never match.
func (f *Filter) Match(item any) bool {
	matched, err := f.Eval(item)
	return err == nil && matched
}

// Apply returns the matching items in their original order.
func (f *Filter) Apply(items []any) []any {
	matches := make([]any, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			matches = append(matches, item)
		}
	}
	return matches
}

// runtimeEnvironment exposes every item field by name, plus the item itself.
// Helpers take precedence over fields of the same name.
func (f *Filter) runtimeEnvironment(fields map[string]any) map[string]any {
	env := make(map[string]any, len(fields)+len(f.helperFuncs)+1)
	maps.Copy(env, fields)
	maps.Copy(env, f.helperFuncs)
	env["item"] = fields
	return env
}

// createHelperFunctions creates the helper functions available to expressions
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 8)
	addHelperFunctions(funcs)
	return funcs
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// String helpers, case-insensitive
	env["icontains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["istartsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["iendsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	// Providers send numbers as strings or numbers depending on the panel
	env["number"] = toNumber
	// Date helpers
	env["daysSince"] = func(unix any) int {
		seconds, ok := parseNumber(unix)
		if !ok || seconds <= 0 {
			return -1
		}
		return int(time.Since(time.Unix(int64(seconds), 0)).Hours() / 24)
	}
}

func toNumber(v any) float64 {
	n, _ := parseNumber(v)
	return n
}

func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// itemLabel names an item in error messages.
func itemLabel(fields map[string]any) string {
	for _, key := range []string{"name", "title", "category_name"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s
		}
	}
	for _, key := range []string{"stream_id", "series_id", "category_id"} {
		if v, ok := fields[key]; ok {
			return key + "=" + strconv.FormatFloat(toNumber(v), 'f', -1, 64)
		}
	}
	return ""
}
