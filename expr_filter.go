package state

import (
	"fmt"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprFilterOption configures an expr filter compiler instance.
type ExprFilterOption func(*exprFilterCompiler)

// ExprWithProgramCache wires a ProgramCache into the expr compiler.
func ExprWithProgramCache(cache ProgramCache) ExprFilterOption {
	return func(c *exprFilterCompiler) {
		c.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr compiler.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprFilterOption {
	return func(c *exprFilterCompiler) {
		if registry == nil {
			return
		}
		c.registry = registry.Clone()
	}
}

// ExprWithLogger attaches a filter logger to the expr compiler.
func ExprWithLogger(logger FilterLogger) ExprFilterOption {
	return func(c *exprFilterCompiler) {
		if logger == nil {
			c.logger = noopFilterLogger{}
			return
		}
		c.logger = logger
	}
}

// exprFilterCompiler builds Filters from github.com/expr-lang/expr
// expressions. Expressions see `path` ([]string), `key` (final path
// element), `value` (the leaf) and `depth` (path length).
type exprFilterCompiler struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   FilterLogger
}

// NewExprFilterCompiler constructs a FilterCompiler backed by
// expr-lang/expr.
func NewExprFilterCompiler(opts ...ExprFilterOption) FilterCompiler {
	c := &exprFilterCompiler{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Compile builds a Filter from expression. Syntax errors surface here;
// evaluation errors at Match time count as "no match" and are reported to
// the configured logger.
func (c *exprFilterCompiler) Compile(expression string) (Filter, error) {
	if expression == "" {
		return nil, wrapFilterError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprFilter{
		compiler:   c,
		program:    program,
		expression: expression,
	}, nil
}

func (c *exprFilterCompiler) loadOrCompile(expression string) (*exprvm.Program, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range c.registryNames() {
		fn := c.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapFilterMatchError("expr", expression, "", err)
	}
	if c.cache != nil {
		c.cache.Set(expression, program)
	}
	return program, nil
}

type exprFilter struct {
	compiler   *exprFilterCompiler
	program    *exprvm.Program
	expression string
}

// Match implements Filter.
func (f *exprFilter) Match(path Path, leaf any) bool {
	env := f.compiler.environment(path, leaf)
	start := time.Now()
	result, err := exprlang.Run(f.program, env)
	matched, err := filterResult("expr", f.expression, path, result, err)
	f.compiler.log().LogFilter(FilterLogEvent{
		Engine:   "expr",
		Expr:     f.expression,
		Path:     path.String(),
		Matched:  matched,
		Duration: time.Since(start),
		Err:      err,
	})
	return matched
}

func (c *exprFilterCompiler) environment(path Path, leaf any) map[string]any {
	env := map[string]any{
		"path":  pathStrings(path),
		"value": leaf,
		"depth": len(path),
	}
	if len(path) > 0 {
		env["key"] = path[len(path)-1]
	} else {
		env["key"] = ""
	}
	if c.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return c.registry.Call(name, arguments...)
		}
		for _, name := range c.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return c.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

func (c *exprFilterCompiler) log() FilterLogger {
	if c.logger != nil {
		return c.logger
	}
	return noopFilterLogger{}
}

func (c *exprFilterCompiler) registryNames() []string {
	if c == nil || c.registry == nil {
		return nil
	}
	return c.registry.Names()
}

func (c *exprFilterCompiler) registryFunction(name string) func(...any) (any, error) {
	if c == nil || c.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return c.registry.Call(name, arguments...)
	}
}
