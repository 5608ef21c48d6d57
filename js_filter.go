//go:build js_eval

package state

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// jsFilterCompiler builds Filters from JavaScript expressions using goja.
// Expressions see the same bindings as the other engines: path, key,
// value, depth.
type jsFilterCompiler struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   FilterLogger
}

// NewJSFilterCompiler constructs a FilterCompiler backed by goja.
func NewJSFilterCompiler(opts ...JSFilterOption) FilterCompiler {
	cfg := applyJSFilterOptions(opts)
	return &jsFilterCompiler{
		cache:    cfg.cache,
		registry: cfg.registry,
		logger:   cfg.logger,
	}
}

// Compile builds a Filter from expression. Syntax errors surface here;
// evaluation errors at Match time count as "no match" and go to the
// configured logger.
func (c *jsFilterCompiler) Compile(expression string) (Filter, error) {
	if expression == "" {
		return nil, wrapFilterError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsFilter{
		compiler:   c,
		program:    program,
		expression: expression,
	}, nil
}

func (c *jsFilterCompiler) loadOrCompile(expression string) (*goja.Program, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", c.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapFilterMatchError("js", expression, "", err)
	}
	if c.cache != nil {
		c.cache.Set(expression, program)
	}
	return program, nil
}

type jsFilter struct {
	compiler   *jsFilterCompiler
	program    *goja.Program
	expression string
}

// Match implements Filter. A fresh runtime is built per evaluation so
// filters stay safe to share.
func (f *jsFilter) Match(path Path, leaf any) bool {
	start := time.Now()
	vm := goja.New()
	f.compiler.injectBindings(vm, path, leaf)
	value, evalErr := vm.RunProgram(f.program)
	var result any
	if evalErr == nil {
		result = value.Export()
	}
	matched, err := filterResult("js", f.expression, path, result, evalErr)
	f.compiler.log().LogFilter(FilterLogEvent{
		Engine:   "js",
		Expr:     f.expression,
		Path:     path.String(),
		Matched:  matched,
		Duration: time.Since(start),
		Err:      err,
	})
	return matched
}

func (c *jsFilterCompiler) injectBindings(vm *goja.Runtime, path Path, leaf any) {
	key := ""
	if len(path) > 0 {
		key = path[len(path)-1]
	}
	vm.Set("path", pathStrings(path))
	vm.Set("key", key)
	vm.Set("value", leaf)
	vm.Set("depth", len(path))
	if c.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return c.registry.Call(name, arguments...)
		})
		for _, name := range c.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return c.registry.Call(fn, arguments...)
			})
		}
	}
}

func (c *jsFilterCompiler) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

func (c *jsFilterCompiler) log() FilterLogger {
	if c.logger != nil {
		return c.logger
	}
	return noopFilterLogger{}
}

func jsFilterAvailable() bool {
	return true
}
