package state

import (
	"fmt"
	"time"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELFilterOption configures the CEL filter compiler.
type CELFilterOption func(*celFilterCompiler)

// CELWithProgramCache wires a ProgramCache into the CEL compiler.
func CELWithProgramCache(cache ProgramCache) CELFilterOption {
	return func(c *celFilterCompiler) {
		c.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL compiler.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELFilterOption {
	return func(c *celFilterCompiler) {
		if registry == nil {
			return
		}
		c.registry = registry.Clone()
	}
}

// CELWithLogger attaches a filter logger to the CEL compiler.
func CELWithLogger(logger FilterLogger) CELFilterOption {
	return func(c *celFilterCompiler) {
		if logger == nil {
			c.logger = noopFilterLogger{}
			return
		}
		c.logger = logger
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

// celFilterCompiler builds Filters from CEL expressions. Expressions see
// the same bindings as the expr engine: path, key, value, depth.
type celFilterCompiler struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   FilterLogger
}

// NewCELFilterCompiler constructs a FilterCompiler backed by cel-go.
func NewCELFilterCompiler(opts ...CELFilterOption) FilterCompiler {
	c := &celFilterCompiler{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Compile builds a Filter from expression. Parse and check errors surface
// here; evaluation errors at Match time count as "no match" and go to the
// configured logger.
func (c *celFilterCompiler) Compile(expression string) (Filter, error) {
	if expression == "" {
		return nil, wrapFilterError("cel", fmt.Errorf("expression must not be empty"))
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celFilter{
		compiler:   c,
		program:    program,
		expression: expression,
	}, nil
}

func (c *celFilterCompiler) loadOrCompile(expression string) (*celProgram, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := c.buildEnv()
	if err != nil {
		return nil, wrapFilterError("cel", err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapFilterMatchError("cel", expression, "", issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapFilterMatchError("cel", expression, "", issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapFilterMatchError("cel", expression, "", err)
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if c.cache != nil {
		c.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (c *celFilterCompiler) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("path", celgo.ListType(celgo.StringType)),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("depth", celgo.IntType),
	}
	if c.registry != nil {
		// cel-go has no vararg declarations, so expand the vararg "call"
		// into one overload per arity.
		const maxCallArgs = 8
		overloads := make([]celgo.FunctionOpt, 0, maxCallArgs)
		args := []*celgo.Type{celgo.StringType}
		for i := 1; i <= maxCallArgs; i++ {
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("call_dyn_%d", i),
				append([]*celgo.Type(nil), args...),
				celgo.DynType,
				celgo.FunctionBinding(c.callBinding()),
			))
			args = append(args, celgo.DynType)
		}
		opts = append(opts, celgo.Function("call", overloads...))
	}
	return celgo.NewEnv(opts...)
}

func (c *celFilterCompiler) activation(path Path, leaf any) map[string]any {
	key := ""
	if len(path) > 0 {
		key = path[len(path)-1]
	}
	activation := map[string]any{
		"path":  pathStrings(path),
		"key":   key,
		"value": leaf,
		"depth": len(path),
	}
	if c.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return c.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celFilter struct {
	compiler   *celFilterCompiler
	program    *celProgram
	expression string
}

// Match implements Filter.
func (f *celFilter) Match(path Path, leaf any) bool {
	start := time.Now()
	out, _, evalErr := f.program.program.Eval(f.compiler.activation(path, leaf))
	var result any
	if evalErr == nil {
		result = out.Value()
	}
	matched, err := filterResult("cel", f.expression, path, result, evalErr)
	f.compiler.log().LogFilter(FilterLogEvent{
		Engine:   "cel",
		Expr:     f.expression,
		Path:     path.String(),
		Matched:  matched,
		Duration: time.Since(start),
		Err:      err,
	})
	return matched
}

func (c *celFilterCompiler) log() FilterLogger {
	if c.logger != nil {
		return c.logger
	}
	return noopFilterLogger{}
}

func (c *celFilterCompiler) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if c.registry == nil {
			return types.NewErr("state: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("state: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("state: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, value := range values[1:] {
			args = append(args, value.Value())
		}
		result, err := c.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("state: %v", err)
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
