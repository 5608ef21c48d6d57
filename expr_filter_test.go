package state

import (
	"errors"
	"testing"
)

var filterCompilerFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry, logger FilterLogger) FilterCompiler
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry, logger FilterLogger) FilterCompiler {
			opts := []ExprFilterOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			if logger != nil {
				opts = append(opts, ExprWithLogger(logger))
			}
			return NewExprFilterCompiler(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry, logger FilterLogger) FilterCompiler {
			opts := []CELFilterOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			if logger != nil {
				opts = append(opts, CELWithLogger(logger))
			}
			return NewCELFilterCompiler(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry, logger FilterLogger) FilterCompiler {
			opts := []JSFilterOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			if logger != nil {
				opts = append(opts, JSWithLogger(logger))
			}
			return NewJSFilterCompiler(opts...)
		},
	},
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = map[string]any{}
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = value
}

type captureFilterLogger struct {
	events []FilterLogEvent
}

func (l *captureFilterLogger) LogFilter(event FilterLogEvent) {
	l.events = append(l.events, event)
}

func compileOrSkip(t *testing.T, compiler FilterCompiler, expression string) Filter {
	t.Helper()
	if compiler == nil {
		t.Skip("engine requires a build tag")
	}
	filter, err := compiler.Compile(expression)
	if err != nil {
		t.Fatalf("Compile(%q): %v", expression, err)
	}
	return filter
}

func TestExpressionFiltersAcrossEngines(t *testing.T) {
	cases := []struct {
		name       string
		expression string
		path       Path
		leaf       any
		matched    bool
	}{
		{"key_equality", `key == "bias"`, Path{"encoder", "bias"}, 0.1, true},
		{"key_mismatch", `key == "bias"`, Path{"encoder", "kernel"}, 0.1, false},
		{"path_element", `path[0] == "decoder"`, Path{"decoder", "w"}, nil, true},
		{"depth", `depth > 2`, Path{"a", "b", "c"}, 1, true},
		{"shallow_depth", `depth > 2`, Path{"a"}, 1, false},
		{"leaf_value", `value == 7`, Path{"step"}, 7, true},
	}

	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			compiler := factory.new(nil, nil, nil)
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					filter := compileOrSkip(t, compiler, tc.expression)
					if got := filter.Match(tc.path, tc.leaf); got != tc.matched {
						t.Fatalf("Match(%v, %v) = %v, want %v", tc.path, tc.leaf, got, tc.matched)
					}
				})
			}
		})
	}
}

func TestExpressionFiltersRejectEmptyExpression(t *testing.T) {
	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			compiler := factory.new(nil, nil, nil)
			if compiler == nil {
				t.Skip("engine requires a build tag")
			}
			if _, err := compiler.Compile(""); err == nil {
				t.Fatal("expected error for empty expression")
			}
		})
	}
}

func TestExpressionFiltersUseProgramCache(t *testing.T) {
	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			cache := &fakeProgramCache{}
			compiler := factory.new(cache, nil, nil)
			if compiler == nil {
				t.Skip("engine requires a build tag")
			}

			const expression = `depth > 0`
			if _, err := compiler.Compile(expression); err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if _, err := compiler.Compile(expression); err != nil {
				t.Fatalf("Compile: %v", err)
			}

			if cache.misses != 1 {
				t.Fatalf("cache misses = %d, want 1", cache.misses)
			}
			if cache.hits != 1 {
				t.Fatalf("cache hits = %d, want 1", cache.hits)
			}
		})
	}
}

func TestExpressionFiltersCallRegisteredFunctions(t *testing.T) {
	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			registry := NewFunctionRegistry()
			if err := registry.Register("trainable", func(args ...any) (any, error) {
				if len(args) != 1 {
					return nil, errors.New("trainable expects one argument")
				}
				name, _ := args[0].(string)
				return name == "kernel" || name == "bias", nil
			}); err != nil {
				t.Fatalf("Register: %v", err)
			}

			compiler := factory.new(nil, registry, nil)
			filter := compileOrSkip(t, compiler, `call("trainable", key)`)

			if !filter.Match(Path{"encoder", "kernel"}, nil) {
				t.Fatal("expected registry-backed match")
			}
			if filter.Match(Path{"encoder", "step"}, nil) {
				t.Fatal("unexpected registry-backed match")
			}
		})
	}
}

func TestExpressionFilterErrorsCountAsNoMatch(t *testing.T) {
	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			logger := &captureFilterLogger{}
			compiler := factory.new(nil, nil, logger)
			// Evaluates, but to an int: the boolean coercion fails at Match
			// time, so this counts as "no match" and reaches the logger.
			filter := compileOrSkip(t, compiler, `depth`)

			if filter.Match(Path{"a"}, nil) {
				t.Fatal("a non-boolean result must not match")
			}
			if len(logger.events) != 1 {
				t.Fatalf("expected 1 logged event, got %d", len(logger.events))
			}
			event := logger.events[0]
			if event.Err == nil {
				t.Fatal("logged event should carry the evaluation error")
			}
			var ferr *FilterError
			if !errors.As(event.Err, &ferr) || ferr.Path != "$.a" {
				t.Fatalf("unexpected logged error: %v", event.Err)
			}
		})
	}
}

func TestExpressionFilterLoggerSeesSuccesses(t *testing.T) {
	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			logger := &captureFilterLogger{}
			compiler := factory.new(nil, nil, logger)
			filter := compileOrSkip(t, compiler, `key == "w"`)

			filter.Match(Path{"w"}, 1)
			filter.Match(Path{"b"}, 2)

			if len(logger.events) != 2 {
				t.Fatalf("expected 2 logged events, got %d", len(logger.events))
			}
			if !logger.events[0].Matched || logger.events[1].Matched {
				t.Fatalf("match outcomes not recorded: %+v", logger.events)
			}
			if logger.events[0].Engine != factory.name {
				t.Fatalf("engine label = %q", logger.events[0].Engine)
			}
		})
	}
}

func TestExprFilterExposesRegistryFunctionsByName(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("isdeep", func(args ...any) (any, error) {
		depth, _ := args[0].(int)
		return depth > 2, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	compiler := NewExprFilterCompiler(ExprWithFunctionRegistry(registry))
	filter, err := compiler.Compile(`isdeep(depth)`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !filter.Match(Path{"a", "b", "c"}, nil) {
		t.Fatal("expected direct function call to match")
	}
	if filter.Match(Path{"a"}, nil) {
		t.Fatal("unexpected match")
	}
}

func TestExpressionFiltersDriveSplit(t *testing.T) {
	s := MustNew(map[Key]any{
		"encoder": map[Key]any{"kernel": 1.0, "step": 7},
		"decoder": map[Key]any{"kernel": 2.0},
	})

	for _, factory := range filterCompilerFactories {
		t.Run(factory.name, func(t *testing.T) {
			compiler := factory.new(NewMemoryProgramCache(), nil, nil)
			filter := compileOrSkip(t, compiler, `key == "kernel"`)

			parts, err := s.Split(filter, Wildcard)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			want := MustNew(map[Key]any{
				"encoder": map[Key]any{"kernel": 1.0},
				"decoder": map[Key]any{"kernel": 2.0},
			})
			if !parts[0].Equal(want) {
				t.Fatalf("kernel bucket = %v", parts[0].Raw())
			}
			if !parts[1].Equal(MustNew(map[Key]any{"encoder": map[Key]any{"step": 7}})) {
				t.Fatalf("remainder bucket = %v", parts[1].Raw())
			}
		})
	}
}
