package state

type jsFilterConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   FilterLogger
}

// JSFilterOption configures the JS filter compiler.
type JSFilterOption func(*jsFilterConfig)

// JSWithProgramCache applies a ProgramCache to the JS compiler.
func JSWithProgramCache(cache ProgramCache) JSFilterOption {
	return func(cfg *jsFilterConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS compiler.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSFilterOption {
	return func(cfg *jsFilterConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// JSWithLogger attaches a filter logger to the JS compiler.
func JSWithLogger(logger FilterLogger) JSFilterOption {
	return func(cfg *jsFilterConfig) {
		if logger == nil {
			cfg.logger = noopFilterLogger{}
			return
		}
		cfg.logger = logger
	}
}

func applyJSFilterOptions(opts []JSFilterOption) jsFilterConfig {
	cfg := jsFilterConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
