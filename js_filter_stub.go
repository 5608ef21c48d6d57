//go:build !js_eval

package state

// NewJSFilterCompiler is unavailable without the js_eval build tag.
func NewJSFilterCompiler(opts ...JSFilterOption) FilterCompiler {
	_ = applyJSFilterOptions(opts)
	return nil
}

func jsFilterAvailable() bool {
	return false
}
