package state

import (
	"errors"
	"fmt"
	"strings"
)

// FilterError captures filter-compiler metadata alongside the originating
// error, for both compile and match-time failures.
type FilterError struct {
	Engine string
	Expr   string
	Path   string
	Err    error
}

func (e *FilterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("state: %s filter %s path=%s: %v", e.Engine, describeExpression(e.Expr), e.Path, e.Err)
	}
	return fmt.Sprintf("state: %s filter %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *FilterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapFilterError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var filterErr *FilterError
	if errors.As(err, &filterErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "state:") {
		return err
	}
	return fmt.Errorf("state: %s filter: %w", engine, err)
}

// filterResult coerces an engine's evaluation outcome to the boolean the
// Filter contract requires. Non-boolean results are evaluation errors.
func filterResult(engine, expr string, path Path, result any, err error) (bool, error) {
	if err != nil {
		return false, wrapFilterMatchError(engine, expr, path.String(), err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, wrapFilterMatchError(engine, expr, path.String(),
			fmt.Errorf("expression result %T is not a boolean", result))
	}
	return matched, nil
}

func wrapFilterMatchError(engine, expr, path string, err error) error {
	if err == nil {
		return nil
	}

	var filterErr *FilterError
	if errors.As(err, &filterErr) {
		if filterErr.Engine == "" {
			filterErr.Engine = engine
		}
		if filterErr.Expr == "" {
			filterErr.Expr = expr
		}
		if filterErr.Path == "" {
			filterErr.Path = path
		}
		return filterErr
	}

	return &FilterError{
		Engine: engine,
		Expr:   expr,
		Path:   path,
		Err:    err,
	}
}
