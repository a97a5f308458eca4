package kern

import "errors"

var (
	// ErrNotImplemented marks declared permanent limitations: evaluating
	// the bare hyperparameter container, and hyperparameter derivatives
	// in the chain-rule and combinator paths.
	ErrNotImplemented = errors.New("not implemented")

	// ErrArgument reports inconsistent constructor arguments, such as
	// fixing parameters without giving explicit initial values.
	ErrArgument = errors.New("inconsistent arguments")
)
