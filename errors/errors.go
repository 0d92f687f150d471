// Package errors provides error handling for capgen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// It also defines the generation-run error taxonomy. Run-fatal errors are
// marked with one of the sentinels below so callers can classify them with
// Is while the message keeps the module, member and identifiers involved.
//
// Usage:
//
//	// Create a taxonomy error with context
//	err := errors.Mark(errors.Newf("module %q not found", name), errors.ErrModuleNotFound)
//
//	// Wrap with context
//	if err := reader.Load(name); err != nil {
//	    return errors.Wrapf(err, "failed to load %s", name)
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrModuleNotFound) {
//	    // fix the search paths
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Mark           = crdb.Mark
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf    = crdb.AssertionFailedf
	HasAssertionFailure = crdb.HasAssertionFailure
)

// Run-fatal errors. Any of these aborts a generation run before a file is written.
var (
	// ErrModuleNotFound indicates a module is absent from every search path
	ErrModuleNotFound = New("module not found")

	// ErrTypeResolution indicates a type reference cannot be resolved in the combined search space
	ErrTypeResolution = New("type resolution failure")

	// ErrDuplicateCapability indicates two capabilities share one identifier
	ErrDuplicateCapability = New("duplicate capability identifier")

	// ErrProxyNameCollision indicates two generated names clash in the client surface
	ErrProxyNameCollision = New("proxy name collision")

	// ErrMalformedModule indicates a module file violates the binary metadata format
	ErrMalformedModule = New("malformed module")

	// ErrInvalidConfig indicates the run configuration is unusable
	ErrInvalidConfig = New("invalid configuration")
)

// Per-item degradations. These are recorded and logged, never returned from a run.
var (
	// ErrUnrepresentableParameter marks a capability skipped because a required
	// parameter cannot cross the language boundary
	ErrUnrepresentableParameter = New("unrepresentable required parameter")

	// ErrContextAttributeUnresolved marks a context type whose marker attribute
	// could not be resolved
	ErrContextAttributeUnresolved = New("context attribute unresolved")
)

// IsFatal reports whether err belongs to the run-fatal part of the taxonomy.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return IsAny(err,
		ErrModuleNotFound,
		ErrTypeResolution,
		ErrDuplicateCapability,
		ErrProxyNameCollision,
		ErrMalformedModule,
		ErrInvalidConfig,
	)
}

// Kind returns the taxonomy name of err ("ModuleNotFound", ...) or "" when
// err carries none of the sentinels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrModuleNotFound):
		return "ModuleNotFound"
	case Is(err, ErrTypeResolution):
		return "TypeResolutionFailure"
	case Is(err, ErrDuplicateCapability):
		return "DuplicateCapabilityIdentifier"
	case Is(err, ErrProxyNameCollision):
		return "ProxyNameCollision"
	case Is(err, ErrMalformedModule):
		return "MalformedModule"
	case Is(err, ErrInvalidConfig):
		return "InvalidConfig"
	case Is(err, ErrUnrepresentableParameter):
		return "UnrepresentableRequiredParameter"
	case Is(err, ErrContextAttributeUnresolved):
		return "ContextAttributeUnresolved"
	default:
		return ""
	}
}

// NewModuleNotFound creates a ModuleNotFound error naming the module and the searched paths
func NewModuleNotFound(name string, searchPaths []string) error {
	err := Mark(Newf("module %q not found in search paths %v", name, searchPaths), ErrModuleNotFound)
	return WithHint(err, "add the directory containing the module to [modules].search_paths")
}

// NewTypeResolution creates a TypeResolutionFailure error for a reference made from a module
func NewTypeResolution(fromModule, ref string, cause error) error {
	var err error
	if cause != nil {
		err = Wrapf(cause, "cannot resolve type %s referenced from module %s", ref, fromModule)
	} else {
		err = Newf("cannot resolve type %s referenced from module %s", ref, fromModule)
	}
	return Mark(err, ErrTypeResolution)
}

// NewMalformedModule creates a MalformedModule error naming the file and the offending field path
func NewMalformedModule(file, path string, cause error) error {
	var err error
	if cause != nil {
		err = Wrapf(cause, "malformed module %s at %s", file, path)
	} else {
		err = Newf("malformed module %s at %s", file, path)
	}
	return Mark(err, ErrMalformedModule)
}
