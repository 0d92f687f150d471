package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across capgen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldBackend   = "backend"
	FieldPhase     = "phase"

	// Metadata
	FieldModule   = "module"
	FieldType     = "type"
	FieldMethod   = "method"
	FieldProperty = "property"
	FieldMember   = "member"

	// Capabilities and proxies
	FieldCapabilityID = "capability_id"
	FieldNamespace    = "namespace"
	FieldProxyClass   = "proxy_class"
	FieldReason       = "reason"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts and sizes
	FieldCount = "count"
	FieldSize  = "size"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"
	FieldDir  = "dir"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Reader struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewReader() *Reader {
//	    return &Reader{
//	        logger: logger.ComponentLogger("metadata"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrComponent returns l when set, otherwise the named component logger.
// Constructors use it for optional injected loggers.
func OrComponent(l *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if l != nil {
		return l
	}
	return ComponentLogger(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	runLogger := logger.ChildLogger(baseLogger, logger.FieldRunID, runID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
