// Package cerrors implements the Commodore error taxonomy: a closed set of
// error kinds that the pipeline coordinator inspects to decide exit codes
// and user-facing messages, without ever leaking secrets in those messages.
package cerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error kinds named in the Commodore error taxonomy.
type Kind string

const (
	KindConfig         Kind = "ConfigError"
	KindRegistry       Kind = "RegistryError"
	KindDiscovery      Kind = "DiscoveryError"
	KindVersionBinding Kind = "VersionBindingError"
	KindDependency     Kind = "DependencyError"
	KindInstantiation  Kind = "InstantiationError"
	KindLibraryAlias   Kind = "LibraryAliasError"
	KindTemplater      Kind = "TemplaterError"
	KindPostprocess    Kind = "PostprocessError"
	KindRef            Kind = "RefError"
	KindMergeConflict  Kind = "MergeConflict"
	KindPushRejected   Kind = "PushRejected"
)

// Error is a Commodore error carrying a taxonomy Kind and an optional
// wrapped cause. It implements Unwrap so callers can errors.Is/As through it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func new_(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Config(format string, args ...interface{}) *Error {
	return new_(KindConfig, nil, format, args...)
}

func Registry(err error, format string, args ...interface{}) *Error {
	return new_(KindRegistry, err, format, args...)
}

func Discovery(format string, args ...interface{}) *Error {
	return new_(KindDiscovery, nil, format, args...)
}

func VersionBinding(format string, args ...interface{}) *Error {
	return new_(KindVersionBinding, nil, format, args...)
}

func Dependency(err error, format string, args ...interface{}) *Error {
	return new_(KindDependency, err, format, args...)
}

func Instantiation(format string, args ...interface{}) *Error {
	return new_(KindInstantiation, nil, format, args...)
}

func LibraryAlias(format string, args ...interface{}) *Error {
	return new_(KindLibraryAlias, nil, format, args...)
}

func Templater(err error, format string, args ...interface{}) *Error {
	return new_(KindTemplater, err, format, args...)
}

func Postprocess(format string, args ...interface{}) *Error {
	return new_(KindPostprocess, nil, format, args...)
}

func Ref(format string, args ...interface{}) *Error {
	return new_(KindRef, nil, format, args...)
}

func MergeConflict(path string) *Error {
	return new_(KindMergeConflict, nil, "path %q has a merge conflict", path)
}

func PushRejected(remoteSummary string) *Error {
	return new_(KindPushRejected, nil, "remote rejected push: %s", remoteSummary)
}

// UnsupportedRefType is raised by the secret-reference builder for an
// unsupported backend type. It carries the same KindRef as Ref(); only the
// message differs.
func UnsupportedRefType(refType string) *Error {
	return new_(KindRef, nil, "unsupported secret reference type %q", refType)
}

// Is reports whether err is (or wraps) a Commodore error of the given kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// ExitCode maps an error returned by the pipeline coordinator to a process
// exit code per the CLI contract: 0 success, 1 fatal error, 2 misuse, 127
// missing external tool.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var missing *ToolMissingError
	if errors.As(err, &missing) {
		return 127
	}
	return 1
}

// ToolMissingError indicates a required external binary (helm, kustomize,
// jb) could not be resolved on PATH.
type ToolMissingError struct {
	Tool string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("required external tool %q not found on PATH", e.Tool)
}

func ToolMissing(tool string) error {
	return &ToolMissingError{Tool: tool}
}
