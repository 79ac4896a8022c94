// Package docops implements the Type Operations command surface: typed
// get/put/append/delete/splice/mark/counter operations over a document,
// addressed by the surface path syntax from the path package. It is
// grounded on the teacher's luvjson/crdtedit type_editors.go +
// document_editor.go, generalized to the counter/timestamp/mark/splice
// operations the teacher never needed.
package docops

import "fmt"

// ErrorKind classifies a failure per spec.md §7. Each typed error below
// reports one of these ten kinds through Classified, so a caller can
// tell failures apart without string-matching error text. Errors that a
// package passes through unwrapped (binding returns host errors as-is)
// carry no kind, and the command layer itself does not call ErrorKind.
type ErrorKind string

const (
	KindWrongType        ErrorKind = "WRONG_TYPE"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindBadPath          ErrorKind = "BAD_PATH"
	KindPathTypeMismatch ErrorKind = "PATH_TYPE_MISMATCH"
	KindTypeMismatch     ErrorKind = "TYPE_MISMATCH"
	KindBadJSON          ErrorKind = "BAD_JSON"
	KindBadDiff          ErrorKind = "BAD_DIFF"
	KindMissingDeps      ErrorKind = "MISSING_DEPS"
	KindBadArgs          ErrorKind = "BAD_ARGS"
	KindHostLogError     ErrorKind = "HOST_LOG_ERROR"
)

// Classified is implemented by every typed error this module produces,
// following the one-struct-per-kind pattern of luvjson/common/errors.go.
type Classified interface {
	error
	ErrorKind() ErrorKind
}

// WrongTypeError: key exists but is not a document.
type WrongTypeError struct{ Key string }

func (e *WrongTypeError) Error() string      { return fmt.Sprintf("WRONG_TYPE: key %q is not a document", e.Key) }
func (e *WrongTypeError) ErrorKind() ErrorKind { return KindWrongType }

// NotFoundError: key missing for a command that requires it.
type NotFoundError struct{ Key string }

func (e *NotFoundError) Error() string      { return fmt.Sprintf("NOT_FOUND: key %q does not exist", e.Key) }
func (e *NotFoundError) ErrorKind() ErrorKind { return KindNotFound }

// BadPathError: path string fails to parse.
type BadPathError struct {
	Path  string
	Cause error
}

func (e *BadPathError) Error() string {
	return fmt.Sprintf("BAD_PATH: %q: %v", e.Path, e.Cause)
}
func (e *BadPathError) ErrorKind() ErrorKind { return KindBadPath }
func (e *BadPathError) Unwrap() error        { return e.Cause }

// PathTypeMismatchError: traversal through an incompatible node.
type PathTypeMismatchError struct {
	Path  string
	Cause error
}

func (e *PathTypeMismatchError) Error() string {
	return fmt.Sprintf("PATH_TYPE_MISMATCH: %q: %v", e.Path, e.Cause)
}
func (e *PathTypeMismatchError) ErrorKind() ErrorKind { return KindPathTypeMismatch }
func (e *PathTypeMismatchError) Unwrap() error         { return e.Cause }

// TypeMismatchError: slot exists with a different type than the
// operation requires.
type TypeMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("TYPE_MISMATCH: %q: want %s, got %s", e.Path, e.Want, e.Got)
}
func (e *TypeMismatchError) ErrorKind() ErrorKind { return KindTypeMismatch }

// BadJSONError: JSON parse failure or root is not an object.
type BadJSONError struct{ Cause error }

func (e *BadJSONError) Error() string        { return fmt.Sprintf("BAD_JSON: %v", e.Cause) }
func (e *BadJSONError) ErrorKind() ErrorKind { return KindBadJSON }
func (e *BadJSONError) Unwrap() error        { return e.Cause }

// BadDiffError: unified diff cannot be applied.
type BadDiffError struct{ Cause error }

func (e *BadDiffError) Error() string        { return fmt.Sprintf("BAD_DIFF: %v", e.Cause) }
func (e *BadDiffError) ErrorKind() ErrorKind { return KindBadDiff }
func (e *BadDiffError) Unwrap() error        { return e.Cause }

// MissingDepsError: apply received changes whose dependencies are absent.
type MissingDepsError struct{ Cause error }

func (e *MissingDepsError) Error() string        { return fmt.Sprintf("MISSING_DEPS: %v", e.Cause) }
func (e *MissingDepsError) ErrorKind() ErrorKind { return KindMissingDeps }
func (e *MissingDepsError) Unwrap() error        { return e.Cause }

// BadArgsError: arity or format of arguments invalid.
type BadArgsError struct{ Cause error }

func (e *BadArgsError) Error() string        { return fmt.Sprintf("BAD_ARGS: %v", e.Cause) }
func (e *BadArgsError) ErrorKind() ErrorKind { return KindBadArgs }
func (e *BadArgsError) Unwrap() error        { return e.Cause }

// HostLogError: the host persistence layer refused the write.
type HostLogError struct{ Cause error }

func (e *HostLogError) Error() string        { return fmt.Sprintf("HOST_LOG_ERROR: %v", e.Cause) }
func (e *HostLogError) ErrorKind() ErrorKind { return KindHostLogError }
func (e *HostLogError) Unwrap() error        { return e.Cause }
