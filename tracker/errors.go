/*
errors.go - Domain error taxonomy

PURPOSE:
  Every failure a repository or the reconciler can report is one of a small
  set of kinds. Store-specific errors never leave the store package; they are
  translated into these types first.

ERROR CATEGORIES:
  1. ErrValidation   - malformed input, caught before touching the store
  2. ErrNotFound     - id lookup miss
  3. ErrConflict     - uniqueness violation (duplicate name or id)
  4. ErrIntegrity    - foreign key violation, or an uncategorized store error
  5. ErrUnknownRole  - reconciliation named a role that does not exist

USAGE:
  Structured errors unwrap to their sentinel, so callers branch with errors.Is
  and render with errors.As + Messages():

    var fe *tracker.FieldError
    if errors.As(err, &fe) {
        respond(400, fe.Messages())
    }

SEE ALSO:
  - store/sqlstore/errors.go: Constraint classification
  - api/handlers.go: HTTP status mapping
*/
package tracker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrIntegrity   = errors.New("integrity violation")
	ErrUnknownRole = errors.New("unknown role")
)

// Field messages shared by every repository implementation.
const (
	MsgAlreadyInUse      = "already in use"
	MsgDuplicateDetected = "duplicate detected"
	MsgNotFound          = "not found"
	MsgStillReferenced   = "still referenced"
	MsgUnknown           = "unknown, see logs"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MessageError is implemented by errors that render as a field -> message map.
type MessageError interface {
	error
	Messages() map[string]any
}

// NotFoundError reports an id that matched no row.
type NotFoundError struct {
	Entity string // e.g. "Game"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", strings.ToLower(e.Entity), e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *NotFoundError) Messages() map[string]any {
	return map[string]any{e.Entity + " id": fmt.Sprintf("Invalid id: %d", e.ID)}
}

// FieldError is a constraint violation attributed to one input field.
// Kind is ErrConflict or ErrIntegrity. Cause keeps the store error for logs
// and is never rendered to callers.
type FieldError struct {
	Kind    error
	Field   string
	Message string
	Cause   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s - %s", e.Kind, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Kind }

func (e *FieldError) Messages() map[string]any {
	return map[string]any{e.Field: e.Message}
}

// Conflict builds a uniqueness FieldError.
func Conflict(field, message string, cause error) *FieldError {
	return &FieldError{Kind: ErrConflict, Field: field, Message: message, Cause: cause}
}

// Integrity builds a referential FieldError.
func Integrity(field, message string, cause error) *FieldError {
	return &FieldError{Kind: ErrIntegrity, Field: field, Message: message, Cause: cause}
}

// UnknownIntegrity is the catch-all for store errors that fit no category.
func UnknownIntegrity(cause error) *FieldError {
	return Integrity("unknown", MsgUnknown, cause)
}

// UnknownRoleError names the first role that failed to resolve.
type UnknownRoleError struct {
	Name string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.Name)
}

func (e *UnknownRoleError) Unwrap() error { return ErrUnknownRole }

func (e *UnknownRoleError) Messages() map[string]any {
	return map[string]any{"Role name": "Invalid name: " + e.Name}
}

// ValidationError collects per-field problems found in a request body.
type ValidationError struct {
	Fields map[string][]string
}

// Add records a message for field. Safe on a zero value.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no problems were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Err returns e as an error, or nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) Messages() map[string]any {
	out := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		out[k] = v
	}
	return out
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a constraint the client can fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrIntegrity) ||
		errors.Is(err, ErrUnknownRole)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
