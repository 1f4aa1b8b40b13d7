// Package errors provides the structured error system for unionmountd:
// error codes, categories, retryability, and the negated-errno mapping the
// FUSE layer needs at its handler boundary.
package errors

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrorCode identifies one of the small set of conditions unionmountd
// surfaces to callers.
type ErrorCode string

const (
	// ErrCodeRetryableBusy is returned whenever the readiness gate is
	// closed or a path is a member of the syncing mask.
	ErrCodeRetryableBusy ErrorCode = "RETRYABLE_BUSY"

	// ErrCodeNotFound covers a missing path in both tiers.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeResourceExhausted covers the open-slot ceiling.
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"

	// ErrCodePathTooDeep is returned by the path-depth guard.
	ErrCodePathTooDeep ErrorCode = "PATH_TOO_DEEP"

	// ErrCodeReadOnly is returned for mutating operations while the
	// read-only flag is set.
	ErrCodeReadOnly ErrorCode = "READ_ONLY"

	// ErrCodeMountFailed covers any failure during Mount() setup.
	ErrCodeMountFailed ErrorCode = "MOUNT_FAILED"

	// ErrCodeSessionCreateFailed covers libfuse session creation failure.
	ErrCodeSessionCreateFailed ErrorCode = "SESSION_CREATE_FAILED"

	// ErrCodeChannelMountFailed covers a failed channel mount onto the
	// target mount point.
	ErrCodeChannelMountFailed ErrorCode = "CHANNEL_MOUNT_FAILED"

	// ErrCodeInvalidArg covers malformed Mount() inputs.
	ErrCodeInvalidArg ErrorCode = "INVALID_ARG"

	// ErrCodeAlreadyMounted is returned by Mount() when called twice.
	ErrCodeAlreadyMounted ErrorCode = "ALREADY_MOUNTED"

	// ErrCodeNotMounted is returned by Unmount() when no mount is
	// active.
	ErrCodeNotMounted ErrorCode = "NOT_MOUNTED"

	// ErrCodeInternal is the catch-all for conditions that should not
	// occur in normal operation.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ErrorCategory groups codes for logging and metrics labeling.
type ErrorCategory string

const (
	CategoryAvailability ErrorCategory = "availability"
	CategoryFilesystem   ErrorCategory = "filesystem"
	CategoryResource     ErrorCategory = "resource"
	CategoryMount        ErrorCategory = "mount"
	CategoryInternal     ErrorCategory = "internal"
)

// MountError is the structured error type returned at package boundaries
// throughout unionmountd. It carries enough context for the diagnostic
// log without tying callers to a particular logging implementation.
type MountError struct {
	Code      ErrorCode              `json:"code"`
	Category  ErrorCategory          `json:"category"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Retryable bool                   `json:"retryable"`
	Stack     string                 `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *MountError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *MountError) Unwrap() error {
	return e.Cause
}

// Is reports whether target shares this error's code.
func (e *MountError) Is(target error) bool {
	if other, ok := target.(*MountError); ok {
		return e.Code == other.Code
	}
	return false
}

// String renders a detailed representation for structured logging.
func (e *MountError) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("MountError{%s}", strings.Join(parts, ", "))
}

// JSON renders the error as a JSON object.
func (e *MountError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// New creates a MountError with category and retryability derived from code.
func New(code ErrorCode, message string) *MountError {
	return &MountError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
		Retryable: IsRetryableByDefault(code),
	}
}

// GetCategory maps a code to its category.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeRetryableBusy:
		return CategoryAvailability
	case ErrCodeNotFound, ErrCodePathTooDeep, ErrCodeReadOnly:
		return CategoryFilesystem
	case ErrCodeResourceExhausted:
		return CategoryResource
	case ErrCodeMountFailed, ErrCodeSessionCreateFailed, ErrCodeChannelMountFailed,
		ErrCodeInvalidArg, ErrCodeAlreadyMounted, ErrCodeNotMounted:
		return CategoryMount
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault reports whether a code is retryable absent
// overriding context.
func IsRetryableByDefault(code ErrorCode) bool {
	return code == ErrCodeRetryableBusy || code == ErrCodeResourceExhausted
}

// CaptureStack captures the current goroutine's stack, skipping frames
// from this file.
func CaptureStack(skip int) string {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "errors.go") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return strings.Join(stack, "\n")
}

// WithDetail attaches a key/value pair of diagnostic context.
func (e *MountError) WithDetail(key string, value interface{}) *MountError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the originating component.
func (e *MountError) WithComponent(component string) *MountError {
	e.Component = component
	return e
}

// WithOperation sets the FUSE operation name.
func (e *MountError) WithOperation(operation string) *MountError {
	e.Operation = operation
	return e
}

// WithCause wraps an underlying error.
func (e *MountError) WithCause(cause error) *MountError {
	e.Cause = cause
	return e
}

// WithStack captures and attaches the current stack trace.
func (e *MountError) WithStack() *MountError {
	e.Stack = CaptureStack(2)
	return e
}

// codeErrno maps each code to the errno that ToErrno negates for the
// FUSE layer to return from a handler.
var codeErrno = map[ErrorCode]int{
	ErrCodeRetryableBusy:       int(unix.EAGAIN),
	ErrCodeNotFound:            int(unix.ENOENT),
	ErrCodeResourceExhausted:   int(unix.EMFILE),
	ErrCodePathTooDeep:         int(unix.ELOOP),
	ErrCodeReadOnly:            int(unix.EROFS),
	ErrCodeMountFailed:         int(unix.EIO),
	ErrCodeSessionCreateFailed: int(unix.EIO),
	ErrCodeChannelMountFailed:  int(unix.EIO),
	ErrCodeInvalidArg:          int(unix.EINVAL),
	ErrCodeAlreadyMounted:      int(unix.EBUSY),
	ErrCodeNotMounted:          int(unix.ENODEV),
	ErrCodeInternal:            int(unix.EIO),
}

// ToErrno converts any error into the negative-errno value a cgofuse
// handler must return. Errors produced by syscalls are passed through
// negated (backing-error passthrough); MountError values are mapped via
// codeErrno; anything else falls back to -EIO.
func ToErrno(err error) int {
	if err == nil {
		return 0
	}
	var me *MountError
	if asMountError(err, &me) {
		if errno, ok := codeErrno[me.Code]; ok {
			return -errno
		}
		return -int(unix.EIO)
	}
	if errno, ok := extractErrno(err); ok {
		return -int(errno)
	}
	return -int(unix.EIO)
}

// extractErrno walks an error's Unwrap chain looking for the raw
// syscall.Errno that os.* wraps inside *os.PathError/*os.LinkError, so
// a backing-filesystem failure passes its real errno through instead
// of collapsing to -EIO (spec §7 "backing-error passthrough").
func extractErrno(err error) (syscall.Errno, bool) {
	for err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			return errno, true
		}
		if errno, ok := err.(unix.Errno); ok {
			return syscall.Errno(errno), true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = unwrapper.Unwrap()
	}
	return 0, false
}

func asMountError(err error, target **MountError) bool {
	for err != nil {
		if me, ok := err.(*MountError); ok {
			*target = me
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
