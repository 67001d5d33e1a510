// Package kerrors implements the scheduling core's error taxonomy: caller
// failures (returned as -1 or none, never panics) versus internal invariant
// violations (fatal, stack-traced panics). See spec §7.
package kerrors

import (
	"fmt"

	"github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Error codes for ComplexError, letting callers distinguish failure kinds
// without string-matching messages.
const (
	CodeNoChildren = iota
	CodeNoSuchPid
	CodeCapacityExhausted
	CodeAllocationFailed
)

// Wrap wraps an error for the sake of showing a stack trace at the
// invariant-violation boundary. go-errors does not return nil when asked to
// wrap a non-error, so that case is handled explicitly here.
func Wrap(err error) error {
	if err == nil {
		return err
	}
	return errors.Wrap(err, 0)
}

// ComplexError carries a code so that calling code can distinguish failure
// kinds programmatically, adapted from the xerrors.Frame pattern.
type ComplexError struct {
	Message string
	Code    int
	frame   xerrors.Frame
}

func newComplexError(code int, message string) ComplexError {
	return ComplexError{Message: message, Code: code, frame: xerrors.Caller(1)}
}

// NoChildren reports that wait() was called by a process with no children.
func NoChildren() ComplexError {
	return newComplexError(CodeNoChildren, "no children")
}

// NoSuchPid reports that kill() was given a pid with no live descriptor.
func NoSuchPid(pid int) ComplexError {
	return newComplexError(CodeNoSuchPid, fmt.Sprintf("no such pid: %d", pid))
}

// CapacityExhausted reports that allocproc() found no UNUSED slot.
func CapacityExhausted() ComplexError {
	return newComplexError(CodeCapacityExhausted, "process table full")
}

// AllocationFailed reports that a resource collaborator (kalloc, copyuvm)
// failed mid-fork.
func AllocationFailed(reason string) ComplexError {
	return newComplexError(CodeAllocationFailed, "allocation failed: "+reason)
}

func (ce ComplexError) FormatError(p xerrors.Printer) error {
	p.Printf("%d %s", ce.Code, ce.Message)
	ce.frame.Format(p)
	return nil
}

func (ce ComplexError) Format(f fmt.State, c rune) {
	xerrors.FormatError(ce, f, c)
}

func (ce ComplexError) Error() string {
	return fmt.Sprint(ce)
}

// HasCode reports whether err is (or wraps) a ComplexError with the given
// code.
func HasCode(err error, code int) bool {
	var ce ComplexError
	if xerrors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Fatal panics with a stack-traced, wrapped error. Used for the fatal
// assertions of the core: sched called with state still RUNNING; sleep
// called without a process or a lock; exiting the init process; unknown
// virtual-CPU id; userinit finding no free slot or failing to install its
// image. sched does not check that ptable.lock is held or that interrupts
// are disabled.
func Fatal(message string) {
	panic(Wrap(errors.New(message)))
}
