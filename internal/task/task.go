// Package task runs ordered lists of named operations with fail-fast
// semantics.
//
// Operations are registered by name in a Table. A Handler starts the
// operation and returns an Awaitable; the Engine waits for it to finish
// before starting the next step, and stops at the first step that cannot be
// dispatched or finishes with a non-zero exit code.
package task

import (
	"strings"
)

// Descriptor names one step of a List and the arguments passed to it.
type Descriptor struct {
	Name string
	Args []string
}

// Op builds a Descriptor.
func Op(name string, args ...string) Descriptor {
	return Descriptor{Name: name, Args: args}
}

// String renders the descriptor as the user would type it.
func (d Descriptor) String() string {
	if len(d.Args) == 0 {
		return d.Name
	}
	return d.Name + " " + strings.Join(d.Args, " ")
}

// List is an ordered sequence of steps.
type List []Descriptor

// Names returns the step names in order.
func (l List) Names() []string {
	names := make([]string, len(l))
	for i, d := range l {
		names[i] = d.Name
	}
	return names
}

// Awaitable is the result of starting an operation.
type Awaitable interface {
	// Done is closed when the operation has finished.
	Done() <-chan struct{}
	// ExitCode is the operation's result once Done is closed; 0 is success.
	ExitCode() int
}

// canceler is implemented by awaitables that can be stopped early.
type canceler interface {
	Cancel() error
}

// cancelReporter is implemented by awaitables that know whether they were
// stopped by Cancel. A cancelled step fails its run even if it exited 0.
type cancelReporter interface {
	Cancelled() bool
}

// Cancelled reports whether aw was stopped by Cancel.
func Cancelled(aw Awaitable) bool {
	c, ok := aw.(cancelReporter)
	return ok && c.Cancelled()
}

type completed struct {
	code int
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (c completed) Done() <-chan struct{} { return closedChan }
func (c completed) ExitCode() int         { return c.code }

// Completed returns an Awaitable that has already finished with code.
func Completed(code int) Awaitable {
	return completed{code: code}
}

// Bool returns an already finished Awaitable that succeeded when ok is true.
func Bool(ok bool) Awaitable {
	if ok {
		return Completed(0)
	}
	return Completed(1)
}
