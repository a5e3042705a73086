package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/task"
	"github.com/soapbox/simon/internal/term"
)

// clearScreen erases the terminal and moves the cursor home.
const clearScreen = "\x1b[2J\x1b[0;0f"

// Dispatcher runs named operations.
type Dispatcher interface {
	Has(name string) bool
	Dispatch(ctx context.Context, name string, args []string) (task.Awaitable, error)
}

// Canceler stops every running operation.
type Canceler interface {
	CancelAll() int
}

// Options configures a Loop.
type Options struct {
	// Text is shown before each line is read.
	Text string
	// Blacklist holds operations that may not be run interactively.
	Blacklist []string
	// Quit holds the commands that end the loop.
	Quit []string
	// Fallback runs any line that is not an operation, with the whole line
	// as its argument.
	Fallback string
	// Debounce is how long output must be quiet before the prompt is shown
	// again while waiting for input. Zero disables the redraw.
	Debounce time.Duration
	// Out receives the screen-clearing sequence and redrawn prompts.
	Out io.Writer
}

// Loop is the interactive command loop.
type Loop struct {
	opts     Options
	reader   LineReader
	ops      Dispatcher
	canceler Canceler
	redraw   *Debouncer
}

// NewLoop creates a Loop reading from reader.
func NewLoop(opts Options, reader LineReader, ops Dispatcher, canceler Canceler) *Loop {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Loop{
		opts:     opts,
		reader:   reader,
		ops:      ops,
		canceler: canceler,
		redraw:   NewDebouncer(opts.Debounce),
	}
}

// Activity notes that something was written to the terminal. The prompt is
// shown again once activity has been quiet for the debounce period.
func (l *Loop) Activity() {
	l.redraw.Trigger()
}

type lineResult struct {
	line string
	err  error
}

// Ask reads and runs commands until a quit command, end of input, an
// interrupt with nothing running, or ctx is cancelled.
//
// A line is only requested when no started operation is still pending. An
// interrupt while operations are pending cancels them instead of ending
// the loop.
func (l *Loop) Ask(ctx context.Context, signals <-chan os.Signal) error {
	stop := make(chan struct{})
	defer close(stop)
	defer l.redraw.Stop()

	requests := make(chan string)
	lines := make(chan lineResult)
	finished := make(chan int)

	go func() {
		for {
			select {
			case <-stop:
				return
			case text := <-requests:
				line, err := l.reader.ReadLine(text)
				select {
				case lines <- lineResult{line: line, err: err}:
				case <-stop:
					return
				}
			}
		}
	}()

	pending := make(map[int]task.Awaitable)
	next := 0
	reading := false
	request := func() {
		if reading || len(pending) > 0 {
			return
		}
		reading = true
		requests <- l.opts.Text
	}
	wait := func(aw task.Awaitable) {
		id := next
		next++
		pending[id] = aw
		go func() {
			<-aw.Done()
			select {
			case finished <- id:
			case <-stop:
			}
		}()
	}

	request()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-signals:
			if len(pending) > 0 {
				term.Warn("Cancelling running task(s)")
				l.cancelPending(pending)
				continue
			}
			term.Warn("Closing prompt")
			return nil

		case id := <-finished:
			delete(pending, id)
			request()

		case <-l.redraw.C():
			if reading {
				l.showPrompt()
			}

		case res := <-lines:
			reading = false
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					term.Warn("Closing prompt")
					return nil
				}
				return fmt.Errorf("read command: %w", res.err)
			}

			aw, quit := l.handle(ctx, res.line)
			if quit {
				term.Warn("Closing prompt")
				return nil
			}
			if aw != nil {
				select {
				case <-aw.Done():
				default:
					wait(aw)
				}
			}
			request()
		}
	}
}

// cancelPending stops the pending operations themselves, so that a task
// list does not go on to its next step, and then every running process.
func (l *Loop) cancelPending(pending map[int]task.Awaitable) {
	for _, aw := range pending {
		if c, ok := aw.(interface{ Cancel() error }); ok {
			if err := c.Cancel(); err != nil {
				clog.Warn("prompt: cancel: %v", err)
			}
		}
	}
	l.canceler.CancelAll()
}

func (l *Loop) showPrompt() {
	if r, ok := l.reader.(redrawer); ok {
		r.Redraw()
		return
	}
	_, _ = fmt.Fprint(l.opts.Out, "\n"+l.opts.Text)
}

// Parse splits a line into a command and its arguments. The arguments are
// joined into a single string with runs of whitespace collapsed.
func Parse(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) == 1 {
		return fields[0], nil
	}
	return fields[0], []string{strings.Join(fields[1:], " ")}
}

// handle classifies and runs one line. It returns the awaitable of a
// started operation, if any, and whether the loop should end.
func (l *Loop) handle(ctx context.Context, line string) (task.Awaitable, bool) {
	command, args := Parse(line)
	switch {
	case command == "":
		return nil, false

	case slices.Contains(l.opts.Blacklist, command):
		clog.Debug("prompt: rejected blacklisted %q", command)
		term.Warn("The %q command is not available in interactive mode", command)
		return nil, false

	case !strings.HasPrefix(command, "_") && l.ops.Has(command):
		return l.dispatch(ctx, command, args), false

	case slices.Contains(l.opts.Quit, command):
		return nil, true

	case strings.EqualFold(command, "clear"):
		_, _ = fmt.Fprint(l.opts.Out, clearScreen)
		return nil, false
	}

	if l.opts.Fallback == "" || !l.ops.Has(l.opts.Fallback) {
		term.Warn("The %q command was not found or is unavailable", command)
		return nil, false
	}
	return l.dispatch(ctx, l.opts.Fallback, []string{strings.Join(strings.Fields(line), " ")}), false
}

func (l *Loop) dispatch(ctx context.Context, name string, args []string) task.Awaitable {
	clog.Debug("prompt: running %s %v", name, args)
	aw, err := l.ops.Dispatch(ctx, name, args)
	if err != nil {
		term.Error("%v", err)
		return nil
	}
	return aw
}
