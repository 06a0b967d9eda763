// Package shell is a line oriented editor for debug flows. Every command
// maps onto an operation of the document store.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/render"
	"github.com/debug-flow/debug-flow/internal/revision"
	"github.com/debug-flow/debug-flow/internal/store"
)

var (
	errQuit         = errors.New("quit")
	ErrUsage        = errors.New("usage")
	ErrUnknownInput = errors.New("unknown command")
)

// Git is the part of the repository API the shell queries directly.
type Git interface {
	revision.CommitResolver
	RepositoryStatus(ctx context.Context) (contracts.RepositoryStatus, error)
}

type Options struct {
	Store    *store.Store
	UI       *store.UIStore
	Git      Git
	Printer  *render.Printer
	Notifier *Notifier
	Out      io.Writer
}

type Shell struct {
	store    *store.Store
	ui       *store.UIStore
	git      Git
	printer  *render.Printer
	notifier *Notifier
	out      io.Writer
	commands map[string]command
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

func New(opts Options) *Shell {
	ui := opts.UI
	if ui == nil {
		ui = store.NewUIStore(nil)
	}
	sh := &Shell{
		store:    opts.Store,
		ui:       ui,
		git:      opts.Git,
		printer:  opts.Printer,
		notifier: opts.Notifier,
		out:      opts.Out,
	}
	if sh.out == nil {
		sh.out = io.Discard
	}
	if sh.printer == nil {
		sh.printer = render.NewPrinter(sh.out, render.ThemeAuto, render.ColorNever)
	}
	sh.commands = sh.buildCommands()
	return sh
}

// Notifier prints store notifications to the terminal. It remembers the
// last failure it printed so the shell does not report it twice.
type Notifier struct {
	w io.Writer

	mu   sync.Mutex
	last error
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Success(msg string) {
	fmt.Fprintln(n.w, msg)
}

func (n *Notifier) Error(err error) {
	slog.Debug("store operation failed", slog.Any("error", err))
	fmt.Fprintf(n.w, "error: %v\n", err)
	n.mu.Lock()
	n.last = err
	n.mu.Unlock()
}

// reported reports whether err, or an error it wraps, was already printed
// since the last call, and forgets the printed failure.
func (n *Notifier) reported(err error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	last := n.last
	n.last = nil
	return err != nil && last != nil && errors.Is(err, last)
}

// LineReader yields one command line per call. io.EOF ends the session.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

type scannerLines struct {
	out     io.Writer
	scanner *bufio.Scanner
}

func (s *scannerLines) ReadLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		fmt.Fprintln(s.out)
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// Run reads commands from in until it is exhausted, quit is entered or ctx
// is cancelled.
func (sh *Shell) Run(ctx context.Context, in io.Reader) error {
	return sh.Serve(ctx, &scannerLines{out: sh.out, scanner: bufio.NewScanner(in)})
}

// Serve runs the commands read from lines. Command errors are printed and
// do not stop the loop.
func (sh *Shell) Serve(ctx context.Context, lines LineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := lines.ReadLine(sh.prompt())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		err = sh.Exec(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil && !sh.alreadyReported(err):
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

func (sh *Shell) alreadyReported(err error) bool {
	return sh.notifier != nil && sh.notifier.reported(err)
}

// Exec runs a single command line.
func (sh *Shell) Exec(ctx context.Context, line string) error {
	if sh.notifier != nil {
		sh.notifier.reported(nil)
	}
	args := render.Tokenize(strings.TrimSpace(line))
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}
	name := strings.ToLower(args[0])
	cmd, ok := sh.commands[name]
	if !ok {
		return fmt.Errorf("%w %q, try help", ErrUnknownInput, args[0])
	}
	slog.Debug("shell command", slog.String("command", name), slog.Int("args", len(args)-1))
	return cmd.run(ctx, args[1:])
}

func (sh *Shell) prompt() string {
	snap := sh.store.Snapshot()
	name := "no flow"
	if snap.CurrentFlow != nil {
		name = snap.CurrentFlow.Name
	}
	if snap.HasUnsavedChanges {
		name += "*"
	}
	return fmt.Sprintf("debug-flow [%s]> ", name)
}

func (sh *Shell) usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, sh.commands[name].usage)
}

func (sh *Shell) help(_ context.Context, args []string) error {
	if len(args) > 0 {
		cmd, ok := sh.commands[args[0]]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownInput, args[0])
		}
		_, err := fmt.Fprintf(sh.out, "%s\n  %s\n", cmd.usage, cmd.help)
		return err
	}
	names := make([]string, 0, len(sh.commands))
	for name := range sh.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cmd := sh.commands[name]
		fmt.Fprintf(sh.out, "  %-38s %s\n", cmd.usage, cmd.help)
	}
	return nil
}
