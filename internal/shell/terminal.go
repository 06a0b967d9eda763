package shell

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Terminal is a line editor with history on a terminal in raw mode.
type Terminal struct {
	t       *term.Terminal
	fd      int
	restore *term.State
}

// OpenTerminal switches in to raw mode. Output written to the returned
// terminal has its newlines translated for raw mode; Close restores the
// previous mode.
func OpenTerminal(in *os.File, out io.Writer) (*Terminal, error) {
	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	rw := struct {
		io.Reader
		io.Writer
	}{in, out}
	return &Terminal{t: term.NewTerminal(rw, ""), fd: fd, restore: state}, nil
}

func (t *Terminal) ReadLine(prompt string) (string, error) {
	t.t.SetPrompt(prompt)
	return t.t.ReadLine()
}

func (t *Terminal) Write(p []byte) (int, error) {
	return t.t.Write(p)
}

func (t *Terminal) Close() error {
	return term.Restore(t.fd, t.restore)
}
