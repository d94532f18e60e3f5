// Package console implements the console-printer collaborator the
// scheduler core treats as opaque (spec §6: "a console printer used only
// outside interrupt context and only after schedule_tail completes").
//
// Board renders a live tid/name/status/priority/nice/recent_cpu table for
// the "ksched monitor" command, grounded on the teacher's use of
// golang.org/x/term in container/exec.go (there, for attaching a raw
// terminal to a running container's process; here, for toggling raw mode
// on the controlling terminal while the monitor repaints in place) and on
// the tabwriter-based table rendering of the teacher's container-list
// command.
package console

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"
)

// Row is one line of the live monitor table. It is a plain data snapshot,
// not a *kernel.Thread, so the console collaborator never needs to import
// the kernel package, matching spec §6's collaborator boundary.
type Row struct {
	TID       int64
	Name      string
	Status    string
	Priority  int
	Donated   int
	Nice      int
	RecentCPU int // already scaled by 100, as kernel.GetRecentCPU reports it
}

// Board is a live status board over an io.Writer, typically the
// controlling terminal. It is never invoked from kernel.Tick or any other
// interrupt-context path.
type Board struct {
	out      io.Writer
	fd       int
	oldState *term.State
	raw      bool
}

// NewBoard returns a Board writing to out. If out is the process's stdout
// and stdout is a terminal, EnableRawMode can later put it in raw mode for
// flicker-free repainting.
func NewBoard(out io.Writer) *Board {
	b := &Board{out: out, fd: -1}
	if f, ok := out.(*os.File); ok {
		b.fd = int(f.Fd())
	}
	return b
}

// IsTerminal reports whether the Board's output is an interactive
// terminal.
func (b *Board) IsTerminal() bool {
	return b.fd >= 0 && term.IsTerminal(b.fd)
}

// Width returns the terminal width, or a safe fallback of 80 columns if
// the output isn't a terminal or the size can't be determined.
func (b *Board) Width() int {
	if !b.IsTerminal() {
		return 80
	}
	w, _, err := term.GetSize(b.fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// EnableRawMode puts the Board's terminal into raw mode, returning nil if
// the output isn't a terminal (in which case there's nothing to restore).
// Must be paired with Restore.
func (b *Board) EnableRawMode() error {
	if !b.IsTerminal() {
		return nil
	}
	old, err := term.MakeRaw(b.fd)
	if err != nil {
		return fmt.Errorf("console: enable raw mode: %w", err)
	}
	b.oldState = old
	b.raw = true
	return nil
}

// Restore restores the terminal to the state it was in before EnableRawMode
// was called. Safe to call even if EnableRawMode was never called or the
// output wasn't a terminal.
func (b *Board) Restore() error {
	if !b.raw || b.oldState == nil {
		return nil
	}
	b.raw = false
	if err := term.Restore(b.fd, b.oldState); err != nil {
		return fmt.Errorf("console: restore terminal: %w", err)
	}
	return nil
}

// clearScreen is the ANSI sequence to clear the terminal and home the
// cursor, used between repaints in raw mode.
const clearScreen = "\x1b[2J\x1b[H"

// Paint renders rows as a table. In raw mode it first clears the screen so
// each repaint overwrites the last, and translates bare newlines to CRLF
// since a raw terminal won't do that itself; otherwise it simply appends,
// suitable for a non-interactive log.
func (b *Board) Paint(rows []Row) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TID\tNAME\tSTATUS\tPRIORITY\tDONATED\tNICE\tRECENT_CPU")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%.2f\n",
			r.TID, r.Name, r.Status, r.Priority, r.Donated, r.Nice, float64(r.RecentCPU)/100)
	}
	w.Flush()

	if b.raw {
		fmt.Fprint(b.out, clearScreen)
		fmt.Fprint(b.out, bytes.ReplaceAll(buf.Bytes(), []byte("\n"), []byte("\r\n")))
		return
	}
	b.out.Write(buf.Bytes())
}
