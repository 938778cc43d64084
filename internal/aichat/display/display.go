// Package display writes model replies to the terminal, optionally rendered
// as markdown.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/longkey1/aichat/internal/aichat"
	"golang.org/x/term"
)

const (
	DefaultWidth = 80
	MinWidth     = 40
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Printer writes replies and status lines to one writer.
// Markdown rendering and styles are only applied when the writer is a terminal.
type Printer struct {
	out      io.Writer
	tty      bool
	markdown bool
	width    int
	renderer *glamour.TermRenderer
}

// Option configures a Printer.
type Option func(*Printer)

// WithTerminal overrides terminal detection, mostly for tests.
func WithTerminal(tty bool, width int) Option {
	return func(p *Printer) {
		p.tty = tty
		p.width = width
	}
}

// New returns a printer for out. Markdown is rendered when markdown is set
// and out is a terminal.
func New(out io.Writer, markdown bool, opts ...Option) *Printer {
	p := &Printer{out: out, width: DefaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			p.width = max(w, MinWidth)
		}
	}
	for _, opt := range opts {
		opt(p)
	}

	if markdown && p.tty {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(p.width),
		)
		if err == nil {
			p.renderer = r
			p.markdown = true
		}
	}
	return p
}

// Markdown reports whether replies are rendered as markdown.
func (p *Printer) Markdown() bool {
	return p.markdown
}

// Print writes a whole reply. Single line replies are written as is.
func (p *Printer) Print(text string) {
	text = strings.TrimSpace(text)
	if p.markdown && strings.Contains(text, "\n") {
		if rendered, err := p.renderer.Render(text); err == nil {
			fmt.Fprint(p.out, rendered)
			return
		}
	}
	fmt.Fprintln(p.out, text)
}

// Stream writes the chunks of s as they arrive and returns the trimmed
// reply. With markdown, the raw text is replaced by its rendering once the
// stream ends. The partial reply is returned along with any stream error.
func (p *Printer) Stream(s aichat.Stream) (string, error) {
	var capture strings.Builder
	for s.Next() {
		chunk := s.Chunk()
		capture.WriteString(chunk)
		fmt.Fprint(p.out, chunk)
	}
	raw := capture.String()

	if p.markdown && s.Err() == nil && strings.Contains(strings.TrimSpace(raw), "\n") {
		if rendered, err := p.renderer.Render(raw); err == nil {
			p.clear(raw)
			fmt.Fprint(p.out, rendered)
			return strings.TrimSpace(raw), nil
		}
	}

	if !strings.HasSuffix(raw, "\n") {
		fmt.Fprintln(p.out)
	}
	return strings.TrimSpace(raw), s.Err()
}

// Info writes a status line.
func (p *Printer) Info(format string, args ...any) {
	p.line(infoStyle, format, args...)
}

// Warn writes a warning line.
func (p *Printer) Warn(format string, args ...any) {
	p.line(warnStyle, format, args...)
}

// Error writes an error line.
func (p *Printer) Error(err error) {
	p.line(errorStyle, "Error: %v", err)
}

// Dim writes a faint line.
func (p *Printer) Dim(format string, args ...any) {
	p.line(dimStyle, format, args...)
}

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.tty {
		text = style.Render(text)
	}
	fmt.Fprintln(p.out, text)
}

// clear moves the cursor back over the rows raw took and erases them.
func (p *Printer) clear(raw string) {
	rows := 0
	for _, line := range strings.Split(strings.TrimSuffix(raw, "\n"), "\n") {
		w := lipgloss.Width(line)
		rows += max(1, (w+p.width-1)/p.width)
	}
	// The cursor sits on the last row already.
	if rows > 1 {
		fmt.Fprintf(p.out, "\x1b[%dA", rows-1)
	}
	fmt.Fprint(p.out, "\r\x1b[J")
}
