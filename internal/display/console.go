// Package display renders generated code, plans and loop status to a terminal.
package display

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// #region console
// Console writes styled panels. Color is used only when the writer is a terminal.
type Console struct {
	out   io.Writer
	color bool

	title   lipgloss.Style
	panel   lipgloss.Style
	status  lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
}

// NewConsole detects color support from out when it is an *os.File.
func NewConsole(out io.Writer) *Console {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return newConsole(out, color)
}

// NewPlainConsole never emits escape sequences.
func NewPlainConsole(out io.Writer) *Console {
	return newConsole(out, false)
}

func newConsole(out io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		color:   color,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		panel:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		status:  r.NewStyle().Foreground(lipgloss.Color("6")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
}
// #endregion console

// #region code
// ShowCode prints code with line numbers inside a titled panel.
func (c *Console) ShowCode(title, code string) {
	body := code
	if c.color {
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, code, "javascript", "terminal256", "monokai"); err == nil {
			body = buf.String()
		}
	}
	c.writePanel(title, numberLines(body))
}

func numberLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*d  %s", width, i+1, line)
	}
	return b.String()
}
// #endregion code

// #region plan
// ShowPlan renders a markdown plan. Rendering failures fall back to the raw text.
func (c *Console) ShowPlan(plan string) {
	style := "notty"
	if c.color {
		style = "dark"
	}
	body := plan
	r, err := glamour.NewTermRenderer(glamour.WithStylePath(style), glamour.WithWordWrap(100))
	if err == nil {
		if out, rerr := r.Render(plan); rerr == nil {
			body = strings.TrimRight(out, "\n")
		}
	}
	c.writePanel("Plan", body)
}
// #endregion plan

// #region status
func (c *Console) Status(format string, args ...any) {
	c.line(c.status, format, args...)
}

func (c *Console) Warn(format string, args ...any) {
	c.line(c.warn, format, args...)
}

func (c *Console) Success(format string, args ...any) {
	c.line(c.success, format, args...)
}

func (c *Console) line(st lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		msg = st.Render(msg)
	}
	fmt.Fprintln(c.out, msg)
}

func (c *Console) writePanel(title, body string) {
	w := bufio.NewWriter(c.out)
	defer w.Flush()
	if !c.color {
		fmt.Fprintf(w, "== %s ==\n%s\n", title, body)
		return
	}
	fmt.Fprintln(w, c.title.Render(title))
	fmt.Fprintln(w, c.panel.Render(body))
}
// #endregion status
