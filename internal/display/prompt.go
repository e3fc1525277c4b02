package display

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNoInput is returned when the input stream ends before an answer.
var ErrNoInput = errors.New("no input")

// Prompter asks the operator for free text and yes/no answers.
type Prompter interface {
	Input(question string) (string, error)
	Confirm(question string) (bool, error)
}

// NewPrompter uses interactive forms on a terminal and a line reader otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return formPrompter{}
	}
	return NewLinePrompter(in, out)
}

// #region form
type formPrompter struct{}

func (formPrompter) Input(question string) (string, error) {
	var answer string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title(question).Value(&answer),
	)).Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (formPrompter) Confirm(question string) (bool, error) {
	var yes bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(question).Affirmative("Yes").Negative("No").Value(&yes),
	)).Run()
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	return yes, nil
}
// #endregion form

// #region line
// LinePrompter reads one answer per line. Used for pipes and tests.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLinePrompter(r io.Reader, w io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(r), out: w}
}

func (p *LinePrompter) Input(question string) (string, error) {
	fmt.Fprintf(p.out, "%s ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm accepts y or yes in any case. Anything else is no.
func (p *LinePrompter) Confirm(question string) (bool, error) {
	answer, err := p.Input(question + " (y/n)")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
// #endregion line
