package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/ponder"
	bt "github.com/fwojciec/ponder/bubbletea"
	"github.com/fwojciec/ponder/latex"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const askLongDesc = `Ask one question and print the answer.

The question is taken from the arguments, or read from stdin when there are
none. When stdout is not a terminal the answer is printed without styling.

Examples:
  ponder ask "What does the handbook say about leave?"
  echo "Summarize chapter 2" | ponder ask --reasoning`

const defaultWidth = 80

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and print the answer",
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return a.ask(cmd, question)
		},
	}
}

func readQuestion(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no question given")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading question: %w", err)
	}
	return string(data), nil
}

func (a *app) ask(cmd *cobra.Command, question string) error {
	ctx := cmd.Context()
	l := a.stderrLogger(cmd)
	out := cmd.OutOrStdout()

	tty, width := terminal(out)
	if !tty {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	b, err := newBackend(ctx, a.cfg, l)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(a.cfg, a.theme)
	if err != nil {
		return err
	}

	opts := append(a.sessionOptions(l), ponder.WithWidth(width))
	req := ponder.Request{Message: strings.TrimSpace(question), Reasoning: a.cfg.Chat.Reasoning}
	if err := req.Validate(); err != nil {
		return err
	}
	s := ponder.NewSession(req, renderer, opts...)

	driveErr := ponder.Drive(ctx, s, b.client, ponder.WithTypesetter(latex.New(latex.WithLogger(l))))

	view := bt.NewResponseBlock(s, spinner.Dot, bt.NewStyles(a.theme)).View(width)
	if !tty {
		view = ansi.Strip(view)
	}
	if _, err := fmt.Fprintln(out, view); err != nil {
		return err
	}
	return driveErr
}

// terminal reports whether w is a terminal and its width.
func terminal(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return true, defaultWidth
	}
	return true, width
}
