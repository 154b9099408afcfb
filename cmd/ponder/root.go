package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fwojciec/ponder"
	bt "github.com/fwojciec/ponder/bubbletea"
	"github.com/fwojciec/ponder/latex"
	"github.com/fwojciec/ponder/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const rootLongDesc = `Ponder is a terminal client for a retrieval-augmented chat backend.

Without a subcommand it opens the chat TUI:
  Enter    send the question
  Ctrl+R   toggle reasoning mode for the next question
  Tab      collapse or expand the focused reasoning block
  Ctrl+N   start a new conversation
  Ctrl+F   list stored documents
  Ctrl+C   stop the answer in progress, or quit`

// app holds what every command resolves before it runs.
type app struct {
	configDir string
	cfg       Config
	theme     ponder.Theme

	// newID generates session correlation ids.
	newID func() string
}

func newRootCmd() *cobra.Command {
	a := &app{theme: ponder.DefaultTheme(), newID: uuid.NewString}

	cmd := &cobra.Command{
		Use:           "ponder",
		Short:         "Chat with your documents from the terminal",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.chat(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config-dir", "", "Config directory (default ~/.ponder)")
	pf.BoolP("debug", "d", false, "Enable debug logging")
	pf.String("backend", "", "Backend: http or gemini")
	pf.StringP("url", "u", "", "Chat backend URL")
	pf.String("renderer", "", "Markdown renderer: goldmark or glamour")
	pf.BoolP("reasoning", "r", false, "Request model reasoning")

	cmd.AddCommand(
		newAskCmd(a),
		newFilesCmd(a),
		newUploadCmd(a),
		newResetCmd(a),
		newConfigCmd(a),
		newServeFixtureCmd(a),
	)
	return cmd
}

// load resolves the configuration for cmd.
func (a *app) load(cmd *cobra.Command) error {
	override, err := cmd.Flags().GetString("config-dir")
	if err != nil {
		return err
	}
	if a.configDir, err = resolveConfigDir(override); err != nil {
		return err
	}
	v, err := initViper(a.configDir)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	a.cfg = loadConfig(v)
	return nil
}

// stderrLogger logs to the command's error stream.
func (a *app) stderrLogger(cmd *cobra.Command) *slog.Logger {
	return logger.New(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithDebug(a.cfg.Log.Debug),
		logger.WithJSON(a.cfg.Log.JSON),
		logger.WithPretty(true),
	)
}

// fileLogger logs to log.file so the TUI's alternate screen stays intact.
func (a *app) fileLogger() (*slog.Logger, io.Closer, error) {
	path := a.cfg.Log.File
	if path == "" {
		path = filepath.Join(a.configDir, logFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	l := logger.New(
		logger.WithWriter(f),
		logger.WithDebug(a.cfg.Log.Debug),
		logger.WithJSON(a.cfg.Log.JSON),
	)
	return l, f, nil
}

func (a *app) sessionOptions(l *slog.Logger) []ponder.SessionOption {
	return []ponder.SessionOption{ponder.WithIDFunc(a.newID), ponder.WithLogger(l)}
}

func (a *app) chat(cmd *cobra.Command) error {
	l, closer, err := a.fileLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	b, err := newBackend(ctx, a.cfg, l)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(a.cfg, a.theme)
	if err != nil {
		return err
	}

	opts := []bt.Option{
		bt.WithTheme(a.theme),
		bt.WithTypesetter(latex.New(latex.WithLogger(l))),
		bt.WithReasoning(a.cfg.Chat.Reasoning),
		bt.WithLogger(l),
	}
	if b.library != nil {
		opts = append(opts, bt.WithLibrary(b.library))
	}
	if b.resetter != nil {
		opts = append(opts, bt.WithResetter(b.resetter))
	}

	l.Info("starting chat", "backend", a.cfg.Backend.Kind, "renderer", a.cfg.Render.Engine)
	lc := ponder.NewLifecycle(renderer, a.sessionOptions(l)...)
	if err := bt.Run(ctx, bt.New(lc, b.client, opts...)); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}
