package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pondergin "github.com/fwojciec/ponder/gin"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const serveFixtureLongDesc = `Run a scripted chat backend for development.

The server speaks the same HTTP API as the real backend. Replies, reasoning,
sources, delays and failures come from a TOML script; without one a built-in
script is used.

Examples:
  ponder serve-fixture --listen :5000
  ponder serve-fixture replies.toml`

func newServeFixtureCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve-fixture [script.toml]",
		Short: "Run a scripted backend for development",
		Long:  serveFixtureLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadFixtureScript(args)
			if err != nil {
				return err
			}
			return a.serveFixture(cmd, listen, script)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", ":5000", "Address to listen on")
	return cmd
}

func loadFixtureScript(args []string) (pondergin.Script, error) {
	if len(args) == 0 {
		return pondergin.ParseScript(pondergin.DefaultScript)
	}
	return pondergin.LoadScript(args[0])
}

func (a *app) serveFixture(cmd *cobra.Command, listen string, script pondergin.Script) error {
	gin.SetMode(gin.ReleaseMode)
	l := a.stderrLogger(cmd)

	srv := &http.Server{
		Addr:              listen,
		Handler:           pondergin.New(script, pondergin.WithLogger(l)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("fixture backend listening", "addr", listen, "replies", len(script.Replies))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
