package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/gemini"
	"github.com/fwojciec/ponder/glamour"
	"github.com/fwojciec/ponder/goldmark"
	ponderhttp "github.com/fwojciec/ponder/http"
)

// backend bundles the interfaces a configured backend provides. library and
// resetter are nil when the backend has no document store.
type backend struct {
	client   ponder.Client
	library  ponder.Library
	resetter ponder.Resetter
}

// errNoDocuments is returned by document commands on a backend without a
// document store.
var errNoDocuments = errors.New("backend has no document store")

func newBackend(ctx context.Context, cfg Config, logger *slog.Logger) (backend, error) {
	switch cfg.Backend.Kind {
	case "http", "":
		c := ponderhttp.New(cfg.Backend.URL, ponderhttp.WithLogger(logger))
		return backend{client: c, library: c, resetter: c}, nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return backend{}, errors.New("gemini.api_key is not set (PONDER_GEMINI_API_KEY)")
		}
		c, err := gemini.New(ctx, cfg.Gemini.APIKey,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithReasoningModel(cfg.Gemini.ReasoningModel),
		)
		if err != nil {
			return backend{}, err
		}
		return backend{client: c}, nil
	}
	return backend{}, fmt.Errorf("unknown backend %q: want http or gemini", cfg.Backend.Kind)
}

func newRenderer(cfg Config, theme ponder.Theme) (ponder.Renderer, error) {
	gm := goldmark.New(goldmark.WithTheme(theme), goldmark.WithCodeStyle(cfg.Render.CodeStyle))
	switch cfg.Render.Engine {
	case "goldmark", "":
		return gm, nil
	case "glamour":
		return glamour.New(glamour.WithStyle(cfg.Render.Style), glamour.WithFallback(gm)), nil
	}
	return nil, fmt.Errorf("unknown renderer %q: want goldmark or glamour", cfg.Render.Engine)
}
