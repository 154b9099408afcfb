// Command ponder is a terminal client for a retrieval-augmented chat
// backend. Answers stream in as they are generated; model reasoning is shown
// in its own collapsible region and math is typeset for the terminal.
//
// Usage:
//
//	ponder [flags]                  chat TUI
//	ponder ask <question>           one-shot answer on stdout
//	ponder files                    list stored documents
//	ponder upload <glob>...         upload .pdf, .ppt and .pptx files
//	ponder reset                    start a new backend conversation
//	ponder config init              write ~/.ponder/config.toml
//	ponder serve-fixture [script]   run a scripted backend for development
//
// Configuration is read from ~/.ponder/config.toml and PONDER_* environment
// variables (PONDER_BACKEND_URL, PONDER_GEMINI_API_KEY, ...). Flags win.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ponder: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}
