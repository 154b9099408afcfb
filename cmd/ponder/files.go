package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/ponder"
	bt "github.com/fwojciec/ponder/bubbletea"
	"github.com/fwojciec/ponder/fs"
	"github.com/spf13/cobra"
)

func newFilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the documents in the backend's store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.library(cmd)
			if err != nil {
				return err
			}
			files, err := lib.ListFiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("list files: %w", err)
			}
			out := cmd.OutOrStdout()
			tty, width := terminal(out)
			view := bt.NewFilesBlock(files, bt.NewStyles(a.theme)).View(width)
			if !tty {
				view = ansi.Strip(view)
			}
			_, err = fmt.Fprintln(out, view)
			return err
		},
	}
}

const uploadLongDesc = `Upload documents to the backend's store.

Arguments are files or doublestar glob patterns ("docs/**/*.pdf"). Only .pdf,
.ppt and .pptx files up to upload.max_bytes are sent; other matches are
reported and skipped.`

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file-or-glob>...",
		Short: "Upload documents",
		Long:  uploadLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library(cmd)
			if err != nil {
				return err
			}
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			docs, rejected := fs.Collect(dir, a.cfg.Upload.MaxBytes, args...)
			if len(docs) == 0 && rejected != nil {
				return rejected
			}
			out := cmd.OutOrStdout()
			for _, doc := range docs {
				res, err := upload(cmd, lib, doc)
				if err != nil {
					return fmt.Errorf("upload %s: %w", doc.Name(), err)
				}
				fmt.Fprintf(out, "Uploaded %s (%s, %d chunks)\n", res.Filename, fs.HumanSize(doc.Size), res.Chunks)
			}
			return rejected
		},
	}
}

func upload(cmd *cobra.Command, lib ponder.Library, doc fs.Document) (ponder.UploadResult, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return ponder.UploadResult{}, err
	}
	defer f.Close()
	return lib.Upload(cmd.Context(), doc.Path, f)
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the backend conversation and start a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBackend(cmd.Context(), a.cfg, a.stderrLogger(cmd))
			if err != nil {
				return err
			}
			if b.resetter == nil {
				return fmt.Errorf("%s backend keeps no conversation to reset", a.cfg.Backend.Kind)
			}
			if err := b.resetter.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "New conversation started.")
			return err
		},
	}
}

func (a *app) library(cmd *cobra.Command) (ponder.Library, error) {
	b, err := newBackend(cmd.Context(), a.cfg, a.stderrLogger(cmd))
	if err != nil {
		return nil, err
	}
	if b.library == nil {
		return nil, fmt.Errorf("%s: %w", a.cfg.Backend.Kind, errNoDocuments)
	}
	return b.library, nil
}
