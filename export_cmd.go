package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

var (
	exportOutput string
	exportOnly   []string
	exportSkip   []string

	exportCmd = &cobra.Command{
		Use:   "export MANIFEST",
		Short: "Write the enabled segments to a single WAV file",
		Long: paragraph(fmt.Sprintf("\n%s the segments of a manifest into one WAV file in the configured output format. Use --only or --skip to choose sections.",
			keyword("Assemble"))),
		Example: paragraph("narrator export talk.yml -o talk.wav\nnarrator export talk.yml --skip intro,outro"),
		Args:    cobra.ExactArgs(1),
		RunE:    runExport,
	}
)

// applySelection narrows the enabled set to only, then disables skip.
func applySelection(store *timeline.Store, only, skip []string) error {
	if len(only) > 0 {
		keep := make(map[string]bool, len(only))
		for _, id := range only {
			keep[id] = true
			if _, err := store.Toggle(id, true); err != nil {
				return err
			}
		}
		for _, s := range store.Segments() {
			if !keep[s.ID] {
				if _, err := store.Toggle(s.ID, false); err != nil {
					return err
				}
			}
		}
	}
	for _, id := range skip {
		if _, err := store.Toggle(id, false); err != nil {
			return fmt.Errorf("skip %s: %w", id, err)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	if err := applySelection(s.store, exportOnly, exportSkip); err != nil {
		return err
	}
	tl := timeline.Build(s.store.Segments(), s.store.Enabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := s.assemble.Assemble(ctx, tl.Segments())
	if err != nil {
		return fmt.Errorf("unable to assemble audio: %w", err)
	}
	defer res.Release()

	for _, sk := range res.Skipped {
		log.Warn("segment left out", "segment", sk.SegmentID, "err", sk.Err)
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", sk.SegmentID, sk.Err)
	}

	out := exportOutput
	if out == "" {
		out = strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".wav"
	}
	if err := os.WriteFile(out, res.Data(), 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %s, %d of %d segments)\n",
		out, humanize.Bytes(uint64(res.Size())), res.Duration().Round(100*time.Millisecond), //nolint:gosec
		len(res.Included), len(tl.Entries))
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default MANIFEST with a .wav extension)")
	exportCmd.Flags().StringSliceVar(&exportOnly, "only", nil, "export only these segment ids")
	exportCmd.Flags().StringSliceVar(&exportSkip, "skip", nil, "leave out these segment ids")
}
