package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/timeline"
)

var (
	timelineWords bool
	timelineStyle string

	timelineCmd = &cobra.Command{
		Use:   "timeline MANIFEST",
		Short: "Print the unified timeline of a manifest",
		Long: paragraph(fmt.Sprintf("\nPrint where each enabled segment starts and ends on the %s, optionally with every word.",
			keyword("unified timeline"))),
		Example: paragraph("narrator timeline talk.yml\nnarrator timeline talk.yml --words --skip intro"),
		Args:    cobra.ExactArgs(1),
		RunE:    runTimeline,
	}
)

func runTimeline(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	if err := applySelection(s.store, exportOnly, exportSkip); err != nil {
		return err
	}
	tl := timeline.Build(s.store.Segments(), s.store.Enabled())
	md := timelineMarkdown(s.manifest.Title, tl, timelineWords)

	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec
		_, err := io.WriteString(out, md)
		return err //nolint:wrapcheck
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil { //nolint:gosec
		width = min(w, 120)
	}
	styleOpt := glamour.WithStandardStyle(timelineStyle)
	if timelineStyle == styles.AutoStyle {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		styleOpt,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("unable to render timeline: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err //nolint:wrapcheck
}

// timelineMarkdown renders entries as a table and, with words, one line per
// token.
func timelineMarkdown(title string, tl timeline.Timeline, words bool) string {
	var b strings.Builder
	if title == "" {
		title = "Timeline"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "%d segments, %s\n\n", len(tl.Entries), tl.Duration())
	b.WriteString("| # | Segment | Section | Start | End | Duration |\n")
	b.WriteString("|---|---------|---------|-------|-----|----------|\n")
	for _, e := range tl.Entries {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			e.Segment.Order, e.SegmentID, escapeCell(e.Segment.SectionTitle), e.Start, e.End, e.Duration)
	}
	if !words {
		return b.String()
	}

	segment := ""
	for _, tok := range tl.Tokens {
		if tok.SegmentID != segment {
			segment = tok.SegmentID
			heading := tok.SegmentTitle
			if heading == "" {
				heading = tok.SegmentID
			}
			fmt.Fprintf(&b, "\n## %s\n\n", heading)
		}
		fmt.Fprintf(&b, "- `%s` %s\n", tok.Start, escapeCell(tok.Text))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	timelineCmd.Flags().BoolVarP(&timelineWords, "words", "w", false, "list every word with its start time")
	timelineCmd.Flags().StringVarP(&timelineStyle, "style", "s", styles.AutoStyle, "glamour style name")
	timelineCmd.Flags().StringSliceVar(&exportOnly, "only", nil, "include only these segment ids")
	timelineCmd.Flags().StringSliceVar(&exportSkip, "skip", nil, "leave out these segment ids")
}
