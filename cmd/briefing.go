package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/evmboard/internal/report"

	"github.com/spf13/cobra"
)

var (
	flagBriefHTML  bool
	flagBriefRaw   bool
	flagBriefWidth int
)

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Management briefing in Markdown, styled for the terminal or as HTML",
	RunE:  runBriefing,
}

func init() {
	briefingCmd.Flags().StringSliceVar(&flagProjects, "projects", nil, "Projects to include (default all)")
	briefingCmd.Flags().StringVar(&flagFrom, "from", "", "Period start (YYYY-MM-DD)")
	briefingCmd.Flags().StringVar(&flagTo, "to", "", "Period end (YYYY-MM-DD); later entries are ignored")
	briefingCmd.Flags().BoolVar(&flagBriefHTML, "html", false, "Write a standalone HTML page")
	briefingCmd.Flags().BoolVar(&flagBriefRaw, "raw", false, "Print the Markdown source")
	briefingCmd.Flags().IntVar(&flagBriefWidth, "width", 100, "Wrap width for terminal output")
	briefingCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(briefingCmd)
}

func runBriefing(_ *cobra.Command, _ []string) error {
	from, to, err := dateRange()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	in, err := report.Collect(st, flagProjects, from, to, thresholds())
	if err != nil {
		return err
	}
	if len(in.Projects) == 0 {
		return fmt.Errorf("%w; add projects first", report.ErrNoProjects)
	}
	md := report.Briefing(in, cfg.General.Currency)

	var out []byte
	switch {
	case flagBriefHTML:
		if out, err = report.RenderHTML(report.BriefingTitle, md); err != nil {
			return err
		}
	case flagBriefRaw || flagOutput != "":
		out = []byte(md)
	default:
		styled, err := report.RenderTerminal(md, flagBriefWidth)
		if err != nil {
			return err
		}
		out = []byte(styled)
	}

	if flagOutput == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(flagOutput, out, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", flagOutput, err)
	}
	fmt.Printf("  Wrote %s\n", flagOutput)
	return nil
}
