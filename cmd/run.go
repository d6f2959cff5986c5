package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pjm-brief/internal/model"
	"github.com/sells-group/pjm-brief/internal/monitoring"
	"github.com/sells-group/pjm-brief/internal/narrative"
	"github.com/sells-group/pjm-brief/internal/notify"
	"github.com/sells-group/pjm-brief/internal/pipeline"
	"github.com/sells-group/pjm-brief/internal/report"
)

var runNoEmail bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate today's market brief and email it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}
		if !runNoEmail {
			if missing := cfg.Mail.Missing(); len(missing) > 0 {
				zap.L().Warn("run: mail settings incomplete, the brief will not be emailed",
					zap.Strings("missing", missing))
			}
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)

		reader, err := openStore(ctx)
		if err != nil {
			out := model.Outcome{State: model.StateDone, Reached: model.StateStart, Err: err}
			alerter.SendAlerts(ctx, alerter.Evaluate(out))
			return &exitError{code: 1, err: err}
		}
		defer reader.Close() //nolint:errcheck

		gen := narrative.New(newAnthropicClient(), narrative.Settings{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})

		var notifier pipeline.Notifier
		if !runNoEmail {
			notifier = notify.NewMailer(mailSettings())
		}

		out := pipeline.New(reader, gen, report.NewWriter(cfg.Report.Dir), notifier).Run(ctx)

		printOutcome(cmd.OutOrStdout(), out, cfg.Report.PreviewChars)
		alerter.SendAlerts(ctx, alerter.Evaluate(out))

		return outcomeError(out)
	},
}

// outcomeError converts a finished run into the command's exit status:
// nil for success, code 1 for a fatal failure, code 2 when the report was
// written but not delivered.
func outcomeError(out model.Outcome) error {
	switch {
	case out.Failed():
		return &exitError{code: 1, err: out.Err}
	case out.Partial():
		return &exitError{code: 2, err: out.Err}
	}
	return nil
}

func printOutcome(w io.Writer, out model.Outcome, previewChars int) {
	rule := strings.Repeat("=", 70)

	if out.Failed() {
		fmt.Fprintf(w, "Brief run failed after %s: %s\n", out.Reached, out.Cause())
		return
	}

	fmt.Fprintf(w, "Report saved: %s\n", out.ReportPath)
	fmt.Fprintln(w, rule)
	switch {
	case out.Notified:
		fmt.Fprintln(w, "Daily brief completed and emailed successfully.")
	case out.Partial():
		fmt.Fprintf(w, "Report generated but email failed: %s\n", out.Cause())
	default:
		fmt.Fprintln(w, "Report generated; email skipped.")
	}
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "REPORT PREVIEW:")
	fmt.Fprintln(w, preview(out.Narrative, previewChars))
	fmt.Fprintln(w, rule)
}

// preview returns the first n runes of s followed by an ellipsis.
func preview(s string, n int) string {
	r := []rune(s)
	if n >= 0 && len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

func init() {
	runCmd.Flags().BoolVar(&runNoEmail, "no-email", false, "write the report without emailing it")
	rootCmd.AddCommand(runCmd)
}
