package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	anthropicpkg "github.com/sells-group/pjm-brief/pkg/anthropic"
)

// probe is one connectivity check. It returns a short detail line on success.
type probe struct {
	name string
	run  func(ctx context.Context) (string, error)
}

type probeResult struct {
	name    string
	detail  string
	err     error
	elapsed time.Duration
}

var checkCmd = &cobra.Command{
	Use:       "check [db|llm]",
	Short:     "Check database and Claude connectivity",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"db", "llm"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		probes := selectProbes(args)
		results := runProbes(cmd.Context(), probes)
		return printProbeResults(cmd.OutOrStdout(), results)
	},
}

func selectProbes(args []string) []probe {
	all := []probe{
		{name: "db", run: probeDatabase},
		{name: "llm", run: probeLLM},
	}
	if len(args) == 0 {
		return all
	}
	var out []probe
	for _, p := range all {
		if p.name == args[0] {
			out = append(out, p)
		}
	}
	return out
}

// runProbes runs every probe concurrently. A failing probe does not cancel
// the others.
func runProbes(ctx context.Context, probes []probe) []probeResult {
	results := make([]probeResult, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			start := time.Now()
			detail, err := p.run(ctx)
			results[i] = probeResult{name: p.name, detail: detail, err: err, elapsed: time.Since(start)}
			if err != nil {
				zap.L().Warn("check: probe failed", zap.String("probe", p.name), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func printProbeResults(w io.Writer, results []probeResult) error {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %-4s %s\n", r.name, r.err)
			continue
		}
		fmt.Fprintf(w, "OK   %-4s %s (%s)\n", r.name, r.detail, r.elapsed.Round(time.Millisecond))
	}
	if failed > 0 {
		return eris.Errorf("check: %d of %d probes failed", failed, len(results))
	}
	return nil
}

func probeDatabase(ctx context.Context) (string, error) {
	reader, err := openStore(ctx)
	if err != nil {
		return "", err
	}
	defer reader.Close() //nolint:errcheck

	if err := reader.Ping(ctx); err != nil {
		return "", err
	}
	tables, err := reader.Tables(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("connected; tables: %s", strings.Join(tables, ", ")), nil
}

func probeLLM(ctx context.Context) (string, error) {
	if cfg.Anthropic.Key == "" {
		return "", eris.New("check: anthropic.key is not set")
	}
	resp, err := newAnthropicClient().CreateMessage(ctx, anthropicpkg.MessageRequest{
		Model:     cfg.Anthropic.Model,
		MaxTokens: 64,
		Messages:  []anthropicpkg.Message{{Role: "user", Content: "Hello! Just testing the connection."}},
	})
	if err != nil {
		return "", eris.Wrap(err, "check: create message")
	}
	return fmt.Sprintf("%s replied: %s", resp.Model, strings.TrimSpace(resp.Text())), nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
