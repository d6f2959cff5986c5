package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

var day = time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "check", "inspect"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "pjm-brief", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	flag := runCmd.Flags().Lookup("no-email")
	require.NotNil(t, flag, "run command should have --no-email flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestInspectCommand_Flags(t *testing.T) {
	flag := inspectCmd.Flags().Lookup("sample")
	require.NotNil(t, flag)
	assert.Equal(t, "5", flag.DefValue)
}

func TestCheckCommand_Args(t *testing.T) {
	assert.NoError(t, checkCmd.Args(checkCmd, nil))
	assert.NoError(t, checkCmd.Args(checkCmd, []string{"db"}))
	assert.NoError(t, checkCmd.Args(checkCmd, []string{"llm"}))
	assert.Error(t, checkCmd.Args(checkCmd, []string{"smtp"}))
	assert.Error(t, checkCmd.Args(checkCmd, []string{"db", "llm"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("load config: boom")))
	assert.Equal(t, 2, exitCode(&exitError{code: 2, err: errors.New("x")}))
}

func TestOutcomeError(t *testing.T) {
	ok := model.Outcome{State: model.StateDone, Reached: model.StateNotified, Notified: true}
	assert.NoError(t, outcomeError(ok))

	skipped := model.Outcome{State: model.StateDone, Reached: model.StateWritten}
	assert.NoError(t, outcomeError(skipped))

	fatal := model.Outcome{State: model.StateDone, Reached: model.StateStart,
		Err: failure.New(failure.NoDataAvailable, "postgres: no price data")}
	assert.Equal(t, 1, exitCode(outcomeError(fatal)))

	partial := model.Outcome{State: model.StateDone, Reached: model.StateNotifyFailed,
		Err: failure.New(failure.Configuration, "notify: missing mail.to")}
	err := outcomeError(partial)
	assert.Equal(t, 2, exitCode(err))
	assert.True(t, failure.Is(err, failure.Configuration))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "ab...", preview("ab", 3))
	assert.Equal(t, "€€...", preview("€€€", 2))
	assert.Equal(t, 503, len([]rune(preview(strings.Repeat("x", 2000), 500))))
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, model.Outcome{
		State: model.StateDone, Reached: model.StateNotified, Notified: true,
		ReportPath: "reports/pjm_market_brief_20250714.txt",
		Narrative:  "Prices eased across PJM.",
	}, 500)
	assert.Contains(t, buf.String(), "Report saved: reports/pjm_market_brief_20250714.txt")
	assert.Contains(t, buf.String(), "emailed successfully")
	assert.Contains(t, buf.String(), "Prices eased across PJM....")

	buf.Reset()
	printOutcome(&buf, model.Outcome{
		State: model.StateDone, Reached: model.StateNotifyFailed,
		ReportPath: "reports/pjm_market_brief_20250714.txt",
		Err:        failure.Wrap(errors.New("535 auth failed"), failure.Delivery, "notify: send"),
	}, 500)
	assert.Contains(t, buf.String(), "email failed: 535 auth failed")

	buf.Reset()
	printOutcome(&buf, model.Outcome{
		State: model.StateDone, Reached: model.StateStart,
		Err: failure.New(failure.NoDataAvailable, "postgres: no price data"),
	}, 500)
	assert.Contains(t, buf.String(), "Brief run failed after start")
	assert.NotContains(t, buf.String(), "Report saved")
}

func TestPrintProbeResults(t *testing.T) {
	var buf bytes.Buffer
	err := printProbeResults(&buf, []probeResult{
		{name: "db", detail: "connected; tables: realtime_prices"},
		{name: "llm", err: errors.New("401 invalid x-api-key")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 probes failed")
	assert.Contains(t, buf.String(), "OK   db")
	assert.Contains(t, buf.String(), "FAIL llm  401 invalid x-api-key")
}

func TestSelectProbes(t *testing.T) {
	assert.Len(t, selectProbes(nil), 2)
	only := selectProbes([]string{"llm"})
	require.Len(t, only, 1)
	assert.Equal(t, "llm", only[0].name)
}

func TestWriteInspection(t *testing.T) {
	latest := day.Add(17 * time.Hour)
	var buf bytes.Buffer
	err := writeInspection(&buf, []string{"realtime_prices"}, &model.TableProfile{
		Table:    "pjm_data.realtime_prices",
		Columns:  []model.Column{{Name: "node_name", Type: "text"}},
		Latest:   &latest,
		RowCount: 12345678,
		Sample: []model.PriceRecord{{
			Node: "PSEG_1", Zone: "PSEG", LMP: decimal.RequireFromString("120.5"), Timestamp: latest,
		}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "12,345,678")
	assert.Contains(t, out, "table: pjm_data.realtime_prices")
	assert.Contains(t, out, "- realtime_prices")
	assert.Contains(t, out, "node: PSEG_1")
	assert.Contains(t, out, "120.5")
}
