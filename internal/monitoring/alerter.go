// Package monitoring posts run alerts to an operator webhook.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pjm-brief/internal/config"
	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailed      AlertType = "run_failed"
	AlertDeliveryFailed AlertType = "delivery_failed"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter turns a finished run into alerts and sends them via webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns the alerts warranted by a run outcome. A clean run
// yields none.
func (a *Alerter) Evaluate(out model.Outcome) []Alert {
	now := time.Now().UTC()
	details := map[string]any{
		"run_id":  out.RunID,
		"reached": string(out.Reached),
	}
	if !out.Date.IsZero() {
		details["date"] = out.Date.Format("2006-01-02")
	}

	switch {
	case out.Failed():
		details["kind"] = string(failure.KindOf(out.Err))
		details["transient"] = failure.IsTransient(out.Err)
		return []Alert{{
			Type:      AlertRunFailed,
			Severity:  "high",
			Message:   fmt.Sprintf("PJM brief run failed after %s: %s", out.Reached, out.Cause()),
			Details:   details,
			Timestamp: now,
		}}
	case out.Partial():
		details["kind"] = string(failure.KindOf(out.Err))
		details["report_path"] = out.ReportPath
		return []Alert{{
			Type:      AlertDeliveryFailed,
			Severity:  "medium",
			Message:   fmt.Sprintf("PJM brief written to %s but not emailed: %s", out.ReportPath, out.Cause()),
			Details:   details,
			Timestamp: now,
		}}
	}
	return nil
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
