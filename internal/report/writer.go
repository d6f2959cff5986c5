// Package report persists the market brief to a dated text file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const title = "PJM Real-Time Market Brief"

var rule = strings.Repeat("=", 70)

// Writer writes report files under a fixed directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Path returns the report path for date. It depends only on the date.
func (w *Writer) Path(date time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("pjm_market_brief_%s.txt", date.Format("20060102")))
}

// Render wraps the narrative in the report envelope.
func Render(narrative string, date, generated time.Time) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "Analysis Date: %s\n", date.Format("2006-01-02"))
	b.WriteString(rule + "\n\n")
	b.WriteString(narrative)
	b.WriteString("\n\n" + rule + "\n")
	fmt.Fprintf(&b, "Report Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	return b.String()
}

// Write renders the report for date and replaces any previous file for the
// same date. The content goes to a temp file in the same directory first and
// is renamed into place.
func (w *Writer) Write(narrative string, date time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create dir %s", w.dir)
	}

	path := w.Path(date)
	tmp, err := os.CreateTemp(w.dir, ".brief-*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "report: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.WriteString(Render(narrative, date, w.now())); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "report: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "report: close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", eris.Wrap(err, "report: chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", eris.Wrapf(err, "report: rename to %s", path)
	}

	zap.L().Info("report: saved", zap.String("path", path))
	return path, nil
}
