package backtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Artifact file names inside a run directory.
const (
	PnLFile     = "pnl.csv"
	SummaryFile = "summary.json"
)

// WriteArtifacts writes pnl.csv and summary.json into dir, creating it.
func WriteArtifacts(dir string, rep Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, PnLFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", PnLFile, err)
	}
	w := bufio.NewWriter(f)
	w.WriteString("ts,eq\n")
	for _, pt := range rep.Curve {
		w.WriteString(pt.TS)
		w.WriteByte(',')
		w.WriteString(formatFloat(pt.Eq))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", PnLFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", PnLFile, err)
	}

	b, err := json.MarshalIndent(rep.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryFile), b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", SummaryFile, err)
	}
	return nil
}

// formatFloat renders v the way the CSV has always been written: shortest
// round-trip digits, a trailing ".0" on integral values, and exponent form
// below 1e-4 or from 1e16.
func formatFloat(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
