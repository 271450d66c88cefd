package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Snapshot formats. CSV flattens to the record rows; JSON and YAML carry
// the same records inside a small envelope. The per-record field set is
// identical in all three.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// SnapshotRecord is one flattened call outcome: the usage metric joined
// with its fossil status.
type SnapshotRecord struct {
	Timestamp        string  `json:"timestamp" yaml:"timestamp"`
	CallID           string  `json:"callId" yaml:"callId"`
	SessionID        string  `json:"sessionId" yaml:"sessionId"`
	Provider         string  `json:"provider" yaml:"provider"`
	Model            string  `json:"model" yaml:"model"`
	PromptTokens     int     `json:"promptTokens" yaml:"promptTokens"`
	CompletionTokens int     `json:"completionTokens" yaml:"completionTokens"`
	TotalTokens      int     `json:"totalTokens" yaml:"totalTokens"`
	CostUSD          float64 `json:"costUsd" yaml:"costUsd"`
	DurationMS       int64   `json:"durationMs" yaml:"durationMs"`
	Success          bool    `json:"success" yaml:"success"`
	Error            string  `json:"error" yaml:"error"`
	Context          string  `json:"context" yaml:"context"`
	Purpose          string  `json:"purpose" yaml:"purpose"`
	ValueScore       float64 `json:"valueScore" yaml:"valueScore"`
	InputHash        string  `json:"inputHash" yaml:"inputHash"`
	FossilID         string  `json:"fossilId" yaml:"fossilId"`
	FossilStatus     string  `json:"fossilStatus" yaml:"fossilStatus"`
	Attempts         int     `json:"attempts" yaml:"attempts"`
	Truncated        bool    `json:"truncated" yaml:"truncated"`
}

// snapshotHeader lists the CSV columns, in SnapshotRecord field order.
var snapshotHeader = []string{
	"timestamp", "callId", "sessionId", "provider", "model",
	"promptTokens", "completionTokens", "totalTokens", "costUsd",
	"durationMs", "success", "error", "context", "purpose", "valueScore",
	"inputHash", "fossilId", "fossilStatus", "attempts", "truncated",
}

func (r SnapshotRecord) row() []string {
	return []string{
		r.Timestamp, r.CallID, r.SessionID, r.Provider, r.Model,
		strconv.Itoa(r.PromptTokens), strconv.Itoa(r.CompletionTokens),
		strconv.Itoa(r.TotalTokens),
		strconv.FormatFloat(r.CostUSD, 'f', -1, 64),
		strconv.FormatInt(r.DurationMS, 10),
		strconv.FormatBool(r.Success),
		r.Error, r.Context, r.Purpose,
		strconv.FormatFloat(r.ValueScore, 'f', -1, 64),
		r.InputHash, r.FossilID, r.FossilStatus,
		strconv.Itoa(r.Attempts),
		strconv.FormatBool(r.Truncated),
	}
}

// SnapshotWindow is the inclusive date range a snapshot covers.
type SnapshotWindow struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// SnapshotTotals summarizes the records in a snapshot.
type SnapshotTotals struct {
	Calls       int     `json:"calls" yaml:"calls"`
	Tokens      int     `json:"tokens" yaml:"tokens"`
	CostUSD     float64 `json:"costUsd" yaml:"costUsd"`
	SuccessRate float64 `json:"successRate" yaml:"successRate"`
	Fossils     int     `json:"fossils" yaml:"fossils"`
}

// SnapshotDocument is the JSON/YAML envelope. CSV output carries only the
// header and record rows.
type SnapshotDocument struct {
	GeneratedAt string           `json:"generatedAt" yaml:"generatedAt"`
	SessionID   string           `json:"sessionId" yaml:"sessionId"`
	Window      SnapshotWindow   `json:"window" yaml:"window"`
	Totals      SnapshotTotals   `json:"totals" yaml:"totals"`
	Records     []SnapshotRecord `json:"records" yaml:"records"`
}

// SnapshotFileInfo describes one exported snapshot on disk.
type SnapshotFileInfo struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"sizeBytes"`
	Modified  time.Time `json:"modified"`
}

// SnapshotExporter serializes windowed usage and fossil data to the
// snapshot directory.
type SnapshotExporter struct {
	dir       string
	tracker   *UsageTracker
	fossils   *FossilPipeline
	sessionID string
	log       zerolog.Logger
}

func NewSnapshotExporter(dir string, tracker *UsageTracker, fossils *FossilPipeline, sessionID string) *SnapshotExporter {
	return &SnapshotExporter{
		dir:       dir,
		tracker:   tracker,
		fossils:   fossils,
		sessionID: sessionID,
		log:       logger.Component("snapshot"),
	}
}

// Build assembles the snapshot document for [from, to] without writing
// anything.
func (e *SnapshotExporter) Build(from, to time.Time) SnapshotDocument {
	metrics := e.tracker.InRange(from, to)

	statusByFossil := make(map[string]string)
	for _, entry := range e.fossils.List(0, "") {
		statusByFossil[entry.FossilID] = entry.Status
	}

	doc := SnapshotDocument{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		SessionID:   e.sessionID,
		Window: SnapshotWindow{
			From: from.UTC().Format(time.RFC3339),
			To:   to.UTC().Format(time.RFC3339),
		},
		Records: make([]SnapshotRecord, 0, len(metrics)),
	}

	successes := 0
	for _, m := range metrics {
		doc.Records = append(doc.Records, SnapshotRecord{
			Timestamp:        m.Timestamp.UTC().Format(time.RFC3339),
			CallID:           m.CallID,
			SessionID:        m.SessionID,
			Provider:         m.Provider,
			Model:            m.Model,
			PromptTokens:     m.PromptTokens,
			CompletionTokens: m.CompletionTokens,
			TotalTokens:      m.TotalTokens,
			CostUSD:          m.CostUSD,
			DurationMS:       m.DurationMS,
			Success:          m.Success,
			Error:            m.Error,
			Context:          m.Context,
			Purpose:          m.Purpose,
			ValueScore:       m.ValueScore,
			InputHash:        m.InputHash,
			FossilID:         m.FossilID,
			FossilStatus:     statusByFossil[m.FossilID],
			Attempts:         m.Attempts,
			Truncated:        m.Truncated,
		})
		doc.Totals.Calls++
		doc.Totals.Tokens += m.TotalTokens
		doc.Totals.CostUSD += m.CostUSD
		if m.Success {
			successes++
		}
		if m.FossilID != "" {
			doc.Totals.Fossils++
		}
	}
	if doc.Totals.Calls > 0 {
		doc.Totals.SuccessRate = float64(successes) / float64(doc.Totals.Calls)
	}
	return doc
}

// Export writes the snapshot for [from, to] in the given format and
// returns the file path. Scheduled callers log and swallow the error; the
// pipeline must never take the host down.
func (e *SnapshotExporter) Export(from, to time.Time, format string) (string, error) {
	doc := e.Build(from, to)

	data, ext, err := encodeSnapshot(doc, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	name := fmt.Sprintf("snapshot_%s_%s_%s.%s",
		from.UTC().Format("20060102"),
		to.UTC().Format("20060102"),
		time.Now().UTC().Format("150405"),
		ext)
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create snapshot temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("place snapshot: %w", err)
	}

	e.log.Info().
		Str("path", path).
		Int("records", len(doc.Records)).
		Str("format", format).
		Msg("snapshot exported")
	return path, nil
}

func encodeSnapshot(doc SnapshotDocument, format string) ([]byte, string, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(doc, "", "  ")
		return data, "json", err
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		return data, "yaml", err
	case FormatCSV:
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		if err := w.Write(snapshotHeader); err != nil {
			return nil, "", err
		}
		for _, r := range doc.Records {
			if err := w.Write(r.row()); err != nil {
				return nil, "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", err
		}
		return []byte(sb.String()), "csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported snapshot format: %s", format)
	}
}

// List returns exported snapshot files, newest first.
func (e *SnapshotExporter) List() ([]SnapshotFileInfo, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SnapshotFileInfo{}, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	out := make([]SnapshotFileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, SnapshotFileInfo{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Modified.After(out[j].Modified)
	})
	return out, nil
}
