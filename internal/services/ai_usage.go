package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// UsageMetric is one terminal provider outcome for one call. Guardrail
// skips (other than the value floor) record a metric too, with provider
// "none" and a skip error message.
type UsageMetric struct {
	Timestamp        time.Time `json:"timestamp"`
	CallID           string    `json:"callId"`
	SessionID        string    `json:"sessionId"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	CostUSD          float64   `json:"costUsd"`
	DurationMS       int64     `json:"durationMs"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	Context          string    `json:"context,omitempty"`
	Purpose          string    `json:"purpose,omitempty"`
	ValueScore       float64   `json:"valueScore"`
	InputHash        string    `json:"inputHash,omitempty"`
	FossilID         string    `json:"fossilId,omitempty"`
	Attempts         int       `json:"attempts,omitempty"`
	Truncated        bool      `json:"truncated,omitempty"`
}

// UsageTracker keeps the session's metrics in memory as the source of truth
// and mirrors them to a single JSON array file through one writer
// goroutine. Concurrent callers only ever append to the in-memory list; the
// file is rewritten whole, atomically, so external readers never observe a
// partial document and writers never interleave.
type UsageTracker struct {
	mu      sync.RWMutex
	metrics []UsageMetric

	path string
	db   *gorm.DB

	notify  chan struct{}
	flushCh chan chan struct{}
	quit    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	log       zerolog.Logger
}

// NewUsageTracker loads any previous usage file from path and starts the
// persister. An empty path keeps the tracker memory-only. db is an optional
// archive mirror and is never read back.
func NewUsageTracker(path string, db *gorm.DB) *UsageTracker {
	t := &UsageTracker{
		path:    path,
		db:      db,
		notify:  make(chan struct{}, 1),
		flushCh: make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     logger.Component("usage"),
	}
	t.loadExisting()
	go t.persistLoop()
	return t
}

// Track appends a metric and schedules a file write. It never blocks on
// I/O.
func (t *UsageTracker) Track(m UsageMetric) {
	t.mu.Lock()
	t.metrics = append(t.metrics, m)
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
		// A write is already pending; it will pick this metric up.
	}

	if t.db != nil {
		go t.archive(m)
	}
}

// Metrics returns a copy of all tracked metrics in append order.
func (t *UsageTracker) Metrics() []UsageMetric {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]UsageMetric, len(t.metrics))
	copy(out, t.metrics)
	return out
}

// Recent returns up to n most recent metrics, newest first.
func (t *UsageTracker) Recent(n int) []UsageMetric {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 || n > len(t.metrics) {
		n = len(t.metrics)
	}
	out := make([]UsageMetric, 0, n)
	for i := len(t.metrics) - 1; i >= len(t.metrics)-n; i-- {
		out = append(out, t.metrics[i])
	}
	return out
}

// InRange returns metrics with from <= timestamp <= to, in append order.
// Zero bounds are open.
func (t *UsageTracker) InRange(from, to time.Time) []UsageMetric {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []UsageMetric
	for _, m := range t.metrics {
		if !from.IsZero() && m.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && m.Timestamp.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Flush forces a file write of the current list and waits for it.
func (t *UsageTracker) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case t.flushCh <- reply:
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes the list one final time and stops the persister.
func (t *UsageTracker) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
		<-t.done
	})
}

func (t *UsageTracker) persistLoop() {
	defer close(t.done)
	for {
		select {
		case <-t.notify:
			t.writeFile()
		case reply := <-t.flushCh:
			t.writeFile()
			close(reply)
		case <-t.quit:
			t.writeFile()
			return
		}
	}
}

// writeFile rewrites the whole usage file via a temp file and rename. Only
// the persister goroutine calls this.
func (t *UsageTracker) writeFile() {
	if t.path == "" {
		return
	}

	snapshot := t.Metrics()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.log.Error().Err(err).Msg("marshal usage metrics")
		return
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.log.Error().Err(err).Msg("create usage dir")
		return
	}
	tmp, err := os.CreateTemp(dir, ".usage-*.json")
	if err != nil {
		t.log.Error().Err(err).Msg("create usage temp file")
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		t.log.Error().Err(err).Msg("write usage temp file")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		t.log.Error().Err(err).Msg("close usage temp file")
		return
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		t.log.Error().Err(err).Msg("replace usage file")
	}
}

// loadExisting restores the metric list from a previous run. A missing file
// is normal; a corrupt one is logged and skipped so the session can start.
func (t *UsageTracker) loadExisting() {
	if t.path == "" {
		return
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Warn().Err(err).Str("path", t.path).Msg("read usage file")
		}
		return
	}
	var metrics []UsageMetric
	if err := json.Unmarshal(data, &metrics); err != nil {
		t.log.Warn().Err(err).Str("path", t.path).Msg("usage file corrupt, starting empty")
		return
	}
	t.metrics = metrics
	t.log.Info().Int("metrics", len(metrics)).Msg("usage history loaded")
}

// archive mirrors one metric into the database, asynchronously.
func (t *UsageTracker) archive(m UsageMetric) {
	row := models.UsageRecord{
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
		ErrorMessage:     truncateString(m.Error, 500),
		Context:          m.Context,
		Purpose:          m.Purpose,
		ValueScore:       m.ValueScore,
		InputHash:        m.InputHash,
		FossilID:         m.FossilID,
		CreatedAt:        m.Timestamp,
	}
	if err := t.db.Create(&row).Error; err != nil {
		t.log.Warn().Err(err).Msg("archive usage record")
	}
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// --- Analytics ---

// PurposeCost is the aggregated spend for one purpose.
type PurposeCost struct {
	Purpose string  `json:"purpose"`
	Calls   int     `json:"calls"`
	CostUSD float64 `json:"costUsd"`
}

// ProviderStats is the aggregated usage for one provider.
type ProviderStats struct {
	Provider    string  `json:"provider"`
	Calls       int     `json:"calls"`
	Tokens      int     `json:"tokens"`
	CostUSD     float64 `json:"costUsd"`
	SuccessRate float64 `json:"successRate"`
}

// DailyStat is the aggregated usage for one UTC calendar day.
type DailyStat struct {
	Date    string  `json:"date"`
	Calls   int     `json:"calls"`
	Tokens  int     `json:"tokens"`
	CostUSD float64 `json:"costUsd"`
}

// UsageAnalytics is the aggregate view over a metric window.
type UsageAnalytics struct {
	TotalCalls    int             `json:"totalCalls"`
	TotalTokens   int             `json:"totalTokens"`
	TotalCostUSD  float64         `json:"totalCostUsd"`
	SuccessRate   float64         `json:"successRate"`
	AvgValueScore float64         `json:"avgValueScore"`
	TopPurposes   []PurposeCost   `json:"topPurposes"`
	Providers     []ProviderStats `json:"providers"`
	DailyTrend    []DailyStat     `json:"dailyTrend"`
}

const topPurposeLimit = 5

// Analytics aggregates metrics in [from, to]. Zero bounds are open. The
// result is independent of metric order; an empty window yields zero values
// and empty slices, never an error.
func (t *UsageTracker) Analytics(from, to time.Time) UsageAnalytics {
	metrics := t.InRange(from, to)

	a := UsageAnalytics{
		TopPurposes: []PurposeCost{},
		Providers:   []ProviderStats{},
		DailyTrend:  []DailyStat{},
	}
	if len(metrics) == 0 {
		return a
	}

	successes := 0
	valueSum := 0.0
	purposes := make(map[string]*PurposeCost)
	providers := make(map[string]*ProviderStats)
	providerSuccess := make(map[string]int)
	days := make(map[string]*DailyStat)

	for _, m := range metrics {
		a.TotalCalls++
		a.TotalTokens += m.TotalTokens
		a.TotalCostUSD += m.CostUSD
		valueSum += m.ValueScore
		if m.Success {
			successes++
		}

		pc := purposes[m.Purpose]
		if pc == nil {
			pc = &PurposeCost{Purpose: m.Purpose}
			purposes[m.Purpose] = pc
		}
		pc.Calls++
		pc.CostUSD += m.CostUSD

		ps := providers[m.Provider]
		if ps == nil {
			ps = &ProviderStats{Provider: m.Provider}
			providers[m.Provider] = ps
		}
		ps.Calls++
		ps.Tokens += m.TotalTokens
		ps.CostUSD += m.CostUSD
		if m.Success {
			providerSuccess[m.Provider]++
		}

		day := m.Timestamp.UTC().Format("2006-01-02")
		ds := days[day]
		if ds == nil {
			ds = &DailyStat{Date: day}
			days[day] = ds
		}
		ds.Calls++
		ds.Tokens += m.TotalTokens
		ds.CostUSD += m.CostUSD
	}

	a.SuccessRate = float64(successes) / float64(a.TotalCalls)
	a.AvgValueScore = valueSum / float64(a.TotalCalls)

	for _, pc := range purposes {
		a.TopPurposes = append(a.TopPurposes, *pc)
	}
	sort.Slice(a.TopPurposes, func(i, j int) bool {
		if a.TopPurposes[i].CostUSD != a.TopPurposes[j].CostUSD {
			return a.TopPurposes[i].CostUSD > a.TopPurposes[j].CostUSD
		}
		return a.TopPurposes[i].Purpose < a.TopPurposes[j].Purpose
	})
	if len(a.TopPurposes) > topPurposeLimit {
		a.TopPurposes = a.TopPurposes[:topPurposeLimit]
	}

	for name, ps := range providers {
		ps.SuccessRate = float64(providerSuccess[name]) / float64(ps.Calls)
		a.Providers = append(a.Providers, *ps)
	}
	sort.Slice(a.Providers, func(i, j int) bool {
		return a.Providers[i].Provider < a.Providers[j].Provider
	})

	for _, ds := range days {
		a.DailyTrend = append(a.DailyTrend, *ds)
	}
	sort.Slice(a.DailyTrend, func(i, j int) bool {
		return a.DailyTrend[i].Date < a.DailyTrend[j].Date
	})

	return a
}

// Stats is shorthand for all-time analytics.
func (t *UsageTracker) Stats() UsageAnalytics {
	return t.Analytics(time.Time{}, time.Time{})
}
