package services

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// FossilType tags every audit record written by this pipeline.
const FossilType = "llm_call"

// Fossil status values. Success approves, failure rejects; both co-exist
// in the store forever.
const (
	FossilApproved = "approved"
	FossilRejected = "rejected"
)

// sensitiveKeys are redacted from fossilized inputs wherever they appear.
// Matching is exact and case-sensitive; these are the known aliases used
// across provider configs and request metadata.
var sensitiveKeys = map[string]struct{}{
	"apiKey":        {},
	"api_key":       {},
	"apikey":        {},
	"token":         {},
	"secret":        {},
	"password":      {},
	"key":           {},
	"auth":          {},
	"authorization": {},
	"accessToken":   {},
	"access_token":  {},
}

const redactedPlaceholder = "[REDACTED]"

// FossilValidation reports input validity at fossilization time.
type FossilValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// FossilOutcome captures what happened to the call.
type FossilOutcome struct {
	Provider   string  `json:"provider,omitempty"`
	Model      string  `json:"model,omitempty"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Tokens     int     `json:"tokens"`
	CostUSD    float64 `json:"costUsd"`
	DurationMS int64   `json:"durationMs"`
	Fallback   bool    `json:"fallback,omitempty"`
	Truncated  bool    `json:"truncated,omitempty"`
}

// FossilRecord is the immutable audit document for one call outcome. The
// input is stored sanitized; the content hash is computed over that
// sanitized form, so identical inputs collide on purpose and credentials
// never reach disk.
type FossilRecord struct {
	FossilID   string                 `json:"fossilId"`
	Type       string                 `json:"type"`
	Timestamp  time.Time              `json:"timestamp"`
	CallID     string                 `json:"callId"`
	SessionID  string                 `json:"sessionId"`
	InputHash  string                 `json:"inputHash"`
	Input      map[string]interface{} `json:"input"`
	Validation FossilValidation       `json:"validation"`
	Outcome    FossilOutcome          `json:"outcome"`
	Purpose    string                 `json:"purpose,omitempty"`
	Context    string                 `json:"context,omitempty"`
	ValueScore float64                `json:"valueScore"`
	Status     string                 `json:"status"`
	Tags       []string               `json:"tags,omitempty"`
}

// SanitizeRequest deep-copies the request through JSON and redacts every
// value under a sensitive key, at any nesting depth.
func SanitizeRequest(req CallRequest) map[string]interface{} {
	raw, err := json.Marshal(req)
	if err != nil {
		return map[string]interface{}{}
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return map[string]interface{}{}
	}
	redactTree(tree)
	return tree
}

func redactTree(node interface{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, val := range v {
			if _, sensitive := sensitiveKeys[key]; sensitive {
				v[key] = redactedPlaceholder
				continue
			}
			redactTree(val)
		}
	case []interface{}:
		for _, item := range v {
			redactTree(item)
		}
	}
}

// InputHash returns the SHA-256 hex digest of the canonical JSON encoding
// of a sanitized input. Map marshaling sorts keys at every level, so field
// order in the original request never changes the hash.
func InputHash(sanitized map[string]interface{}) string {
	canonical, err := json.Marshal(sanitized)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", h)
}

// FossilPipeline writes one JSON file per fossil and keeps a session index
// for queries. Every write is best-effort: a failing disk or database is
// logged and never interferes with the call path.
type FossilPipeline struct {
	dir string
	db  *gorm.DB
	log zerolog.Logger

	mu    sync.RWMutex
	index []models.FossilIndex
}

// NewFossilPipeline creates the fossil directory if needed. An empty dir
// keeps fossils in memory only (index without files).
func NewFossilPipeline(dir string, db *gorm.DB) (*FossilPipeline, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create fossil dir: %w", err)
		}
	}
	return &FossilPipeline{
		dir: dir,
		db:  db,
		log: logger.Component("fossil"),
	}, nil
}

// Record builds, stores and indexes a fossil for one call outcome. It
// returns the fossil ID and input hash for the usage metric, or empty
// strings when fossilization failed. It never returns an error.
func (f *FossilPipeline) Record(req CallRequest, callID, sessionID string, out callOutcome) (string, string) {
	now := time.Now().UTC()
	fossilID := fmt.Sprintf("fossil_%s_%s", now.Format("20060102T150405"), uuid.New().String()[:8])

	sanitized := SanitizeRequest(req)
	hash := InputHash(sanitized)

	var warnings []string
	if out.truncated {
		warnings = append(warnings, "messages truncated to fit token budget")
	}
	if prior := f.countByHash(hash); prior > 0 {
		warnings = append(warnings, fmt.Sprintf("input seen %d time(s) before", prior))
	}

	status := FossilRejected
	if out.success {
		status = FossilApproved
	}

	record := FossilRecord{
		FossilID:  fossilID,
		Type:      FossilType,
		Timestamp: now,
		CallID:    callID,
		SessionID: sessionID,
		InputHash: hash,
		Input:     sanitized,
		Validation: FossilValidation{
			Valid:    true,
			Errors:   []string{},
			Warnings: warnings,
		},
		Outcome: FossilOutcome{
			Provider:   out.provider,
			Model:      out.model,
			Success:    out.success,
			Error:      out.err,
			Tokens:     out.usage.TotalTokens,
			CostUSD:    out.cost,
			DurationMS: out.durationMS,
			Fallback:   out.fallback,
			Truncated:  out.truncated,
		},
		Purpose:    req.Purpose,
		Context:    req.Context,
		ValueScore: req.valueScore(),
		Status:     status,
		Tags:       out.tags,
	}

	path := ""
	if f.dir != "" {
		path = filepath.Join(f.dir, fossilID+".json")
		if err := f.writeRecord(path, &record); err != nil {
			f.log.Error().Err(err).Str("fossil_id", fossilID).Msg("write fossil")
			return "", hash
		}
	}

	entry := models.FossilIndex{
		FossilID:  fossilID,
		InputHash: hash,
		CallID:    callID,
		SessionID: sessionID,
		Provider:  out.provider,
		Model:     out.model,
		Status:    status,
		CostUSD:   out.cost,
		Path:      path,
		CreatedAt: now,
	}
	f.mu.Lock()
	f.index = append(f.index, entry)
	f.mu.Unlock()

	if f.db != nil {
		go func() {
			if err := f.db.Create(&entry).Error; err != nil {
				f.log.Warn().Err(err).Str("fossil_id", fossilID).Msg("index fossil")
			}
		}()
	}

	f.log.Debug().
		Str("fossil_id", fossilID).
		Str("input_hash", hash[:12]).
		Str("status", status).
		Msg("fossil recorded")
	return fossilID, hash
}

// writeRecord persists a fossil file via temp + rename. Fossil files are
// write-once; IDs are unique so nothing is ever overwritten.
func (f *FossilPipeline) writeRecord(path string, record *FossilRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".fossil-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads one fossil document from disk by ID.
func (f *FossilPipeline) Load(fossilID string) (*FossilRecord, error) {
	f.mu.RLock()
	var path string
	for i := range f.index {
		if f.index[i].FossilID == fossilID {
			path = f.index[i].Path
			break
		}
	}
	f.mu.RUnlock()
	if path == "" {
		return nil, fmt.Errorf("fossil %s not found", fossilID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fossil %s: %w", fossilID, err)
	}
	var record FossilRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse fossil %s: %w", fossilID, err)
	}
	return &record, nil
}

// List returns index entries newest first, optionally filtered by status.
func (f *FossilPipeline) List(limit int, status string) []models.FossilIndex {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.FossilIndex
	for i := len(f.index) - 1; i >= 0; i-- {
		if status != "" && f.index[i].Status != status {
			continue
		}
		out = append(out, f.index[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FindByInputHash returns all fossils sharing a content hash, oldest
// first. Duplicates are informational; the pipeline never suppresses them.
func (f *FossilPipeline) FindByInputHash(hash string) []models.FossilIndex {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.FossilIndex
	for i := range f.index {
		if f.index[i].InputHash == hash {
			out = append(out, f.index[i])
		}
	}
	return out
}

// InRange loads fossil documents with from <= timestamp <= to. Unreadable
// files are skipped with a log line.
func (f *FossilPipeline) InRange(from, to time.Time) []FossilRecord {
	f.mu.RLock()
	entries := make([]models.FossilIndex, len(f.index))
	copy(entries, f.index)
	f.mu.RUnlock()

	var out []FossilRecord
	for i := range entries {
		ts := entries[i].CreatedAt
		if !from.IsZero() && ts.Before(from) {
			continue
		}
		if !to.IsZero() && ts.After(to) {
			continue
		}
		record, err := f.Load(entries[i].FossilID)
		if err != nil {
			f.log.Warn().Err(err).Msg("skip unreadable fossil")
			continue
		}
		out = append(out, *record)
	}
	return out
}

// Count returns the number of fossils indexed this session.
func (f *FossilPipeline) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.index)
}

func (f *FossilPipeline) countByHash(hash string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for i := range f.index {
		if f.index[i].InputHash == hash {
			n++
		}
	}
	return n
}
