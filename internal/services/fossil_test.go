package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestPipeline(t *testing.T) (*FossilPipeline, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFossilPipeline(dir, nil)
	if err != nil {
		t.Fatalf("NewFossilPipeline: %v", err)
	}
	return f, dir
}

func TestSanitizeRequest_RedactsNestedSecrets(t *testing.T) {
	req := CallRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		Metadata: map[string]interface{}{
			"apiKey":  "sk-live-12345",
			"source":  "pipeline",
			"nested":  map[string]interface{}{"access_token": "tok-9", "depth": map[string]interface{}{"password": "hunter2"}},
			"configs": []interface{}{map[string]interface{}{"secret": "shh"}},
		},
	}

	sanitized := SanitizeRequest(req)

	raw, err := json.Marshal(sanitized)
	if err != nil {
		t.Fatalf("marshal sanitized: %v", err)
	}
	s := string(raw)

	for _, leaked := range []string{"sk-live-12345", "tok-9", "hunter2", "shh"} {
		if strings.Contains(s, leaked) {
			t.Errorf("sanitized input still contains %q", leaked)
		}
	}
	if got := strings.Count(s, redactedPlaceholder); got != 4 {
		t.Errorf("found %d redactions, expected 4 in %s", got, s)
	}
	if !strings.Contains(s, "pipeline") {
		t.Error("non-sensitive metadata was lost")
	}
	if !strings.Contains(s, "hello") {
		t.Error("message content was lost")
	}
}

func TestInputHash_IgnoresRedactedValues(t *testing.T) {
	base := CallRequest{
		Messages: []Message{{Role: RoleUser, Content: "same question"}},
		Metadata: map[string]interface{}{"apiKey": "sk-one"},
	}
	other := base
	other.Metadata = map[string]interface{}{"apiKey": "sk-two"}

	h1 := InputHash(SanitizeRequest(base))
	h2 := InputHash(SanitizeRequest(other))
	if h1 == "" || len(h1) != 64 {
		t.Fatalf("hash = %q, expected 64 hex chars", h1)
	}
	// The hash covers the sanitized form, so differing credentials do not
	// break duplicate detection.
	if h1 != h2 {
		t.Errorf("hashes differ across redacted values: %s vs %s", h1, h2)
	}

	changed := base
	changed.Messages = []Message{{Role: RoleUser, Content: "different question"}}
	if h3 := InputHash(SanitizeRequest(changed)); h3 == h1 {
		t.Error("different messages produced the same hash")
	}
}

func TestFossilPipeline_RecordWritesDocument(t *testing.T) {
	f, dir := newTestPipeline(t)

	req := CallRequest{
		Messages: []Message{{Role: RoleUser, Content: "audit me"}},
		Purpose:  "summary",
		Context:  "test",
		Metadata: map[string]interface{}{"token": "secret-token"},
	}
	fossilID, hash := f.Record(req, "call_1", "session_1", callOutcome{
		provider:   "openai",
		model:      "gpt-4o",
		success:    true,
		usage:      TokenUsage{TotalTokens: 42},
		cost:       0.125,
		durationMS: 250,
	})

	if fossilID == "" || hash == "" {
		t.Fatalf("Record returned (%q, %q)", fossilID, hash)
	}
	if !strings.HasPrefix(fossilID, "fossil_") {
		t.Errorf("fossil ID = %q, expected fossil_ prefix", fossilID)
	}

	path := filepath.Join(dir, fossilID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("fossil file not written: %v", err)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Error("credential reached disk")
	}
	if !strings.Contains(string(data), redactedPlaceholder) {
		t.Error("redaction placeholder missing from document")
	}

	var record FossilRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("parse fossil: %v", err)
	}
	if record.FossilID != fossilID || record.InputHash != hash {
		t.Errorf("document identity = (%s, %s), expected (%s, %s)",
			record.FossilID, record.InputHash, fossilID, hash)
	}
	if record.Type != FossilType {
		t.Errorf("Type = %q, expected %q", record.Type, FossilType)
	}
	if record.Status != FossilApproved {
		t.Errorf("Status = %q, expected approved", record.Status)
	}
	if record.Outcome.Provider != "openai" || record.Outcome.Tokens != 42 || record.Outcome.CostUSD != 0.125 {
		t.Errorf("Outcome = %+v", record.Outcome)
	}
	if !record.Validation.Valid || len(record.Validation.Warnings) != 0 {
		t.Errorf("Validation = %+v, expected valid with no warnings", record.Validation)
	}
}

func TestFossilPipeline_DuplicateWarning(t *testing.T) {
	f, _ := newTestPipeline(t)
	req := CallRequest{Messages: []Message{{Role: RoleUser, Content: "repeat"}}}

	f.Record(req, "call_1", "s", callOutcome{success: true})
	secondID, _ := f.Record(req, "call_2", "s", callOutcome{success: true})
	thirdID, _ := f.Record(req, "call_3", "s", callOutcome{success: true})

	second, err := f.Load(secondID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(second.Validation.Warnings) != 1 || !strings.Contains(second.Validation.Warnings[0], "seen 1 time(s) before") {
		t.Errorf("second warnings = %v", second.Validation.Warnings)
	}

	third, err := f.Load(thirdID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(third.Validation.Warnings) != 1 || !strings.Contains(third.Validation.Warnings[0], "seen 2 time(s) before") {
		t.Errorf("third warnings = %v", third.Validation.Warnings)
	}
}

func TestFossilPipeline_TruncationWarning(t *testing.T) {
	f, _ := newTestPipeline(t)
	req := CallRequest{Messages: []Message{{Role: RoleUser, Content: "long"}}}

	id, _ := f.Record(req, "call_1", "s", callOutcome{success: true, truncated: true})
	record, err := f.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(record.Validation.Warnings) != 1 || !strings.Contains(record.Validation.Warnings[0], "truncated") {
		t.Errorf("warnings = %v, expected a truncation warning", record.Validation.Warnings)
	}
	if !record.Outcome.Truncated {
		t.Error("Outcome.Truncated = false")
	}
}

func TestFossilPipeline_ListAndFilter(t *testing.T) {
	f, _ := newTestPipeline(t)
	outcomes := []callOutcome{
		{provider: "openai", success: true},
		{provider: "anthropic", success: false, err: "down"},
		{provider: "gemini", success: true},
	}
	for i, out := range outcomes {
		req := CallRequest{Messages: []Message{{Role: RoleUser, Content: string(rune('a' + i))}}}
		f.Record(req, "call", "s", out)
	}

	t.Run("newest first", func(t *testing.T) {
		got := f.List(0, "")
		if len(got) != 3 {
			t.Fatalf("len = %d, expected 3", len(got))
		}
		if got[0].Provider != "gemini" || got[2].Provider != "openai" {
			t.Errorf("order = [%s %s %s], expected newest first", got[0].Provider, got[1].Provider, got[2].Provider)
		}
	})

	t.Run("limit", func(t *testing.T) {
		if got := f.List(2, ""); len(got) != 2 {
			t.Errorf("len = %d, expected 2", len(got))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		rejected := f.List(0, FossilRejected)
		if len(rejected) != 1 || rejected[0].Provider != "anthropic" {
			t.Errorf("rejected = %+v, expected the anthropic failure", rejected)
		}
		if got := f.List(0, FossilApproved); len(got) != 2 {
			t.Errorf("approved = %d, expected 2", len(got))
		}
	})

	if f.Count() != 3 {
		t.Errorf("Count() = %d, expected 3", f.Count())
	}
}

func TestFossilPipeline_FindByInputHash(t *testing.T) {
	f, _ := newTestPipeline(t)
	same := CallRequest{Messages: []Message{{Role: RoleUser, Content: "dup"}}}
	different := CallRequest{Messages: []Message{{Role: RoleUser, Content: "unique"}}}

	firstID, hash := f.Record(same, "call_1", "s", callOutcome{success: true})
	f.Record(different, "call_2", "s", callOutcome{success: true})
	secondID, _ := f.Record(same, "call_3", "s", callOutcome{success: true})

	got := f.FindByInputHash(hash)
	if len(got) != 2 {
		t.Fatalf("len = %d, expected 2", len(got))
	}
	// Oldest first, so replays read in causal order.
	if got[0].FossilID != firstID || got[1].FossilID != secondID {
		t.Errorf("order = [%s %s], expected [%s %s]", got[0].FossilID, got[1].FossilID, firstID, secondID)
	}

	if got := f.FindByInputHash("no-such-hash"); len(got) != 0 {
		t.Errorf("unknown hash returned %d entries", len(got))
	}
}

func TestFossilPipeline_InRange(t *testing.T) {
	f, _ := newTestPipeline(t)
	req := CallRequest{Messages: []Message{{Role: RoleUser, Content: "windowed"}}}
	f.Record(req, "call_1", "s", callOutcome{success: true})

	now := time.Now().UTC()
	if got := f.InRange(now.Add(-time.Hour), now.Add(time.Hour)); len(got) != 1 {
		t.Errorf("in-window len = %d, expected 1", len(got))
	}
	if got := f.InRange(now.Add(time.Hour), time.Time{}); len(got) != 0 {
		t.Errorf("future-window len = %d, expected 0", len(got))
	}
	if got := f.InRange(time.Time{}, time.Time{}); len(got) != 1 {
		t.Errorf("open-window len = %d, expected 1", len(got))
	}
}

func TestFossilPipeline_MemoryOnly(t *testing.T) {
	f, err := NewFossilPipeline("", nil)
	if err != nil {
		t.Fatalf("NewFossilPipeline: %v", err)
	}

	req := CallRequest{Messages: []Message{{Role: RoleUser, Content: "ephemeral"}}}
	id, hash := f.Record(req, "call_1", "s", callOutcome{success: true})
	if id == "" || hash == "" {
		t.Fatalf("Record returned (%q, %q)", id, hash)
	}
	if f.Count() != 1 {
		t.Errorf("Count() = %d, expected 1", f.Count())
	}

	// No file backing, so documents cannot be loaded back.
	if _, err := f.Load(id); err == nil {
		t.Error("Load succeeded without a fossil directory")
	}
}

func TestFossilPipeline_LoadUnknown(t *testing.T) {
	f, _ := newTestPipeline(t)
	if _, err := f.Load("fossil_nope"); err == nil {
		t.Error("Load(unknown) should fail")
	}
}
