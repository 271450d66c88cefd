package services

import (
	"testing"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		value   string
		hour    string
		minute  string
		wantErr bool
	}{
		{"18:00", "18", "00", false},
		{"0:5", "0", "5", false},
		{"23:59", "23", "59", false},
		{"24:00", "", "", true},
		{"12:60", "", "", true},
		{"-1:00", "", "", true},
		{"noon", "", "", true},
		{"12:00:00", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			hour, minute, err := parseClockTime(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if hour != tt.hour || minute != tt.minute {
				t.Errorf("parsed (%q, %q), expected (%q, %q)", hour, minute, tt.hour, tt.minute)
			}
		})
	}
}

func TestSnapshotScheduler_RescheduleValidation(t *testing.T) {
	s := NewSnapshotScheduler(config.SnapshotConfig{Time: "18:00"}, nil, nil)

	if err := s.Reschedule("09:30"); err != nil {
		t.Errorf("Reschedule(09:30): %v", err)
	}
	if err := s.Reschedule("25:00"); err == nil {
		t.Error("Reschedule(25:00) should fail")
	}
	if err := s.Reschedule("not-a-time"); err == nil {
		t.Error("Reschedule(not-a-time) should fail")
	}
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	tracker := NewUsageTracker("", nil)
	t.Cleanup(tracker.Close)
	fossils, err := NewFossilPipeline("", nil)
	if err != nil {
		t.Fatal(err)
	}
	exporter := NewSnapshotExporter(t.TempDir(), tracker, fossils, "s")

	s := NewSnapshotScheduler(config.SnapshotConfig{
		Enabled: true,
		Time:    "18:00",
		Format:  FormatJSON,
	}, exporter, NewHolidayService())

	s.Start()
	if err := s.Reschedule("06:15"); err != nil {
		t.Errorf("Reschedule while running: %v", err)
	}
	s.Stop()

	// Stop without Start must not panic either.
	idle := NewSnapshotScheduler(config.SnapshotConfig{Time: "18:00"}, exporter, NewHolidayService())
	idle.Stop()
}
