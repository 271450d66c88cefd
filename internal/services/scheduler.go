package services

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SnapshotScheduler exports a usage snapshot once a day at the configured
// time, optionally skipping weekends and holidays.
type SnapshotScheduler struct {
	cfg      config.SnapshotConfig
	exporter *SnapshotExporter
	holidays *HolidayService
	owner    string

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	log     zerolog.Logger
}

func NewSnapshotScheduler(cfg config.SnapshotConfig, exporter *SnapshotExporter, holidays *HolidayService) *SnapshotScheduler {
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "orchestrator"
	}
	return &SnapshotScheduler{
		cfg:      cfg,
		exporter: exporter,
		holidays: holidays,
		owner:    owner,
		log:      logger.Component("scheduler"),
	}
}

func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron = cron.New()
	s.updateSchedule()
	s.cron.Start()
	s.log.Info().Msg("snapshot scheduler started")
}

func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
}

// Reschedule moves the daily export to a new HH:MM time.
func (s *SnapshotScheduler) Reschedule(timeOfDay string) error {
	if _, _, err := parseClockTime(timeOfDay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Time = timeOfDay
	if s.cron != nil {
		s.updateSchedule()
	}
	return nil
}

// updateSchedule replaces the current cron entry. Callers hold s.mu.
func (s *SnapshotScheduler) updateSchedule() {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	hour, minute, err := parseClockTime(s.cfg.Time)
	if err != nil {
		hour, minute = "18", "00"
	}
	cronExpr := fmt.Sprintf("%s %s * * *", minute, hour)

	entryID, err := s.cron.AddFunc(cronExpr, s.run)
	if err != nil {
		s.log.Error().Err(err).Str("cron", cronExpr).Msg("failed to schedule snapshot")
		return
	}

	s.entryID = entryID
	s.log.Info().Str("time", s.cfg.Time).Str("cron", cronExpr).Msg("snapshot export scheduled")
}

// run exports the snapshot for the trailing window. Failures are logged
// and swallowed so a bad export never kills the cron loop.
func (s *SnapshotScheduler) run() {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	if !cfg.Enabled {
		return
	}

	now := time.Now()
	if cfg.WorkdaysOnly && !s.holidays.IsWorkday(now, cfg.Region) {
		s.log.Info().Str("region", cfg.Region).Msg("snapshot skipped, not a workday")
		return
	}

	// One export per day across all instances.
	if db := models.GetDB(); db != nil {
		day := now.Format("2006-01-02")
		if !models.TryAcquireSchedulerLock(db, "snapshot_export", day, s.owner, 6*time.Hour) {
			s.log.Info().Str("date", day).Msg("snapshot already exported by another instance")
			return
		}
	}

	days := cfg.WindowDays
	if days < 1 {
		days = 1
	}
	from := now.AddDate(0, 0, -days)

	if _, err := s.exporter.Export(from, now, cfg.Format); err != nil {
		s.log.Error().Err(err).Msg("scheduled snapshot export failed")
	}
}

// parseClockTime splits an HH:MM string into cron-ready fields.
func parseClockTime(value string) (hour, minute string, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid time %q, expected HH:MM", value)
	}

	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil || h < 0 || h > 23 {
		return "", "", fmt.Errorf("invalid hour in %q", value)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil || m < 0 || m > 59 {
		return "", "", fmt.Errorf("invalid minute in %q", value)
	}
	return parts[0], parts[1], nil
}
