package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"regsync/internal/config"
	"regsync/internal/models"
	"regsync/internal/statuspage"
)

// MaintenanceSource yields the registry's announced maintenance windows for a
// date range.
type MaintenanceSource interface {
	FetchMaintenance(ctx context.Context, environment string, start, end time.Time) ([]models.MaintenanceWindow, error)
}

// IncidentService reads and writes scheduled incidents on the status page.
type IncidentService interface {
	ListScheduledIncidents(ctx context.Context) ([]statuspage.Incident, error)
	CreateIncident(ctx context.Context, incident statuspage.IncidentRequest) error
	UpdateIncident(ctx context.Context, id string, incident statuspage.IncidentRequest) error
}

// Syncer orchestrates one reconciliation run: fetch both sides, filter,
// reconcile, write. Writes are sequential and the first error aborts the run;
// the next run re-derives the correct state from scratch, which is safe
// because matching is by exact start time rather than any run-scoped id.
type Syncer struct {
	logger    *slog.Logger
	source    MaintenanceSource
	incidents IncidentService
	cfg       config.Config
	dryRun    bool
	now       func() time.Time
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, source MaintenanceSource, incidents IncidentService, cfg config.Config, dryRun bool) *Syncer {
	return &Syncer{
		logger:    logger,
		source:    source,
		incidents: incidents,
		cfg:       cfg,
		dryRun:    dryRun,
		now:       time.Now,
	}
}

// Sync performs a full reconciliation cycle covering today through one year
// from now.
func (s *Syncer) Sync(ctx context.Context) error {
	s.logger.Info("Starting sync cycle.")

	start := s.now()
	end := start.AddDate(1, 0, 0)

	windows, err := s.source.FetchMaintenance(ctx, s.cfg.Environment, start, end)
	if err != nil {
		return fmt.Errorf("fetch registry maintenance: %w", err)
	}

	incidents, err := s.incidents.ListScheduledIncidents(ctx)
	if err != nil {
		return fmt.Errorf("fetch status page incidents: %w", err)
	}

	windows = FilterWindows(windows, s.cfg.Environment, s.cfg.MonitoredSystem)
	incidents = FilterIncidents(incidents)
	s.logger.Info("Reconciling maintenance windows against scheduled incidents.",
		"windows", len(windows), "incidents", len(incidents))

	for _, action := range Reconcile(s.logger, windows, incidents, s.cfg) {
		if err := s.apply(ctx, action); err != nil {
			return err
		}
	}

	s.logger.Info("Sync cycle finished.")
	return nil
}

func (s *Syncer) apply(ctx context.Context, action Action) error {
	scheduledFor := action.Incident.ScheduledFor

	if s.dryRun {
		if action.IsUpdate() {
			s.logger.Info("[DRY RUN] Would update incident", "id", action.IncidentID, "scheduledFor", scheduledFor)
		} else {
			s.logger.Info("[DRY RUN] Would create incident", "scheduledFor", scheduledFor)
		}
		return nil
	}

	if action.IsUpdate() {
		if err := s.incidents.UpdateIncident(ctx, action.IncidentID, action.Incident); err != nil {
			return fmt.Errorf("update incident %s: %w", action.IncidentID, err)
		}
		s.logger.Info("Updated status page incident.", "id", action.IncidentID, "scheduledFor", scheduledFor)
		return nil
	}

	if err := s.incidents.CreateIncident(ctx, action.Incident); err != nil {
		return fmt.Errorf("create incident for %s: %w", scheduledFor, err)
	}
	s.logger.Info("Created status page incident.", "scheduledFor", scheduledFor)
	return nil
}
