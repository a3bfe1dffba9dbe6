package syncer

import (
	"log/slog"

	"regsync/internal/config"
	"regsync/internal/models"
	"regsync/internal/statuspage"
)

// Action is a single write the reconciler decided on: an update when
// IncidentID is set, a create otherwise.
type Action struct {
	IncidentID string
	Incident   statuspage.IncidentRequest
}

func (a Action) IsUpdate() bool {
	return a.IncidentID != ""
}

// FilterWindows keeps the windows that concern the monitored system in the
// given environment. The registry feed reports maintenance for many unrelated
// systems and environments that must not be mirrored.
func FilterWindows(windows []models.MaintenanceWindow, environment, system string) []models.MaintenanceWindow {
	var kept []models.MaintenanceWindow
	for _, w := range windows {
		if w.Environment == environment && w.Affects(system) {
			kept = append(kept, w)
		}
	}
	return kept
}

// FilterIncidents keeps the incidents still in the scheduled state.
func FilterIncidents(incidents []statuspage.Incident) []statuspage.Incident {
	var kept []statuspage.Incident
	for _, incident := range incidents {
		if incident.Status == statuspage.StatusScheduled {
			kept = append(kept, incident)
		}
	}
	return kept
}

// Reconcile decides, for each maintenance window, whether a matching incident
// already exists on the status page. A window and an incident describe the
// same event iff their start instants are exactly equal after UTC
// normalization; there is no other correlation key. Windows with a match
// become updates, the rest become creates.
func Reconcile(logger *slog.Logger, windows []models.MaintenanceWindow, incidents []statuspage.Incident, cfg config.Config) []Action {
	actions := make([]Action, 0, len(windows))
	for _, w := range windows {
		var match *statuspage.Incident
		for i := range incidents {
			if !incidents[i].ScheduledFor.UTC().Equal(w.FromTime) {
				continue
			}
			if match != nil {
				// Start times are supposed to be unique on the page side;
				// keep the later entry but make the collision visible.
				logger.Warn("Multiple scheduled incidents share a start time, keeping the later one.",
					"scheduledFor", w.FromTime, "discardedID", match.ID, "keptID", incidents[i].ID)
			}
			match = &incidents[i]
		}

		action := Action{Incident: buildIncident(w, cfg)}
		if match != nil {
			action.IncidentID = match.ID
		}
		actions = append(actions, action)
	}
	return actions
}

// buildIncident assembles the full payload for a window. Create and update
// send the same payload, so a drifted incident is rewritten wholesale.
func buildIncident(w models.MaintenanceWindow, cfg config.Config) statuspage.IncidentRequest {
	return statuspage.IncidentRequest{
		ScheduledFor:                     w.FromTime,
		ScheduledUntil:                   w.ToTime,
		ComponentIDs:                     []string{cfg.ComponentID},
		Name:                             cfg.IncidentName,
		Status:                           statuspage.StatusScheduled,
		Body:                             cfg.IncidentBody,
		ImpactOverride:                   "maintenance",
		ScheduledAutoInProgress:          true,
		ScheduledAutoCompleted:           true,
		AutoTransitionToMaintenanceState: true,
		AutoTransitionToOperationalState: true,
		AutoTweetOnCreation:              true,
		AutoTweetOneHourBefore:           true,
		AutoTweetAtBeginning:             true,
		AutoTweetOnCompletion:            true,
	}
}
