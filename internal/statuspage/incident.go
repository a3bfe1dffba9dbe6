package statuspage

import "time"

// Incident is the read-only snapshot of a remote incident, reduced to the
// fields the reconciliation needs. Everything else stays on the status page.
type Incident struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Impact       string    `json:"impact"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// IncidentRequest is the payload sent when creating or updating a scheduled
// maintenance incident. All auto-transition and auto-tweet flags are forced on
// so the incident runs its lifecycle without manual intervention.
type IncidentRequest struct {
	ScheduledFor                     time.Time `json:"scheduled_for"`
	ScheduledUntil                   time.Time `json:"scheduled_until"`
	ComponentIDs                     []string  `json:"component_ids"`
	Name                             string    `json:"name"`
	Status                           string    `json:"status"`
	Body                             string    `json:"body"`
	ImpactOverride                   string    `json:"impact_override"`
	ScheduledAutoInProgress          bool      `json:"scheduled_auto_in_progress"`
	ScheduledAutoCompleted           bool      `json:"scheduled_auto_completed"`
	AutoTransitionToMaintenanceState bool      `json:"auto_transition_to_maintenance_state"`
	AutoTransitionToOperationalState bool      `json:"auto_transition_to_operational_state"`
	AutoTweetOnCreation              bool      `json:"auto_tweet_on_creation"`
	AutoTweetOneHourBefore           bool      `json:"auto_tweet_one_hour_before"`
	AutoTweetAtBeginning             bool      `json:"auto_tweet_at_beginning"`
	AutoTweetOnCompletion            bool      `json:"auto_tweet_on_completion"`
}

// incidentEnvelope wraps the request the way the API expects: {"incident": {...}}.
type incidentEnvelope struct {
	Incident IncidentRequest `json:"incident"`
}
