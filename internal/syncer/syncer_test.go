package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regsync/internal/config"
	"regsync/internal/models"
	"regsync/internal/statuspage"
)

var testCfg = config.Config{
	ComponentID:     "comp-1",
	MonitoredSystem: "epp.nic.ch",
	Environment:     "production",
	IncidentName:    config.DefaultIncidentName,
	IncidentBody:    config.DefaultIncidentBody,
}

var (
	windowStart = time.Date(2024, time.July, 13, 21, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, time.July, 14, 1, 0, 0, 0, time.UTC)
)

func productionWindow() models.MaintenanceWindow {
	return models.MaintenanceWindow{
		Systems:     []string{"epp.nic.ch", "rdap.nic.ch"},
		Environment: "production",
		FromTime:    windowStart,
		ToTime:      windowEnd,
		Reason:      "Database migration",
	}
}

func scheduledIncident(id string, scheduledFor time.Time) statuspage.Incident {
	return statuspage.Incident{
		ID:           id,
		Status:       statuspage.StatusScheduled,
		Impact:       "maintenance",
		ScheduledFor: scheduledFor,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	windows []models.MaintenanceWindow
	err     error
}

func (f *fakeSource) FetchMaintenance(ctx context.Context, environment string, start, end time.Time) ([]models.MaintenanceWindow, error) {
	return f.windows, f.err
}

type fakeIncidentService struct {
	incidents []statuspage.Incident
	listErr   error
	createErr error
	updateErr error

	createCalls int
	created     []statuspage.IncidentRequest
	updated     map[string]statuspage.IncidentRequest
}

func (f *fakeIncidentService) ListScheduledIncidents(ctx context.Context) ([]statuspage.Incident, error) {
	return f.incidents, f.listErr
}

func (f *fakeIncidentService) CreateIncident(ctx context.Context, incident statuspage.IncidentRequest) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, incident)
	return nil
}

func (f *fakeIncidentService) UpdateIncident(ctx context.Context, id string, incident statuspage.IncidentRequest) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]statuspage.IncidentRequest)
	}
	f.updated[id] = incident
	return nil
}

func TestFilterWindows(t *testing.T) {
	windows := []models.MaintenanceWindow{
		productionWindow(),
		{Systems: []string{"epp.nic.ch"}, Environment: "pre-production", FromTime: windowStart},
		{Systems: []string{"whois.nic.ch"}, Environment: "production", FromTime: windowStart},
	}

	kept := FilterWindows(windows, "production", "epp.nic.ch")
	require.Len(t, kept, 1)
	assert.Equal(t, productionWindow(), kept[0])
}

func TestFilterIncidents(t *testing.T) {
	incidents := []statuspage.Incident{
		scheduledIncident("inc-1", windowStart),
		{ID: "inc-2", Status: "in_progress", Impact: "maintenance", ScheduledFor: windowStart},
		{ID: "inc-3", Status: "completed", Impact: "maintenance", ScheduledFor: windowStart},
	}

	kept := FilterIncidents(incidents)
	require.Len(t, kept, 1)
	assert.Equal(t, "inc-1", kept[0].ID)
}

func TestReconcileCreatesWhenNoIncidentMatches(t *testing.T) {
	actions := Reconcile(discardLogger(), []models.MaintenanceWindow{productionWindow()}, nil, testCfg)

	require.Len(t, actions, 1)
	action := actions[0]
	assert.False(t, action.IsUpdate())

	incident := action.Incident
	assert.True(t, incident.ScheduledFor.Equal(windowStart))
	assert.True(t, incident.ScheduledUntil.Equal(windowEnd))
	assert.Equal(t, []string{"comp-1"}, incident.ComponentIDs)
	assert.Equal(t, config.DefaultIncidentName, incident.Name)
	assert.Equal(t, statuspage.StatusScheduled, incident.Status)
	assert.Equal(t, config.DefaultIncidentBody, incident.Body)
	assert.Equal(t, "maintenance", incident.ImpactOverride)
	assert.True(t, incident.ScheduledAutoInProgress)
	assert.True(t, incident.ScheduledAutoCompleted)
	assert.True(t, incident.AutoTransitionToMaintenanceState)
	assert.True(t, incident.AutoTransitionToOperationalState)
	assert.True(t, incident.AutoTweetOnCreation)
	assert.True(t, incident.AutoTweetOneHourBefore)
	assert.True(t, incident.AutoTweetAtBeginning)
	assert.True(t, incident.AutoTweetOnCompletion)
}

func TestReconcileUpdatesOnExactStartMatch(t *testing.T) {
	incidents := []statuspage.Incident{
		scheduledIncident("inc-other", windowStart.Add(time.Hour)),
		scheduledIncident("inc-match", windowStart),
	}

	actions := Reconcile(discardLogger(), []models.MaintenanceWindow{productionWindow()}, incidents, testCfg)

	require.Len(t, actions, 1)
	assert.True(t, actions[0].IsUpdate())
	assert.Equal(t, "inc-match", actions[0].IncidentID)
}

func TestReconcileMatchesAcrossOffsetRepresentations(t *testing.T) {
	// The same instant expressed with a +02:00 offset still matches.
	zurich := time.FixedZone("CEST", 2*3600)
	incidents := []statuspage.Incident{
		scheduledIncident("inc-match", time.Date(2024, time.July, 13, 23, 0, 0, 0, zurich)),
	}

	actions := Reconcile(discardLogger(), []models.MaintenanceWindow{productionWindow()}, incidents, testCfg)

	require.Len(t, actions, 1)
	assert.Equal(t, "inc-match", actions[0].IncidentID)
}

func TestReconcileLastMatchWinsOnDuplicateStartTimes(t *testing.T) {
	incidents := []statuspage.Incident{
		scheduledIncident("inc-a", windowStart),
		scheduledIncident("inc-b", windowStart),
	}

	actions := Reconcile(discardLogger(), []models.MaintenanceWindow{productionWindow()}, incidents, testCfg)

	require.Len(t, actions, 1)
	assert.Equal(t, "inc-b", actions[0].IncidentID)
}

func TestSyncCreatesIncidentForNewWindow(t *testing.T) {
	source := &fakeSource{windows: []models.MaintenanceWindow{productionWindow()}}
	incidents := &fakeIncidentService{}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	require.NoError(t, s.Sync(context.Background()))

	require.Len(t, incidents.created, 1)
	assert.Empty(t, incidents.updated)
	assert.True(t, incidents.created[0].ScheduledFor.Equal(windowStart))
}

func TestSyncUpdatesExistingIncident(t *testing.T) {
	source := &fakeSource{windows: []models.MaintenanceWindow{productionWindow()}}
	incidents := &fakeIncidentService{
		incidents: []statuspage.Incident{scheduledIncident("inc-1", windowStart)},
	}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	require.NoError(t, s.Sync(context.Background()))

	assert.Empty(t, incidents.created)
	require.Contains(t, incidents.updated, "inc-1")
	assert.True(t, incidents.updated["inc-1"].ScheduledUntil.Equal(windowEnd))
}

func TestSyncIsIdempotent(t *testing.T) {
	source := &fakeSource{windows: []models.MaintenanceWindow{productionWindow()}}
	incidents := &fakeIncidentService{}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	require.NoError(t, s.Sync(context.Background()))
	require.Len(t, incidents.created, 1)

	// The next run sees the incident the first run created; it must update
	// rather than create again.
	incidents.incidents = []statuspage.Incident{
		scheduledIncident("inc-1", incidents.created[0].ScheduledFor),
	}
	require.NoError(t, s.Sync(context.Background()))

	assert.Len(t, incidents.created, 1)
	assert.Contains(t, incidents.updated, "inc-1")
}

func TestSyncIgnoresIrrelevantWindows(t *testing.T) {
	source := &fakeSource{windows: []models.MaintenanceWindow{
		{Systems: []string{"epp.nic.ch"}, Environment: "pre-production", FromTime: windowStart},
		{Systems: []string{"whois.nic.ch"}, Environment: "production", FromTime: windowStart},
	}}
	incidents := &fakeIncidentService{}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	require.NoError(t, s.Sync(context.Background()))

	assert.Empty(t, incidents.created)
	assert.Empty(t, incidents.updated)
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	source := &fakeSource{windows: []models.MaintenanceWindow{productionWindow()}}
	incidents := &fakeIncidentService{}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, true)
	require.NoError(t, s.Sync(context.Background()))

	assert.Empty(t, incidents.created)
	assert.Empty(t, incidents.updated)
}

func TestSyncAbortsOnFetchError(t *testing.T) {
	fetchErr := errors.New("registry down")
	source := &fakeSource{err: fetchErr}
	incidents := &fakeIncidentService{}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	assert.ErrorIs(t, s.Sync(context.Background()), fetchErr)
	assert.Empty(t, incidents.created)
}

func TestSyncAbortsOnListError(t *testing.T) {
	listErr := errors.New("status page down")
	source := &fakeSource{windows: []models.MaintenanceWindow{productionWindow()}}
	incidents := &fakeIncidentService{listErr: listErr}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	assert.ErrorIs(t, s.Sync(context.Background()), listErr)
	assert.Empty(t, incidents.created)
}

func TestSyncAbortsOnFirstWriteError(t *testing.T) {
	second := productionWindow()
	second.FromTime = windowStart.Add(24 * time.Hour)
	second.ToTime = windowEnd.Add(24 * time.Hour)

	writeErr := errors.New("write rejected")
	source := &fakeSource{windows: []models.MaintenanceWindow{productionWindow(), second}}
	incidents := &fakeIncidentService{createErr: writeErr}

	s := NewSyncer(discardLogger(), source, incidents, testCfg, false)
	assert.ErrorIs(t, s.Sync(context.Background()), writeErr)
	// The run stopped at the first window; the second was never attempted.
	assert.Equal(t, 1, incidents.createCalls)
	assert.Empty(t, incidents.created)
}
