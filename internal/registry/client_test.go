package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const availabilityBody = `{
  "availability": [
    {"message-type": "AVAILABILITY_BLOCK", "message": {}},
    {"message-type": "DATA_MESSAGE", "message": {"data-message": {
      "concernedSystem": "epp.nic.ch, rdap.nic.ch",
      "environment": "production",
      "from": "Sat Jul 13 23:00:00 CEST 2024",
      "to": "Sun Jul 14 03:00:00 CEST 2024",
      "reason": "Database migration",
      "remark": null
    }}},
    {"message-type": "DATA_MESSAGE", "message": {"data-message": {
      "concernedSystem": "epp.nic.ch",
      "environment": "pre-production",
      "from": "Wed Jan 10 08:30:00 CET 2024",
      "to": "Wed Jan 10 09:30:00 CET 2024",
      "reason": "Upgrade",
      "remark": "rollback possible"
    }}}
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchMaintenance(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"environment": r.URL.Query().Get("environment"),
			"start":       r.URL.Query().Get("start"),
			"end":         r.URL.Query().Get("end"),
		}
		fmt.Fprint(w, availabilityBody)
	}))
	defer server.Close()

	client := NewClient(discardLogger(), server.URL, newTestParser(t))

	start := time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	windows, err := client.FetchMaintenance(context.Background(), "production", start, end)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"environment": "production",
		"start":       "01-07-2024",
		"end":         "01-07-2025",
	}, gotQuery)

	// The availability block is skipped, both data messages survive.
	require.Len(t, windows, 2)

	first := windows[0]
	assert.Equal(t, []string{"epp.nic.ch", "rdap.nic.ch"}, first.Systems)
	assert.Equal(t, "production", first.Environment)
	assert.True(t, first.FromTime.Equal(time.Date(2024, time.July, 13, 21, 0, 0, 0, time.UTC)))
	assert.True(t, first.ToTime.Equal(time.Date(2024, time.July, 14, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Database migration", first.Reason)
	assert.Empty(t, first.Remark)

	second := windows[1]
	assert.Equal(t, "pre-production", second.Environment)
	assert.Equal(t, "rollback possible", second.Remark)
}

func TestFetchMaintenanceBadTimestampAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"availability": [{"message-type": "DATA_MESSAGE", "message": {"data-message": {
			"concernedSystem": "epp.nic.ch",
			"environment": "production",
			"from": "not a timestamp at all ok",
			"to": "Sun Jul 14 03:00:00 CEST 2024",
			"reason": ""
		}}}]}`)
	}))
	defer server.Close()

	client := NewClient(discardLogger(), server.URL, newTestParser(t))
	_, err := client.FetchMaintenance(context.Background(), "production", time.Now(), time.Now().AddDate(1, 0, 0))
	assert.ErrorIs(t, err, ErrMalformedTimestamp)
}

func TestFetchMaintenanceRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(discardLogger(), server.URL, newTestParser(t))
	_, err := client.FetchMaintenance(context.Background(), "production", time.Now(), time.Now().AddDate(1, 0, 0))
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorContains(t, err, "502")
}
