package statuspage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// pageSize is the fixed page size of the incidents endpoints; a page with
// fewer entries signals end-of-data.
const pageSize = 100

const impactMaintenance = "maintenance"

// StatusScheduled is the incident status of a not-yet-started maintenance.
const StatusScheduled = "scheduled"

// ErrRequestFailed is returned when the status page responds with a non-success status.
var ErrRequestFailed = errors.New("status page request failed")

// Client is a client for the Statuspage REST API, scoped to a single page.
type Client struct {
	baseURL    string
	pageID     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Statuspage client. Every request is authenticated
// with the API key; Statuspage uses an "Authorization: OAuth <key>" scheme,
// expressed here as a static oauth2 token of that type.
func NewClient(logger *slog.Logger, baseURL, pageID, apiKey string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "OAuth",
	})
	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    baseURL,
		pageID:     pageID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListScheduledIncidents fetches every scheduled incident of the page,
// requesting successive pages until one comes back short. Incidents whose
// impact is not "maintenance" are dropped.
func (c *Client) ListScheduledIncidents(ctx context.Context) ([]Incident, error) {
	var all []Incident
	for page := 1; ; page++ {
		batch, err := c.listScheduledPage(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, incident := range batch {
			if incident.Impact == impactMaintenance {
				all = append(all, incident)
			}
		}
		if len(batch) < pageSize {
			break
		}
	}

	c.logger.Info("Fetched scheduled maintenance incidents from the status page.", "count", len(all))
	return all, nil
}

func (c *Client) listScheduledPage(ctx context.Context, page int) ([]Incident, error) {
	url := fmt.Sprintf("%s/pages/%s/incidents/scheduled", c.baseURL, c.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build status page request: %w", err)
	}
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: GET %s: status %d: %s",
			ErrRequestFailed, url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var incidents []Incident
	if err := json.NewDecoder(resp.Body).Decode(&incidents); err != nil {
		return nil, fmt.Errorf("decode status page response: %w", err)
	}
	return incidents, nil
}

// CreateIncident creates a new incident on the page.
func (c *Client) CreateIncident(ctx context.Context, incident IncidentRequest) error {
	url := fmt.Sprintf("%s/pages/%s/incidents", c.baseURL, c.pageID)
	return c.send(ctx, http.MethodPost, url, incident)
}

// UpdateIncident updates an existing incident by id.
func (c *Client) UpdateIncident(ctx context.Context, id string, incident IncidentRequest) error {
	url := fmt.Sprintf("%s/pages/%s/incidents/%s", c.baseURL, c.pageID, id)
	return c.send(ctx, http.MethodPatch, url, incident)
}

func (c *Client) send(ctx context.Context, method, url string, incident IncidentRequest) error {
	body, err := json.Marshal(incidentEnvelope{Incident: incident})
	if err != nil {
		return fmt.Errorf("encode incident: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build status page request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s %s: status %d: %s",
			ErrRequestFailed, method, url, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
