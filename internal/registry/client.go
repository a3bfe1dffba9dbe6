package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"regsync/internal/models"
)

// dateLayout is the DD-MM-YYYY format the availability feed expects for its
// start/end query parameters.
const dateLayout = "02-01-2006"

const messageTypeData = "DATA_MESSAGE"

// ErrRequestFailed is returned when the registry responds with a non-success status.
var ErrRequestFailed = errors.New("registry request failed")

// Client talks to the registry's availability status feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	parser     *TimestampParser
	logger     *slog.Logger
}

// NewClient creates a new registry status feed client.
func NewClient(logger *slog.Logger, baseURL string, parser *TimestampParser) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		parser: parser,
		logger: logger,
	}
}

// FetchMaintenance returns the maintenance windows the registry has announced
// for the given environment between start and end. Entries that are not data
// messages are skipped; a timestamp that fails to parse aborts the fetch.
func (c *Client) FetchMaintenance(ctx context.Context, environment string, start, end time.Time) ([]models.MaintenanceWindow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	q := url.Values{}
	q.Set("environment", environment)
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: GET %s: status %d: %s",
			ErrRequestFailed, c.baseURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	var windows []models.MaintenanceWindow
	for _, entry := range payload.Availability {
		if entry.MessageType != messageTypeData {
			continue
		}
		window, err := c.toWindow(entry.Message.DataMessage)
		if err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}

	c.logger.Info("Fetched maintenance windows from the registry.", "count", len(windows))
	return windows, nil
}

func (c *Client) toWindow(dm dataMessage) (models.MaintenanceWindow, error) {
	from, err := c.parser.Parse(dm.From)
	if err != nil {
		return models.MaintenanceWindow{}, fmt.Errorf("parse maintenance start %q: %w", dm.From, err)
	}
	to, err := c.parser.Parse(dm.To)
	if err != nil {
		return models.MaintenanceWindow{}, fmt.Errorf("parse maintenance end %q: %w", dm.To, err)
	}

	remark := ""
	if dm.Remark != nil {
		remark = *dm.Remark
	}

	return models.MaintenanceWindow{
		Systems:     strings.Split(dm.ConcernedSystem, ", "),
		Environment: dm.Environment,
		FromTime:    from,
		ToTime:      to,
		Reason:      dm.Reason,
		Remark:      remark,
	}, nil
}
