package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
)

// basicAuthTransport adds basic auth and a user agent to publish requests.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "regsync/1.0")
	return t.Transport.RoundTrip(req)
}

// Publisher uploads the maintenance calendar to a WebDAV collection, so
// operators can subscribe to the registry's schedule from a calendar client.
type Publisher struct {
	client *webdav.Client
	logger *slog.Logger
}

// NewPublisher creates a Publisher for the given WebDAV collection URL.
func NewPublisher(logger *slog.Logger, endpoint, username, password string) (*Publisher, error) {
	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			Username:  username,
			Password:  password,
			Transport: http.DefaultTransport,
		},
	}

	client, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create webdav client: %w", err)
	}

	return &Publisher{client: client, logger: logger}, nil
}

// Publish encodes the calendar and writes it to <endpoint>/<filename>,
// replacing any previous version.
func (p *Publisher) Publish(ctx context.Context, cal *ical.Calendar, filename string) error {
	writer, err := p.client.Create(ctx, filename)
	if err != nil {
		return fmt.Errorf("create %s on WebDAV server: %w", filename, err)
	}

	if err := Write(cal, writer); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish upload of %s: %w", filename, err)
	}

	p.logger.Info("Published maintenance calendar.", "file", filename)
	return nil
}
