/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package darwin is a client for the National Rail OpenLDBWS departure feed.
package darwin

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/telemetry"
)

// DefaultEndpoint is the public OpenLDBWS SOAP endpoint.
const DefaultEndpoint = "https://lite.realtime.nationalrail.co.uk/OpenLDBWS/ldb11.asmx"

// maxRows is the largest board OpenLDBWS will return.
const maxRows = 150

// ErrUnauthorized is returned when the access token is rejected.
var ErrUnauthorized = errors.New("darwin rejected the access token")

// FaultError is a SOAP fault returned by the service.
type FaultError struct {
	Code    string
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap fault %s: %s", e.Code, e.Message)
}

// Config configures a Client.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client talks to OpenLDBWS. It implements board.Source.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Darwin client.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: telemetry.HTTPTransport(nil),
		},
		logger: logger.With().Str("component", "darwin").Logger(),
	}
}

// Departures returns up to limit departures from the station with the given CRS code.
func (c *Client) Departures(ctx context.Context, crs string, limit int) ([]board.Service, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxRows {
		limit = maxRows
	}

	var resp departureBoardResponse
	err := c.call(ctx, "GetDepartureBoard", requestBody{
		Departures: &departureBoardRequest{NumRows: limit, CRS: crs},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Fault != nil {
		return nil, &FaultError{Code: resp.Fault.Code, Message: resp.Fault.String}
	}

	services := make([]board.Service, 0, len(resp.Result.Services))
	for _, s := range resp.Result.Services {
		services = append(services, board.Service{
			ServiceID:     strings.TrimSpace(s.ServiceID),
			ScheduledTime: strings.TrimSpace(s.STD),
			EstimatedTime: strings.TrimSpace(s.ETD),
			Destination:   s.destinationText(),
			Platform:      strings.TrimSpace(s.Platform),
			Cancelled:     s.IsCancelled,
		})
	}

	c.logger.Debug().
		Str("crs", crs).
		Str("location", resp.Result.LocationName).
		Str("generated_at", resp.Result.GeneratedAt).
		Int("services", len(services)).
		Msg("departure board fetched")

	return services, nil
}

// CallingPoints returns the names of the stops a service makes after this station.
// Only the main route is returned; portions that divide later are ignored.
func (c *Client) CallingPoints(ctx context.Context, serviceID string) ([]string, error) {
	var resp serviceDetailsResponse
	err := c.call(ctx, "GetServiceDetails", requestBody{
		Details: &serviceDetailsRequest{ServiceID: serviceID},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Fault != nil {
		return nil, &FaultError{Code: resp.Fault.Code, Message: resp.Fault.String}
	}
	if resp.Result == nil || resp.Result.SubsequentCallingPoints == nil {
		return nil, board.ErrNoCallingPoints
	}

	names := []string{}
	if lists := resp.Result.SubsequentCallingPoints.Lists; len(lists) > 0 {
		for _, cp := range lists[0].Points {
			if name := strings.TrimSpace(cp.LocationName); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (c *Client) call(ctx context.Context, operation string, body requestBody, out any) error {
	start := time.Now()
	result := "error"
	defer func() {
		telemetry.UpstreamRequestsTotal.WithLabelValues(operation, result).Inc()
		telemetry.UpstreamRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	payload, err := xml.Marshal(newEnvelope(c.token, body))
	if err != nil {
		return fmt.Errorf("encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapActionBase+operation)
	req.Header.Set("User-Agent", "departure-board/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", operation, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result = "unauthorized"
		return ErrUnauthorized
	case resp.StatusCode >= 300 && resp.StatusCode != http.StatusInternalServerError:
		// SOAP faults arrive as 500 with a parseable body; anything else is transport trouble.
		return fmt.Errorf("%s: unexpected status %s", operation, resp.Status)
	}

	if err := xml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	result = "ok"
	if resp.StatusCode == http.StatusInternalServerError {
		result = "fault"
	}
	return nil
}
