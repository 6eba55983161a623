package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// Sink receives every recorded click. Send is called off the request path
// and its errors are only logged.
type Sink interface {
	Send(ctx context.Context, c Click) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, c Click) error

func (f SinkFunc) Send(ctx context.Context, c Click) error { return f(ctx, c) }

// HTTPSink posts clicks as JSON to an analytics endpoint.
type HTTPSink struct {
	Endpoint string
	Client   *http.Client
}

// Event is the analytics envelope around a click.
type Event struct {
	Name     string   `json:"event"`
	Category string   `json:"event_category"`
	Label    string   `json:"event_label"`
	Value    *float64 `json:"value,omitempty"`
	Currency string   `json:"currency"`
	Click    Click    `json:"click"`
}

// NewEvent wraps c in an affiliate_click event.
func NewEvent(c Click) Event {
	return Event{
		Name:     "affiliate_click",
		Category: "affiliate",
		Label:    c.ProductName,
		Value:    PriceValue(c.Price),
		Currency: "USD",
		Click:    c,
	}
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// PriceValue parses a display price such as "$1,299.99" into a number.
// It returns nil when no number can be read.
func PriceValue(price string) *float64 {
	cleaned := nonNumeric.ReplaceAllString(price, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (s *HTTPSink) Send(ctx context.Context, c Click) error {
	body, err := json.Marshal(NewEvent(c))
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to analytics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("analytics endpoint returned %d", resp.StatusCode)
	}
	return nil
}
