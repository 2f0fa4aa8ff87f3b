package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSendTimeout = 5 * time.Second

// FCMDispatcher sends ring notifications through an FCM-compatible HTTP
// endpoint authenticated with a server key.
//
// The HTTP client carries its own timeout, which is the only latency bound on
// a dispatch; expiry surfaces as an ordinary send error for the caller to
// classify. Once a request is on the wire it is not revocable.
type FCMDispatcher struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

func NewFCMDispatcher(endpoint, serverKey string, timeout time.Duration) (*FCMDispatcher, error) {
	if endpoint == "" {
		return nil, errors.New("push: endpoint is required")
	}
	if serverKey == "" {
		return nil, errors.New("push: server key is required")
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &FCMDispatcher{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// fcmMessage is the downstream-message wire shape.
type fcmMessage struct {
	To               string      `json:"to"`
	Priority         string      `json:"priority,omitempty"`
	ContentAvailable bool        `json:"content_available,omitempty"`
	Data             RingData    `json:"data"`
	Notification     RingDisplay `json:"notification"`
}

// fcmResponse is the subset of the delivery report we act on.
type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

func (d *FCMDispatcher) Send(ctx context.Context, deviceToken string, p RingPayload) error {
	if deviceToken == "" {
		return errors.New("push: device token is required")
	}

	body, err := json.Marshal(fcmMessage{
		To:               deviceToken,
		Priority:         p.Priority,
		ContentAvailable: p.ContentAvailable,
		Data:             p.Data,
		Notification:     p.Display,
	})
	if err != nil {
		return fmt.Errorf("push: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+d.serverKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little for connection reuse; never log response bodies here,
		// they can echo the device token.
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		return fmt.Errorf("push: endpoint returned status %d", resp.StatusCode)
	}

	var report fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		// A 2xx with an unreadable report still means the platform accepted
		// the message; treat it as delivered.
		return nil
	}
	if report.Failure > 0 {
		reason := "unknown"
		if len(report.Results) > 0 && report.Results[0].Error != "" {
			reason = report.Results[0].Error
		}
		return fmt.Errorf("push: delivery rejected: %s", reason)
	}
	return nil
}
