package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mbocsi/silaevents/proto"
)

type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// NewHTTPTransportWithClient uses c as is, e.g. one configured for TLS.
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	return &HTTPTransport{client: c}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Action: req.Action, Err: err}
	}
	httpReq.Header.Set("Content-Type", proto.ContentType)
	// Assigned directly so the header keeps the casing SOAP stacks expect.
	httpReq.Header["SOAPAction"] = []string{proto.SOAPAction(req.Action)}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Action: req.Action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Action: req.Action, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	slog.Debug("SOAP response received", "action", req.Action, "status", resp.StatusCode, "size", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Endpoint:   req.Endpoint,
			Action:     req.Action,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status),
		}
	}
	return body, nil
}
