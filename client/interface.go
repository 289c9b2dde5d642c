package client

import "context"

// Request is one SOAP call: the envelope bytes, the SiLA operation name used
// for the SOAPAction header, and the receiver URL.
type Request struct {
	Endpoint string
	Action   string
	Body     []byte
}

type Transport interface {
	// RoundTrip delivers req and returns the raw response body. A response
	// with a failing status is an error.
	RoundTrip(ctx context.Context, req Request) ([]byte, error)
}
