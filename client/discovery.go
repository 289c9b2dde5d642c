package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/mbocsi/silaevents/proto"
)

// DiscoverEventReceiver returns the endpoint URL of the first event receiver
// found on the local network.
func DiscoverEventReceiver(timeout time.Duration) (string, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)
	params := mdns.DefaultParams(proto.ServiceType)
	params.Entries = entriesCh
	params.Timeout = timeout

	go func() {
		defer close(entriesCh)
		if err := mdns.Query(params); err != nil {
			slog.Warn("mDNS query failed", "service", proto.ServiceType, "error", err)
		}
	}()

	select {
	case entry := <-entriesCh:
		if entry == nil {
			return "", fmt.Errorf("no %s service found", proto.ServiceType)
		}
		endpoint, err := endpointFromEntry(entry)
		if err != nil {
			return "", err
		}
		slog.Info("Discovered event receiver", "service_name", entry.Name, "endpoint", endpoint)
		return endpoint, nil

	case <-time.After(timeout):
		return "", fmt.Errorf("mDNS discovery timeout for %s", proto.ServiceType)
	}
}

// endpointFromEntry builds http://addr:port/path from an entry. The path comes
// from a "path=" TXT record and defaults to "/".
func endpointFromEntry(entry *mdns.ServiceEntry) (string, error) {
	var host string
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	default:
		return "", fmt.Errorf("no valid address found for service %s", entry.Name)
	}

	path := "/"
	for _, field := range entry.InfoFields {
		if p, ok := strings.CutPrefix(field, "path="); ok && p != "" {
			path = p
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(entry.Port)), Path: path}
	return u.String(), nil
}
