package server

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/mdns"
	"github.com/mbocsi/silaevents/proto"
)

// Advertise announces a receiver listening on port over mDNS so clients can
// find it with client.DiscoverEventReceiver. Shut the returned server down
// to withdraw the announcement.
func Advertise(instance string, port int, path string) (*mdns.Server, error) {
	service, err := mdns.NewMDNSService(instance, proto.ServiceType, "", "", port, nil, advertiseInfo(path))
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}
	srv, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}
	slog.Info("Advertising event receiver", "instance", instance, "service", proto.ServiceType, "port", port, "path", path)
	return srv, nil
}

func advertiseInfo(path string) []string {
	if path == "" {
		path = "/"
	}
	return []string{"path=" + path, "protocol=sila-soap"}
}
