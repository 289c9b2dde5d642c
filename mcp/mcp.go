package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mbocsi/silaevents/proto"
)

type Server interface {
	Run() error
}

// EventSender is satisfied by *client.EventReceiverClient.
type EventSender interface {
	Send(ctx context.Context, ev proto.Event) (string, error)
	LastEnvelope() []byte
	Endpoint() string
}

// MCPServer exposes the event operations of an EventSender as MCP tools.
type MCPServer struct {
	Server *server.MCPServer
	sender EventSender
	tools  []string
}

func NewMCPServer(sender EventSender, version string) *MCPServer {
	s := &MCPServer{
		Server: server.NewMCPServer("SiLA Event Sender", version),
		sender: sender,
	}
	s.registerEventTools()
	s.registerDiagnosticTools()
	return s
}

// Tools lists the registered tool names in registration order.
func (s *MCPServer) Tools() []string {
	return append([]string(nil), s.tools...)
}

func (s *MCPServer) Run() error {
	slog.Info("Started stdio MCP server", "endpoint", s.sender.Endpoint())
	defer func() {
		slog.Info("Shut down stdio MCP server")
	}()
	return server.ServeStdio(s.Server)
}
