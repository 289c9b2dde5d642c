package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mbocsi/silaevents/proto"
)

func (s *MCPServer) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.Server.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func returnValueOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("return_code",
			mcp.Description("SiLA return code; when omitted no returnValue is sent"),
		),
		mcp.WithString("message",
			mcp.Description("Human readable returnValue message"),
		),
		mcp.WithString("duration",
			mcp.Description("returnValue duration as xs:duration, e.g. PT5S"),
		),
		mcp.WithNumber("device_class",
			mcp.Description("SiLA device class (defaults to 30)"),
		),
	}
}

func requestIDOption() mcp.ToolOption {
	return mcp.WithNumber("request_id",
		mcp.Required(),
		mcp.Description("SiLA requestId the event refers to"),
	)
}

func (s *MCPServer) registerEventTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Send a ResponseEvent to the event receiver"),
		requestIDOption(),
		mcp.WithString("response_data",
			mcp.Description("responseData text, usually a ResponseData/ParameterSet XML document"),
		),
	}
	s.addTool(mcp.NewTool("send_response_event", append(opts, returnValueOptions()...)...), s.handleResponseEvent)

	s.addTool(mcp.NewTool("send_data_event",
		mcp.WithDescription("Send a DataEvent to the event receiver"),
		requestIDOption(),
		mcp.WithString("data_value",
			mcp.Description("dataValue text"),
		),
	), s.handleDataEvent)

	opts = []mcp.ToolOption{
		mcp.WithDescription("Send an ErrorEvent to the event receiver"),
		requestIDOption(),
		mcp.WithString("continuation_task",
			mcp.Description("continuationTask text"),
		),
	}
	s.addTool(mcp.NewTool("send_error_event", append(opts, returnValueOptions()...)...), s.handleErrorEvent)

	opts = []mcp.ToolOption{
		mcp.WithDescription("Send a StatusEvent to the event receiver"),
		mcp.WithString("device_id",
			mcp.Description("deviceId of the reporting device"),
		),
		mcp.WithString("event_description",
			mcp.Description("eventDescription text"),
		),
	}
	s.addTool(mcp.NewTool("send_status_event", append(opts, returnValueOptions()...)...), s.handleStatusEvent)
}

func (s *MCPServer) registerDiagnosticTools() {
	s.addTool(mcp.NewTool("last_envelope",
		mcp.WithDescription("Show the SOAP envelope most recently sent to the event receiver"),
	), s.handleLastEnvelope)
}

func (s *MCPServer) handleResponseEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requestID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	return s.send(ctx, proto.ResponseEvent{
		RequestID:    id,
		ReturnValue:  returnValue(request),
		ResponseData: optionalString(args, "response_data"),
	})
}

func (s *MCPServer) handleDataEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requestID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.send(ctx, proto.DataEvent{
		RequestID: id,
		DataValue: optionalString(request.GetArguments(), "data_value"),
	})
}

func (s *MCPServer) handleErrorEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requestID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.send(ctx, proto.ErrorEvent{
		RequestID:        id,
		ReturnValue:      returnValue(request),
		ContinuationTask: optionalString(request.GetArguments(), "continuation_task"),
	})
}

func (s *MCPServer) handleStatusEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return s.send(ctx, proto.StatusEvent{
		DeviceID:         optionalString(args, "device_id"),
		ReturnValue:      returnValue(request),
		EventDescription: optionalString(args, "event_description"),
	})
}

func (s *MCPServer) handleLastEnvelope(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	envelope := s.sender.LastEnvelope()
	if envelope == nil {
		return mcp.NewToolResultText("no envelope has been sent yet"), nil
	}
	return mcp.NewToolResultText(string(envelope)), nil
}

// send returns the receiver's raw response text; failures become tool errors
// so the calling model can see them.
func (s *MCPServer) send(ctx context.Context, ev proto.Event) (*mcp.CallToolResult, error) {
	resp, err := s.sender.Send(ctx, ev)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error sending %s: %v", ev.Action(), err)), nil
	}
	return mcp.NewToolResultText(resp), nil
}

func requestID(request mcp.CallToolRequest) (int, error) {
	if _, ok := request.GetArguments()["request_id"]; !ok {
		return 0, errors.New("request_id is required")
	}
	return request.GetInt("request_id", 0), nil
}

func returnValue(request mcp.CallToolRequest) *proto.ReturnValue {
	args := request.GetArguments()
	if _, ok := args["return_code"]; !ok {
		return nil
	}
	rv := proto.NewReturnValue(request.GetInt("return_code", 0)).
		WithDeviceClass(request.GetInt("device_class", proto.DefaultDeviceClass))
	rv.Message = optionalString(args, "message")
	rv.Duration = optionalString(args, "duration")
	return &rv
}

func optionalString(args map[string]any, key string) *string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return &s
	}
	return proto.String(fmt.Sprint(v))
}
