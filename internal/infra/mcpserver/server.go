package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mohitagr18/mcp-home-automation/internal/application"
	"github.com/mohitagr18/mcp-home-automation/internal/domain"
)

const (
	serverName    = "KasaSmartHomeServer"
	serverVersion = "1.0.0"
)

// Server exposes the gateway operations as MCP tools over streamable HTTP.
type Server struct {
	gateway *application.Gateway
	http    *server.StreamableHTTPServer
	logger  *slog.Logger
}

func New(gateway *application.Gateway, logger *slog.Logger) *Server {
	s := &Server{gateway: gateway, logger: logger}

	m := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
	)
	s.registerTools(m)
	s.http = server.NewStreamableHTTPServer(m)

	return s
}

// Start serves the MCP endpoint on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	return s.http.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("turn_kasa_device_on",
		mcp.WithDescription("Turns on the configured Kasa smart plug. Returns the device's current state."),
	), s.handleTurnOn)

	m.AddTool(mcp.NewTool("turn_kasa_device_off",
		mcp.WithDescription("Turns off the configured Kasa smart plug. Returns the device's current state."),
	), s.handleTurnOff)

	m.AddTool(mcp.NewTool("get_kasa_device_status",
		mcp.WithDescription("Gets the current power status of the configured Kasa smart plug."),
	), s.handleStatus)

	m.AddTool(mcp.NewTool("list_kasa_devices",
		mcp.WithDescription("Lists the configured Kasa smart plug and its current status. The gateway controls exactly one device."),
	), s.handleList)
}

// statePayload is the wire shape of a per-device success record.
type statePayload struct {
	Alias  string `json:"alias"`
	IsOn   bool   `json:"is_on"`
	Status string `json:"status"`
}

// listPayload is one entry of the list_kasa_devices response.
type listPayload struct {
	Alias string `json:"alias"`
	IsOn  bool   `json:"is_on"`
	Host  string `json:"host"`
}

func (s *Server) handleTurnOn(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debug("tool called", "tool", "turn_kasa_device_on")
	return toolResult(s.gateway.SetPower(ctx, true))
}

func (s *Server) handleTurnOff(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debug("tool called", "tool", "turn_kasa_device_off")
	return toolResult(s.gateway.SetPower(ctx, false))
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debug("tool called", "tool", "get_kasa_device_status")
	return toolResult(s.gateway.Status(ctx))
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debug("tool called", "tool", "list_kasa_devices")

	devices := s.gateway.ListDevices(ctx)
	entries := make([]listPayload, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, listPayload{Alias: d.Alias, IsOn: d.IsOn, Host: d.Addr})
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}

func toolResult(r domain.Result) (*mcp.CallToolResult, error) {
	if !r.OK() {
		return mcp.NewToolResultError(r.Error), nil
	}

	body, err := json.Marshal(statePayload{Alias: r.Alias, IsOn: r.IsOn, Status: "success"})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
