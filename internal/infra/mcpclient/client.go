package mcpclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolDef describes one operation exposed by the gateway.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Client is a connected MCP streamable HTTP session with the gateway.
type Client struct {
	cli    *mcpclient.Client
	logger *slog.Logger
}

// Connect opens the session and completes the MCP initialize handshake.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	cli, err := mcpclient.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("creating mcp client: %w", err)
	}

	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "kasa-agent-driver", Version: "1.0.0"}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		cli.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}

	logger.Debug("mcp session established", "url", url)
	return &Client{cli: cli, logger: logger}, nil
}

// ListTools fetches the gateway's tool catalogue.
func (c *Client) ListTools(ctx context.Context) ([]ToolDef, error) {
	res, err := c.cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	defs := make([]ToolDef, 0, len(res.Tools))
	for _, t := range res.Tools {
		schemaType := t.InputSchema.Type
		if schemaType == "" {
			schemaType = "object"
		}
		props := t.InputSchema.Properties
		if props == nil {
			props = map[string]any{}
		}

		def := ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: map[string]any{
				"type":       schemaType,
				"properties": props,
			},
		}
		if len(t.InputSchema.Required) > 0 {
			def.InputSchema["required"] = t.InputSchema.Required
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// CallTool invokes one tool and returns the concatenated text content.
// A tool-level failure surfaces as an error carrying the failure text.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.cli.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling tool %s: %w", name, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			sb.WriteString(tc.Text)
		}
	}
	text := sb.String()

	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}

	c.logger.Debug("tool call completed", "tool", name, "result", text)
	return text, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}
