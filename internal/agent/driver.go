// Package agent runs the scripted conversation that exercises the gateway
// tools through a chat model.
package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mohitagr18/mcp-home-automation/internal/infra/groq"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/mcpclient"
)

// maxToolCalls bounds the completion rounds for a single prompt.
const maxToolCalls = 8

const systemPrompt = `You are a smart home assistant that controls a Kasa smart plug through the provided tools.
Use the tools to answer questions about the device and to change its power state.
Reply with a short natural-language answer; do not invent devices that the tools do not report.`

// ChatModel produces one assistant message per round, possibly with tool calls.
type ChatModel interface {
	Chat(ctx context.Context, messages []groq.Message, tools []groq.Tool) (*groq.Message, error)
}

// ToolClient discovers and invokes the gateway's operations.
type ToolClient interface {
	ListTools(ctx context.Context) ([]mcpclient.ToolDef, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Driver binds the gateway tools to the chat model and walks the test script.
type Driver struct {
	model  ChatModel
	tools  ToolClient
	out    io.Writer
	logger *slog.Logger
}

func NewDriver(model ChatModel, tools ToolClient, out io.Writer, logger *slog.Logger) *Driver {
	return &Driver{model: model, tools: tools, out: out, logger: logger}
}

// RunScript discovers the tool catalogue and runs the four scripted prompts
// strictly in order, printing each final answer. A failed prompt is reported
// and the script continues.
func (d *Driver) RunScript(ctx context.Context, alias string) error {
	runID := uuid.NewString()
	logger := d.logger.With("run_id", runID)

	defs, err := d.tools.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("listing gateway tools: %w", err)
	}
	logger.Info("discovered gateway tools", "count", len(defs))
	for _, def := range defs {
		logger.Debug("tool available", "name", def.Name, "description", def.Description)
	}

	tools := toChatTools(defs)

	prompts := []string{
		"Can you list all the smart home devices you can control? Do not show IP address.",
		fmt.Sprintf("Turn on the '%s' smart plug.", alias),
		fmt.Sprintf("What is the status of '%s'?", alias),
		fmt.Sprintf("Turn off '%s'.", alias),
	}

	for i, prompt := range prompts {
		fmt.Fprintf(d.out, "--- step %d: %s\n", i+1, prompt)

		answer, err := d.Ask(ctx, tools, prompt)
		if err != nil {
			logger.Error("prompt failed", "step", i+1, "error", err)
			fmt.Fprintf(d.out, "error: %v\n", err)
		} else {
			fmt.Fprintln(d.out, answer)
		}
		fmt.Fprintln(d.out, strings.Repeat("-", 60))
	}

	return nil
}

// Ask runs one prompt to its final answer, executing any tool calls the
// model requests along the way.
func (d *Driver) Ask(ctx context.Context, tools []groq.Tool, prompt string) (string, error) {
	messages := []groq.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	for i := 0; i < maxToolCalls; i++ {
		msg, err := d.model.Chat(ctx, messages, tools)
		if err != nil {
			return "", err
		}

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, *msg)

		for _, tc := range msg.ToolCalls {
			result := d.executeToolCall(ctx, tc)
			messages = append(messages, groq.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("exceeded maximum tool calls (%d)", maxToolCalls)
}

// executeToolCall never fails the conversation: errors are folded into the
// tool result so the model can relay them.
func (d *Driver) executeToolCall(ctx context.Context, tc groq.ToolCall) string {
	args, err := tc.Function.Args()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	result, err := d.tools.CallTool(ctx, tc.Function.Name, args)
	if err != nil {
		d.logger.Warn("tool call failed", "tool", tc.Function.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	d.logger.Debug("tool call succeeded", "tool", tc.Function.Name, "result", result)
	return result
}

func toChatTools(defs []mcpclient.ToolDef) []groq.Tool {
	tools := make([]groq.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, groq.Tool{
			Type: "function",
			Function: groq.ToolSpec{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		})
	}
	return tools
}
