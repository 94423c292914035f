package agent_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mohitagr18/mcp-home-automation/internal/agent"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/groq"
	"github.com/mohitagr18/mcp-home-automation/internal/infra/mcpclient"
)

// scriptedModel replays canned assistant messages in order.
type scriptedModel struct {
	replies []groq.Message
	calls   int

	lastMessages []groq.Message
}

func (m *scriptedModel) Chat(_ context.Context, messages []groq.Message, _ []groq.Tool) (*groq.Message, error) {
	m.lastMessages = messages
	if m.calls >= len(m.replies) {
		reply := groq.Message{Role: "assistant", Content: "Done."}
		return &reply, nil
	}
	reply := m.replies[m.calls]
	m.calls++
	return &reply, nil
}

type fakeToolClient struct {
	defs    []mcpclient.ToolDef
	results map[string]string
	called  []string
}

func (f *fakeToolClient) ListTools(_ context.Context) ([]mcpclient.ToolDef, error) {
	return f.defs, nil
}

func (f *fakeToolClient) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	f.called = append(f.called, name)
	return f.results[name], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func toolCallReply(id, name, args string) groq.Message {
	return groq.Message{
		Role: "assistant",
		ToolCalls: []groq.ToolCall{{
			ID:   id,
			Type: "function",
			Function: groq.FunctionCall{
				Name:      name,
				Arguments: json.RawMessage(args),
			},
		}},
	}
}

func TestDriverAskExecutesToolCalls(t *testing.T) {
	model := &scriptedModel{replies: []groq.Message{
		toolCallReply("call_1", "get_kasa_device_status", `"{}"`),
		{Role: "assistant", Content: "The Outdoor plug is on."},
	}}
	tools := &fakeToolClient{
		results: map[string]string{
			"get_kasa_device_status": `{"alias":"Outdoor plug","is_on":true,"status":"success"}`,
		},
	}

	driver := agent.NewDriver(model, tools, io.Discard, testLogger())

	answer, err := driver.Ask(context.Background(), nil, "What is the status of 'Outdoor plug'?")
	if err != nil {
		t.Fatalf("Ask error: %v", err)
	}

	if answer != "The Outdoor plug is on." {
		t.Errorf("answer: got %q", answer)
	}
	if len(tools.called) != 1 || tools.called[0] != "get_kasa_device_status" {
		t.Errorf("tool calls: got %v", tools.called)
	}

	// The tool result must have been fed back to the model by call ID.
	var sawToolResult bool
	for _, msg := range model.lastMessages {
		if msg.Role == "tool" && msg.ToolCallID == "call_1" {
			sawToolResult = true
			if !strings.Contains(msg.Content, "Outdoor plug") {
				t.Errorf("tool message content: %q", msg.Content)
			}
		}
	}
	if !sawToolResult {
		t.Error("tool result was not appended to the conversation")
	}
}

func TestDriverAskBoundsToolCallLoop(t *testing.T) {
	// A model that never stops calling tools must not loop forever.
	looping := make([]groq.Message, 0, 16)
	for i := 0; i < 16; i++ {
		looping = append(looping, toolCallReply("call_x", "list_kasa_devices", `"{}"`))
	}
	model := &scriptedModel{replies: looping}
	tools := &fakeToolClient{results: map[string]string{"list_kasa_devices": "[]"}}

	driver := agent.NewDriver(model, tools, io.Discard, testLogger())

	_, err := driver.Ask(context.Background(), nil, "loop")
	if err == nil {
		t.Fatal("expected an error after exceeding the tool-call budget")
	}
}

func TestDriverRunScriptRunsFourPrompts(t *testing.T) {
	model := &scriptedModel{}
	tools := &fakeToolClient{
		defs: []mcpclient.ToolDef{
			{Name: "turn_kasa_device_on", Description: "on", InputSchema: map[string]any{"type": "object"}},
			{Name: "turn_kasa_device_off", Description: "off", InputSchema: map[string]any{"type": "object"}},
			{Name: "get_kasa_device_status", Description: "status", InputSchema: map[string]any{"type": "object"}},
			{Name: "list_kasa_devices", Description: "list", InputSchema: map[string]any{"type": "object"}},
		},
	}

	var out bytes.Buffer
	driver := agent.NewDriver(model, tools, &out, testLogger())

	if err := driver.RunScript(context.Background(), "Outdoor plug"); err != nil {
		t.Fatalf("RunScript error: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"step 1", "step 2", "step 3", "step 4",
		"Turn on the 'Outdoor plug' smart plug.",
		"Turn off 'Outdoor plug'.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
