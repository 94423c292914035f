package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/mohitagr18/mcp-home-automation/internal/infra"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client calls Groq's OpenAI-compatible chat completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithURL(apiKey, model, defaultBaseURL)
}

func NewClientWithURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = "qwen/qwen3-32b"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			// Tool-calling completions can take a while.
			Timeout: 120 * time.Second,
		},
	}
}

// Message is a chat message in a conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw arguments payload.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Args decodes the arguments payload. OpenAI-compatible APIs send it as a
// JSON-encoded string, but some providers inline the object directly.
func (f FunctionCall) Args() (map[string]any, error) {
	if len(f.Arguments) == 0 {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal(f.Arguments, &v); err != nil {
		return nil, fmt.Errorf("parsing tool arguments: %w", err)
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return map[string]any{}, nil
		}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("parsing tool arguments: %w", err)
		}
	}

	args, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, fmt.Errorf("tool arguments are not an object: %w", err)
	}
	return args, nil
}

// Tool advertises one callable function to the model.
type Tool struct {
	Type     string   `json:"type"`
	Function ToolSpec `json:"function"`
}

type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat runs one completion round and returns the assistant message, which
// may carry tool calls for the caller to execute.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var result chatResponse
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("groq API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(respBody))
		}

		result = chatResponse{}
		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from groq")
	}

	msg := result.Choices[0].Message
	return &msg, nil
}
