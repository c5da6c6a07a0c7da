package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Anthropic Messages API constants.
const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
)

// editorToolName is the tool the model uses to request file edits.
const editorToolName = "str_replace_editor"

// editorToolSchema describes the editor tool's input. It is sent with
// every request, so its cost is part of the fixed token overhead
// reserved by the budget pre-check.
var editorToolSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "command": {"type": "string", "enum": ["view", "create", "insert", "str_replace", "undo_edit"]},
    "path": {"type": "string"},
    "file_text": {"type": "string"},
    "insert_line": {"type": "integer"},
    "old_str": {"type": "string"},
    "new_str": {"type": "string"},
    "view_range": {"type": "array", "items": {"type": "integer"}}
  },
  "required": ["command", "path"]
}`)

// --- Wire types ---
//
// These map to the Anthropic Messages API JSON format. They stay
// unexported: callers see only Prompt in and Command values out.

type wireRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	Tools     []wireTool    `json:"tools,omitempty"`
	Stream    bool          `json:"stream"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// buildRequest converts a prompt to the Anthropic wire format with the
// fixed editor tool attached.
func buildRequest(model string, maxTokens int, prompt Prompt) wireRequest {
	return wireRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    prompt.System,
		Messages: []wireMessage{{
			Role:    "user",
			Content: []wireBlock{{Type: "text", Text: prompt.User}},
		}},
		Tools: []wireTool{{
			Name:        editorToolName,
			Description: "Propose file edits: view, create, insert, str_replace, undo_edit.",
			InputSchema: editorToolSchema,
		}},
		Stream: true,
	}
}

// openStream POSTs the request and returns the response body on a 200,
// or a *ProviderError describing the failure. The caller owns closing
// the returned body.
func openStream(ctx context.Context, httpClient *http.Client, baseURL, apiKey string, request wireRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "text/event-stream")
	httpRequest.Header.Set("X-Api-Key", apiKey)
	httpRequest.Header.Set("Anthropic-Version", anthropicVersion)

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("llm: send request: %w", err)
	}
	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}
	return httpResponse.Body, nil
}

// readProviderError parses the {"error":{"type","message"}} body shape;
// anything else is preserved verbatim in the message.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}
	return &ProviderError{StatusCode: httpResponse.StatusCode, Message: string(body)}
}
