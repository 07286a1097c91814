// Package openaicompat implements the completion backend client for
// OpenAI-compatible chat completion endpoints (x.ai Grok by default).
//
// The wire shape is fixed: the request carries the full conversation
// history with stream=false and temperature=0, and the reply is read from
// choices.0.message.content. Failures are classified so the dispatcher can
// tell the user what actually went wrong (see errors.go).
package openaicompat

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/tinyland-inc/tinyrelay/pkg/providers/protocoltypes"
)

type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	model    string
}

func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		http:     resty.New().SetTimeout(timeout),
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Chat sends the conversation to the completion endpoint and returns the
// assistant's reply text. The error is one of the taxonomy in errors.go;
// anything else is a transport failure that never reached the backend.
func (c *Client) Chat(ctx context.Context, messages []protocoltypes.Message) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(c.apiKey).
		SetBody(buildRequest(messages, c.model)).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}

	body := resp.Body()
	if resp.IsError() {
		return "", &StatusError{StatusCode: resp.StatusCode(), Body: string(body)}
	}

	if errObj := gjson.GetBytes(body, "error"); errObj.Exists() {
		msg := errObj.Get("message").String()
		if msg == "" {
			msg = errObj.String()
		}
		return "", &APIError{Message: msg}
	}

	reply := gjson.GetBytes(body, "choices.0.message.content")
	if !reply.Exists() {
		return "", &MalformedError{Body: string(body)}
	}

	return reply.String(), nil
}

func buildRequest(messages []protocoltypes.Message, model string) map[string]any {
	wire := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, map[string]any{
			"role":    msg.Role,
			"content": wireContent(msg),
		})
	}

	return map[string]any{
		"messages":    wire,
		"model":       model,
		"stream":      false,
		"temperature": 0,
	}
}

// wireContent renders a message's content: a bare string for text turns,
// an ordered part array for multimodal turns with images inlined as data
// URLs.
func wireContent(msg protocoltypes.Message) any {
	if !msg.HasParts() {
		return msg.Content
	}

	parts := make([]map[string]any, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case "image":
			mediaType := p.MediaType
			if mediaType == "" {
				mediaType = "image/jpeg"
			}
			parts = append(parts, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": fmt.Sprintf("data:%s;base64,%s", mediaType, p.Data),
				},
			})
		default:
			parts = append(parts, map[string]any{
				"type": "text",
				"text": p.Text,
			})
		}
	}
	return parts
}
