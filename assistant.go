package dinetap

import (
	"context"
	"io"
	"net/http"

	"github.com/dinetap/dinetap-go/apierr"
)

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// AssistantService relays chat and text-to-speech requests. Inference runs in
// the backend; responses are consumed as plain text and opaque audio bytes.
type AssistantService struct {
	c *Client
}

// Chat sends a message plus prior history and returns the assistant's reply.
func (s *AssistantService) Chat(ctx context.Context, message string, history []ChatMessage) (string, error) {
	body := map[string]any{
		"message": message,
		"history": history,
	}
	var resp struct {
		Reply   string `json:"reply"`
		Message string `json:"message"`
	}
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/ai/chat", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Reply != "" {
		return resp.Reply, nil
	}
	return resp.Message, nil
}

// Speech fetches synthesized audio for text. The returned bytes are whatever
// container the backend produces, typically mp3.
func (s *AssistantService) Speech(ctx context.Context, text string) ([]byte, error) {
	raw, err := jsonBody(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.c.baseURL.JoinPath("/api/ai/tts").String(), raw)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.c.httpc.Do(req)
	if err != nil {
		return nil, apierr.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apierr.FromStatus(resp.StatusCode, serverMessage(msg))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}
