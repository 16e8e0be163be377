package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doclexa/doclexa/internal/config"
	"github.com/doclexa/doclexa/internal/documents"
	apperrors "github.com/doclexa/doclexa/internal/errors"
)

const analysisSystemPrompt = `You are a document analysis assistant. Identify the type of each
document, analyze its content, explain it in simple terms, and highlight the key points.
Answer in the language the user selected.`

// LLMEngine runs analyses through an OpenAI-compatible chat completion API.
type LLMEngine struct {
	cfg    config.EngineConfig
	client *http.Client
}

// NewLLMEngine creates an engine backed by a chat completion endpoint.
func NewLLMEngine(cfg config.EngineConfig) *LLMEngine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60
	}

	return &LLMEngine{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// chatMessage represents a chat message
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest represents an API request
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatResponse represents a non-streaming API response
type chatResponse struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (e *LLMEngine) Analyze(ctx context.Context, docs []*documents.Document, language string) (Result, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following %d document(s) and answer in %s:\n", len(docs), strings.ToUpper(language))
	for _, doc := range docs {
		fmt.Fprintf(&sb, "- %s (%s)\n", doc.Name, doc.Kind)
		if strings.HasSuffix(strings.ToLower(doc.Path), ".html") {
			if text, err := documents.ExtractTextFromFile(doc.Path); err == nil && text != "" {
				fmt.Fprintf(&sb, "  content: %s\n", text)
			}
		}
	}

	answer, err := e.complete(ctx, []chatMessage{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: RoleUser, Content: sb.String()},
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Question: fmt.Sprintf("Intelligent analysis of %d document(s)", len(docs)),
		Answer:   answer,
		Language: language,
	}, nil
}

func (e *LLMEngine) FollowUp(ctx context.Context, thread []Message, question string) (Result, error) {
	msgs := make([]chatMessage, 0, len(thread)+2)
	msgs = append(msgs, chatMessage{Role: "system", Content: analysisSystemPrompt})
	for _, m := range thread {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, chatMessage{Role: RoleUser, Content: question})

	answer, err := e.complete(ctx, msgs)
	if err != nil {
		return Result{}, err
	}

	return Result{Question: question, Answer: answer}, nil
}

// complete sends a chat completion request and returns the response text.
func (e *LLMEngine) complete(ctx context.Context, messages []chatMessage) (string, error) {
	req := chatRequest{
		Model:     e.cfg.Model,
		Messages:  messages,
		MaxTokens: e.cfg.MaxTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrEngineUnavailable.Code, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", apperrors.New(apperrors.ErrEngineUnavailable.Code,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(bodyBytes)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrEngineUnavailable.Code, "no response from model")
	}

	return result.Choices[0].Message.Content, nil
}
