// Package analysis runs document analyses: a pluggable engine produces
// answers, and a session tracks the document pool, the conversation
// thread, and the per-user analysis quota.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doclexa/doclexa/internal/documents"
)

// Role labels a conversation message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in the conversation thread.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is one question/answer pair produced by the engine.
type Result struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	DocumentType string    `json:"document_type"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
}

// Engine produces analyses. Implementations must be safe for concurrent use.
type Engine interface {
	Analyze(ctx context.Context, docs []*documents.Document, language string) (Result, error)
	FollowUp(ctx context.Context, thread []Message, question string) (Result, error)
}

const stubAnalysisBody = `The AI has automatically identified the document type and provided a tailored explanation:

📄 **Document Type Detected**: The AI has analyzed the content and determined the most appropriate classification for your document.

🔍 **Content Analysis**: The AI has examined the document structure, language patterns, and key elements to provide relevant insights.

📝 **Simplified Explanation**: Complex information has been broken down into clear, understandable terms that are easy to follow.

💡 **Key Points**: Important details and actionable information have been highlighted for your convenience.

This intelligent analysis adapts to any type of document - from contracts and legal letters to medical reports, business offers, or any other document format.`

// StubEngine returns deterministic canned analyses. It is the default
// engine and the one the test suite runs against.
type StubEngine struct{}

// NewStubEngine creates the canned-response engine.
func NewStubEngine() *StubEngine {
	return &StubEngine{}
}

func (e *StubEngine) Analyze(ctx context.Context, docs []*documents.Document, language string) (Result, error) {
	answer := fmt.Sprintf("AI Analysis completed for %d document(s) in %s. \n\n%s",
		len(docs), strings.ToUpper(language), stubAnalysisBody)

	return Result{
		Question: fmt.Sprintf("Intelligent analysis of %d document(s)", len(docs)),
		Answer:   answer,
		Language: language,
	}, nil
}

func (e *StubEngine) FollowUp(ctx context.Context, thread []Message, question string) (Result, error) {
	answer := fmt.Sprintf("Response to: %q - This is a simulated AI response. "+
		"In a real app, this would contain the actual AI reply to your follow-up question.", question)

	return Result{
		Question: question,
		Answer:   answer,
	}, nil
}
