package services

import (
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// DefaultContextBudget is the maximum context length in characters.
const DefaultContextBudget = 6000

// ContextSeparator is placed between retrieved chunks in the prompt.
const ContextSeparator = "\n\n---\n\n"

// NoContextText stands in for the context when nothing was retrieved.
const NoContextText = "No reference documents were provided."

// DefaultItineraryTemplate is the built-in itinerary instruction template.
const DefaultItineraryTemplate = `You are a knowledgeable and friendly travel assistant. Your task is to create accurate,
well-structured, detailed and engaging travel information based on the provided context.

Guidelines:
- Use the context below to answer the user's question.
- If the context doesn't contain relevant information, say "I don't have enough information to answer that question."
- Provide clear, well-structured responses with bullet points or numbered lists when appropriate.
- Include interesting details and practical information from the context.
- Be concise but thorough in your responses.
- Highlight important names in bold.

Context:
{{.Context}}

Question: Create a detailed {{.Days}}-day travel itinerary for {{.Destination}}.
Start each day with a header of the form "## Day N: <title>" and include for each day:
1. Morning activities with specific times and locations
2. Lunch recommendations
3. Afternoon activities with specific times and locations
4. Dinner recommendations
5. Evening activities if applicable

Also include sections for:
- Accessibility information
- Insider tips and hidden gems
{{- if .Preferences}}

Traveler preferences: {{.Preferences}}
{{- end}}

Please provide a helpful and informative response based on the context above.
`

// DefaultQuestionTemplate is the built-in template for free-form questions.
const DefaultQuestionTemplate = `You are a knowledgeable and friendly travel assistant. Answer the user's question
using the provided context.

Guidelines:
- Use the context below to answer the user's question.
- If the context doesn't contain relevant information, say "I don't have enough information to answer that question."
- Provide clear, well-structured responses with bullet points or numbered lists when appropriate.
- Be concise but thorough in your responses.
{{- if .History}}

Conversation so far:
{{.History}}
{{- end}}

Context:
{{.Context}}

Question: {{.Question}}

Please provide a helpful and informative response based on the context above.
`

// MaxHistoryTurns is how many trailing chat turns reach the question prompt.
const MaxHistoryTurns = 6

// PromptData is the value the itinerary template is executed with.
type PromptData struct {
	Destination string
	Days        int
	Preferences string
	Context     string
}

// QuestionData is the value the question template is executed with.
type QuestionData struct {
	Question string
	History  string
	Context  string
}

// BuildContext joins chunk texts in rank order until adding the next one
// would exceed budget characters. It returns the joined text and how many
// chunks it holds. A non-positive budget means no limit.
func BuildContext(chunks []domain.RetrievedChunk, budget int) (string, int) {
	var (
		b    strings.Builder
		used int
		size int
	)
	sepLen := utf8.RuneCountInString(ContextSeparator)
	for i := range chunks {
		text := chunks[i].Chunk.Content
		n := utf8.RuneCountInString(text)
		if used > 0 {
			n += sepLen
		}
		if budget > 0 && size+n > budget {
			break
		}
		if used > 0 {
			b.WriteString(ContextSeparator)
		}
		b.WriteString(text)
		size += n
		used++
	}
	return b.String(), used
}

// BuildPrompt renders templateText for req with the retrieved chunks as
// context. It returns the prompt and the chunks that fit the budget.
// The result depends only on its arguments.
func BuildPrompt(
	templateText string,
	req domain.ItineraryRequest,
	chunks []domain.RetrievedChunk,
	budget int,
) (string, []domain.RetrievedChunk, error) {
	contextText, used := BuildContext(chunks, budget)
	if used == 0 {
		contextText = NoContextText
	}

	data := PromptData{
		Destination: strings.TrimSpace(req.Destination),
		Days:        req.DurationDays,
		Preferences: strings.TrimSpace(req.Preferences),
		Context:     contextText,
	}
	prompt, err := render(driven.PromptItinerary, templateText, data)
	if err != nil {
		return "", nil, err
	}
	return prompt, chunks[:used], nil
}

// BuildQuestionPrompt renders templateText for q, keeping the last
// MaxHistoryTurns turns of its history. Like BuildPrompt it returns the
// chunks that fit the budget.
func BuildQuestionPrompt(
	templateText string,
	q domain.Question,
	chunks []domain.RetrievedChunk,
	budget int,
) (string, []domain.RetrievedChunk, error) {
	contextText, used := BuildContext(chunks, budget)
	if used == 0 {
		contextText = NoContextText
	}

	data := QuestionData{
		Question: strings.TrimSpace(q.Text),
		History:  formatHistory(q.History),
		Context:  contextText,
	}
	prompt, err := render(driven.PromptQuestion, templateText, data)
	if err != nil {
		return "", nil, err
	}
	return prompt, chunks[:used], nil
}

func render(name, templateText string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return b.String(), nil
}

// formatHistory renders turns as "User: ..." and "Assistant: ..." lines.
// Blank turns are dropped.
func formatHistory(turns []domain.ChatTurn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		content := strings.Join(strings.Fields(turn.Content), " ")
		if content == "" {
			continue
		}
		role := "User"
		switch strings.ToLower(strings.TrimSpace(turn.Role)) {
		case "assistant", "ai", "bot":
			role = "Assistant"
		}
		lines = append(lines, role+": "+content)
	}
	if len(lines) > MaxHistoryTurns {
		lines = lines[len(lines)-MaxHistoryTurns:]
	}
	return strings.Join(lines, "\n")
}

// PromptBuilder renders prompts from the stored templates.
type PromptBuilder struct {
	store  driven.PromptStore
	budget int
}

// NewPromptBuilder creates a prompt builder. A nil store uses the built-in
// templates; a non-positive budget means DefaultContextBudget.
func NewPromptBuilder(store driven.PromptStore, budget int) *PromptBuilder {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &PromptBuilder{store: store, budget: budget}
}

// Budget returns the context budget in characters.
func (b *PromptBuilder) Budget() int {
	return b.budget
}

// Build renders the prompt for req.
func (b *PromptBuilder) Build(req domain.ItineraryRequest, chunks []domain.RetrievedChunk) (string, []domain.RetrievedChunk, error) {
	text := b.load(driven.PromptItinerary, DefaultItineraryTemplate)
	prompt, used, err := BuildPrompt(text, req, chunks, b.budget)
	if err != nil {
		return "", nil, err
	}
	b.logDropped(len(chunks) - len(used))
	return prompt, used, nil
}

// BuildQuestion renders the prompt for q.
func (b *PromptBuilder) BuildQuestion(q domain.Question, chunks []domain.RetrievedChunk) (string, []domain.RetrievedChunk, error) {
	text := b.load(driven.PromptQuestion, DefaultQuestionTemplate)
	prompt, used, err := BuildQuestionPrompt(text, q, chunks, b.budget)
	if err != nil {
		return "", nil, err
	}
	b.logDropped(len(chunks) - len(used))
	return prompt, used, nil
}

// load returns the stored template called name, or def when the store
// is absent, failing or blank.
func (b *PromptBuilder) load(name, def string) string {
	if b.store == nil {
		return def
	}
	loaded, err := b.store.Load(name)
	switch {
	case err != nil:
		logger.Warn("loading %s prompt failed, using built-in: %v", name, err)
	case strings.TrimSpace(loaded) != "":
		return loaded
	}
	return def
}

func (b *PromptBuilder) logDropped(dropped int) {
	if dropped > 0 {
		logger.Debug("prompt: dropped %d chunk(s) over the %d character budget", dropped, b.budget)
	}
}
