package driven

// PromptStore provides access to LLM prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptItinerary is the itinerary instruction template. It is a Go
	// text/template rendered with the destination, duration, preferences
	// and retrieved context.
	PromptItinerary = "itinerary"

	// PromptQuestion is the free-form question template, rendered with the
	// question, recent chat history and retrieved context.
	PromptQuestion = "question"
)
