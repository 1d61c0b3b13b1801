package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength caps a question, in characters.
const MaxQuestionLength = 2000

// ChatTurn is one earlier message of a conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MetadataFilter restricts retrieval to documents whose fields match every
// entry. The keys id, filename, title and format match the document's own
// fields; any other key is looked up in its metadata. A list value matches
// any of its elements. Comparison ignores case.
type MetadataFilter map[string]any

// Matches reports whether doc passes the filter. An empty filter matches
// every document.
func (f MetadataFilter) Matches(doc *Document) bool {
	if len(f) == 0 {
		return true
	}
	if doc == nil {
		return false
	}
	for key, want := range f {
		got, ok := documentField(doc, key)
		if !ok || !matchesValue(got, want) {
			return false
		}
	}
	return true
}

func documentField(doc *Document, key string) (any, bool) {
	switch strings.ToLower(key) {
	case "id", "document_id":
		return doc.ID, true
	case "filename", "source":
		return doc.Filename, true
	case "title":
		return doc.Title, true
	case "format":
		return string(doc.Format), true
	}
	v, ok := doc.Metadata[key]
	return v, ok
}

func matchesValue(got, want any) bool {
	if list, ok := want.([]any); ok {
		for _, w := range list {
			if matchesValue(got, w) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(fmt.Sprint(got), fmt.Sprint(want))
}

// Question is a free-form question about the corpus.
type Question struct {
	Text    string         `json:"question"`
	History []ChatTurn     `json:"chat_history,omitempty"`
	Filter  MetadataFilter `json:"filter_metadata,omitempty"`
}

// Validate checks the question is answerable.
func (q Question) Validate() error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxQuestionLength {
		return fmt.Errorf("%w: question must be at most %d characters", ErrInvalidInput, MaxQuestionLength)
	}
	return nil
}

// Answer is the outcome of a Question. Status uses the same closed set as
// itineraries.
type Answer struct {
	Status   ItineraryStatus `json:"status"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Sources  []Source        `json:"sources"`
	Message  string          `json:"message,omitempty"`
	Attempts int             `json:"attempts,omitempty"`
}
