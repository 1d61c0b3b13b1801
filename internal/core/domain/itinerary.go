package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MaxDurationDays caps the length of a generated itinerary.
const MaxDurationDays = 30

// ItineraryRequest is a travel query.
type ItineraryRequest struct {
	Destination  string `json:"destination"`
	DurationDays int    `json:"duration"`
	Preferences  string `json:"preferences"`
}

// Validate checks the request is answerable.
func (r ItineraryRequest) Validate() error {
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidInput)
	}
	if r.DurationDays <= 0 {
		return fmt.Errorf("%w: duration must be a positive number of days", ErrInvalidInput)
	}
	if r.DurationDays > MaxDurationDays {
		return fmt.Errorf("%w: duration must be at most %d days", ErrInvalidInput, MaxDurationDays)
	}
	return nil
}

// Fingerprint identifies requests that are equal after normalisation.
// Destination and preferences are case-folded, trimmed and have inner
// whitespace collapsed.
func (r ItineraryRequest) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(normaliseField(r.Destination)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(r.DurationDays)))
	h.Write([]byte{0})
	h.Write([]byte(normaliseField(r.Preferences)))
	return hex.EncodeToString(h.Sum(nil))
}

func normaliseField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ItineraryStatus is the closed set of generation outcomes.
type ItineraryStatus string

// Itinerary statuses.
const (
	StatusPending    ItineraryStatus = "pending"
	StatusProcessing ItineraryStatus = "processing"
	StatusSuccess    ItineraryStatus = "success"
	StatusError      ItineraryStatus = "error"
)

// Terminal reports whether the status is final.
func (s ItineraryStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Period is a time-of-day section within a day.
type Period string

// Periods recognised in generated itineraries.
const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
	PeriodOther     Period = "other"
)

// TimeSection groups the lines written under one time-of-day heading.
type TimeSection struct {
	Period  Period   `json:"period"`
	Heading string   `json:"heading,omitempty"`
	Lines   []string `json:"lines"`
}

// DayPlan is one day of a parsed itinerary.
type DayPlan struct {
	Number   int           `json:"day"`
	Title    string        `json:"title,omitempty"`
	Sections []TimeSection `json:"sections,omitempty"`
	Notes    []string      `json:"notes,omitempty"`
}

// ParsedItinerary is the structured form of a markdown itinerary.
// Fallback is set when the text had no day headers and was kept as a
// single best-effort section; it is not an error.
type ParsedItinerary struct {
	Preamble []string  `json:"preamble,omitempty"`
	Days     []DayPlan `json:"days"`
	Fallback bool      `json:"fallback"`
}

// Source is a document that grounded a generated itinerary.
type Source struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// ItineraryResult is the outcome of an itinerary request.
type ItineraryResult struct {
	Status       ItineraryStatus `json:"status"`
	Destination  string          `json:"destination"`
	DurationDays int             `json:"duration"`
	Markdown     string          `json:"itinerary"`
	Parsed       ParsedItinerary `json:"structured"`
	Sources      []Source        `json:"sources,omitempty"`
	Message      string          `json:"message,omitempty"`
	Attempts     int             `json:"attempts,omitempty"`
}

// NewItineraryResult starts a pending result for the request.
func NewItineraryResult(req ItineraryRequest) *ItineraryResult {
	return &ItineraryResult{
		Status:       StatusPending,
		Destination:  req.Destination,
		DurationDays: req.DurationDays,
	}
}

// Clone returns a deep copy of r. Results shared between callers are
// cloned before being handed out.
func (r *ItineraryResult) Clone() *ItineraryResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Sources = slices.Clone(r.Sources)
	c.Parsed = r.Parsed.Clone()
	return &c
}

// Clone returns a deep copy of p.
func (p ParsedItinerary) Clone() ParsedItinerary {
	c := p
	c.Preamble = slices.Clone(p.Preamble)
	if p.Days != nil {
		c.Days = make([]DayPlan, len(p.Days))
		for i, d := range p.Days {
			d.Notes = slices.Clone(d.Notes)
			if d.Sections != nil {
				sections := make([]TimeSection, len(d.Sections))
				for j, s := range d.Sections {
					s.Lines = slices.Clone(s.Lines)
					sections[j] = s
				}
				d.Sections = sections
			}
			c.Days[i] = d
		}
	}
	return c
}
