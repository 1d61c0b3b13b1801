package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItineraryRequest_Fingerprint(t *testing.T) {
	base := ItineraryRequest{Destination: "Tokyo", DurationDays: 3, Preferences: "museums, parks"}

	t.Run("normalised fields match", func(t *testing.T) {
		other := ItineraryRequest{Destination: "  tokyo ", DurationDays: 3, Preferences: "Museums,   PARKS"}
		assert.Equal(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("duration changes fingerprint", func(t *testing.T) {
		other := base
		other.DurationDays = 4
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("field boundary is significant", func(t *testing.T) {
		a := ItineraryRequest{Destination: "New York", DurationDays: 2, Preferences: ""}
		b := ItineraryRequest{Destination: "New", DurationDays: 2, Preferences: "York"}
		assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, base.Fingerprint(), base.Fingerprint())
		assert.Len(t, base.Fingerprint(), 64)
	})
}

func TestItineraryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ItineraryRequest
		wantErr bool
	}{
		{"valid", ItineraryRequest{Destination: "Paris", DurationDays: 2}, false},
		{"blank destination", ItineraryRequest{Destination: "  ", DurationDays: 2}, true},
		{"zero duration", ItineraryRequest{Destination: "Paris", DurationDays: 0}, true},
		{"negative duration", ItineraryRequest{Destination: "Paris", DurationDays: -1}, true},
		{"too long", ItineraryRequest{Destination: "Paris", DurationDays: MaxDurationDays + 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItineraryStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestNewItineraryResult(t *testing.T) {
	res := NewItineraryResult(ItineraryRequest{Destination: "Lisbon", DurationDays: 4})
	assert.Equal(t, StatusPending, res.Status)
	assert.Equal(t, "Lisbon", res.Destination)
	assert.Equal(t, 4, res.DurationDays)
}

func TestItineraryResult_Clone(t *testing.T) {
	orig := &ItineraryResult{
		Status:  StatusSuccess,
		Sources: []Source{{Name: "Lisbon guide"}},
		Parsed: ParsedItinerary{
			Preamble: []string{"Olá"},
			Days: []DayPlan{{
				Number:   1,
				Title:    "Alfama",
				Notes:    []string{"wear flat shoes"},
				Sections: []TimeSection{{Period: PeriodMorning, Lines: []string{"Castelo"}}},
			}},
		},
	}

	c := orig.Clone()
	c.Sources[0].Name = "changed"
	c.Parsed.Preamble[0] = "changed"
	c.Parsed.Days[0].Title = "changed"
	c.Parsed.Days[0].Notes[0] = "changed"
	c.Parsed.Days[0].Sections[0].Lines[0] = "changed"
	c.Parsed.Days[0].Sections = append(c.Parsed.Days[0].Sections, TimeSection{Period: PeriodEvening})

	assert.Equal(t, "Lisbon guide", orig.Sources[0].Name)
	assert.Equal(t, "Olá", orig.Parsed.Preamble[0])
	assert.Equal(t, "Alfama", orig.Parsed.Days[0].Title)
	assert.Equal(t, "wear flat shoes", orig.Parsed.Days[0].Notes[0])
	assert.Equal(t, "Castelo", orig.Parsed.Days[0].Sections[0].Lines[0])
	assert.Len(t, orig.Parsed.Days[0].Sections, 1)

	assert.Nil(t, (*ItineraryResult)(nil).Clone())
}
