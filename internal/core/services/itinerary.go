package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// DefaultDedupWindow is how long a successful result answers repeats of
// the same request.
const DefaultDedupWindow = 2 * time.Minute

// Messages returned to callers.
const (
	MessageModelNotReady    = "The model is still being prepared. Please try again shortly."
	MessageGenerationFailed = "The itinerary could not be generated. Please try again later."
	MessageEmptyResponse    = "The model returned an empty response."
	MessageAnswerFailed     = "The answer could not be generated. Please try again later."
)

const snippetLength = 200

// Ensure ItineraryOrchestrator implements the interface.
var _ driving.ItineraryService = (*ItineraryOrchestrator)(nil)

// ItineraryOrchestrator runs a request through readiness, retrieval,
// prompting, generation with retry and parsing. Requests with the same
// fingerprint share one execution.
type ItineraryOrchestrator struct {
	gate      driving.ReadinessGate
	retrieval driving.RetrievalService
	prompts   *PromptBuilder
	llm       driven.LLMService
	retrier   *Retrier
	genOpts   driven.GenerateOptions

	inflight singleflight.Group
	recent   *cache.Cache
	// corpus counts Forget calls; results from an older corpus are
	// neither shared with nor cached for newer requests.
	corpus atomic.Uint64
}

// ItineraryOption configures the orchestrator.
type ItineraryOption func(*ItineraryOrchestrator)

// WithGenerateOptions sets the options passed to every LLM call.
func WithGenerateOptions(opts driven.GenerateOptions) ItineraryOption {
	return func(o *ItineraryOrchestrator) {
		o.genOpts = opts
	}
}

// WithDedupWindow sets how long successful results are reused. Zero
// turns reuse off; concurrent requests still share one execution.
func WithDedupWindow(d time.Duration) ItineraryOption {
	return func(o *ItineraryOrchestrator) {
		if d <= 0 {
			o.recent = nil
			return
		}
		o.recent = cache.New(d, 2*d)
	}
}

// NewItineraryOrchestrator creates the orchestrator. A nil gate is
// treated as always ready.
func NewItineraryOrchestrator(
	gate driving.ReadinessGate,
	retrieval driving.RetrievalService,
	prompts *PromptBuilder,
	llm driven.LLMService,
	retrier *Retrier,
	opts ...ItineraryOption,
) *ItineraryOrchestrator {
	o := &ItineraryOrchestrator{
		gate:      gate,
		retrieval: retrieval,
		prompts:   prompts,
		llm:       llm,
		retrier:   retrier,
		recent:    cache.New(DefaultDedupWindow, 2*DefaultDedupWindow),
	}
	if o.prompts == nil {
		o.prompts = NewPromptBuilder(nil, DefaultContextBudget)
	}
	if o.retrier == nil {
		o.retrier = NewRetrier(DefaultRetryPolicy(), nil)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate produces an itinerary for req. Only invalid input is returned
// as an error; backend failures come back as a result with status error.
func (o *ItineraryOrchestrator) Generate(ctx context.Context, req domain.ItineraryRequest) (*domain.ItineraryResult, error) {
	logger.Section("Itinerary")
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 1. Readiness, without blocking
	if o.gate != nil {
		if st := o.gate.State(); !st.Settled() {
			logger.Debug("itinerary: model not ready (%s)", st)
			res := domain.NewItineraryResult(req)
			res.Status = domain.StatusProcessing
			res.Message = MessageModelNotReady
			return res, nil
		}
	}

	// 2. Deduplicate
	gen := o.corpus.Load()
	key := fmt.Sprintf("%s/%d", req.Fingerprint(), gen)
	if o.recent != nil {
		if v, ok := o.recent.Get(key); ok {
			logger.Debug("itinerary: reusing recent result for %s", key[:12])
			return v.(*domain.ItineraryResult).Clone(), nil
		}
	}

	ch := o.inflight.DoChan(key, func() (any, error) {
		// Joined callers must not lose the shared run when the first
		// caller goes away.
		res := o.run(context.WithoutCancel(ctx), req)
		if res.Status == domain.StatusSuccess && o.recent != nil && o.corpus.Load() == gen {
			o.recent.SetDefault(key, res)
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			logger.Debug("itinerary: joined in-flight request %s", key[:12])
		}
		return r.Val.(*domain.ItineraryResult).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Forget drops reusable results. It is called whenever the corpus changes.
func (o *ItineraryOrchestrator) Forget() {
	o.corpus.Add(1)
	if o.recent != nil {
		o.recent.Flush()
	}
}

func (o *ItineraryOrchestrator) run(ctx context.Context, req domain.ItineraryRequest) *domain.ItineraryResult {
	res := domain.NewItineraryResult(req)
	res.Status = domain.StatusProcessing

	// 3. Retrieve grounding context
	chunks, err := o.retrieval.Retrieve(ctx, req)
	if err != nil {
		logger.Warn("itinerary: retrieval failed, continuing without context: %v", err)
		chunks = nil
	}

	// 4. Prompt
	prompt, used, err := o.prompts.Build(req, chunks)
	if err != nil {
		return fail(res, err)
	}
	res.Sources = sources(used)
	logger.Debug("itinerary: prompt of %d characters with %d source chunk(s)", utf8.RuneCountInString(prompt), len(used))

	// 5. Invoke with retry
	var text string
	attempts, err := o.retrier.Do(ctx, func(ctx context.Context) error {
		out, err := o.llm.Generate(ctx, prompt, o.genOpts)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("%w: %s", domain.ErrStillProcessing, MessageEmptyResponse)
		}
		text = out
		return nil
	})
	res.Attempts = attempts
	if err != nil {
		return fail(res, err)
	}

	// 6. Parse
	res.Markdown = strings.TrimSpace(text)
	res.Parsed = ParseItinerary(res.Markdown)
	res.Status = domain.StatusSuccess
	logger.Info("itinerary for %s: %d day(s) after %d attempt(s)", req.Destination, len(res.Parsed.Days), attempts)
	return res
}

func fail(res *domain.ItineraryResult, err error) *domain.ItineraryResult {
	logger.Error("itinerary generation failed: %v", err)
	res.Status = domain.StatusError
	res.Message = failureMessage(err, MessageGenerationFailed)
	return res
}

// failureMessage explains err to the caller, prefixed with generic when
// there is no more specific explanation.
func failureMessage(err error, generic string) string {
	switch {
	case errors.Is(err, domain.ErrGenerationTimeout):
		return "The model did not respond in time: " + err.Error()
	case errors.Is(err, domain.ErrBackendRejected):
		return "The model backend rejected the request: " + err.Error()
	default:
		return generic + " " + err.Error()
	}
}

func sources(chunks []domain.RetrievedChunk) []domain.Source {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]domain.Source, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		name := c.DocumentTitle
		if name == "" {
			name = c.Filename
		}
		out = append(out, domain.Source{
			DocumentID: c.Chunk.DocumentID,
			Name:       name,
			Snippet:    snippet(c.Chunk.Content),
			Score:      c.Score,
		})
	}
	return out
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= snippetLength {
		return text
	}
	r := []rune(text)
	return string(r[:snippetLength]) + "..."
}
