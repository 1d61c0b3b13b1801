// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The generation path is:
//
//	ItineraryOrchestrator -> ReadinessGate -> RetrievalService
//	  -> PromptBuilder -> Retrier(LLMService) -> ParseItinerary
//
// Questions take the same path through QuestionService, without
// deduplication and with a metadata filter on retrieval.
//
// Uploads flow through IngestService independently of generation. A batch
// that ingests anything clears the orchestrator's reusable results.
//
// Services are pure Go with no CGO. Outside the ports they only use
// concurrency helpers (singleflight and an expiring result cache).
package services
