// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Normaliser: Extracts text from one document format
//   - NormaliserRegistry: Selects the normaliser for a MIME type
//   - PostProcessor / PostProcessorPipeline: Chunking
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Durable exact nearest-neighbour index
//   - DocumentStore: Document and chunk persistence
//   - LLMService: Text generation
//   - ModelManager: Backend health, installed models and model pulls
//   - PromptStore: Prompt templates
//   - ConfigStore: File-backed configuration values
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
