// Package normalisers provides the Normaliser registry and helpers shared
// by the per-format normalisers in its subpackages. Each normaliser knows
// how to extract text content from one document format.
//
// Normalisers are registered with the Registry at startup.
package normalisers
