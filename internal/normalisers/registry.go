package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to the highest priority normaliser
// registered for their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates a registry with the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byMIME: make(map[string][]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range n.SupportedMIMETypes() {
		key := strings.ToLower(mimeType)
		list := append(r.byMIME[key], n)
		// Stable so that equal priorities keep registration order.
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[key] = list
	}
}

// Normalise runs the preferred normaliser for raw.MIMEType.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	candidates := r.byMIME[strings.ToLower(raw.MIMEType)]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedFormat, raw.MIMEType)
	}
	return candidates[0].Normalise(ctx, raw)
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mimeType := range r.byMIME {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}
