package adapter

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/amishk599/jobfeed/internal/model"
)

// Ensure Registry implements model.Normalizer.
var _ model.Normalizer = (*Registry)(nil)

type normalizeFunc func(source string, data json.RawMessage) (model.Listing, error)

var normalizers = map[string]normalizeFunc{
	TypeJobTech:   normalizeJobTech,
	TypeCareerJet: normalizeCareerJet,
	TypeRSS:       normalizeRSS,
}

// Registry maps configured source names to their provider's normalizer.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]normalizeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]normalizeFunc)}
}

// Register binds a source name to a provider type.
func (r *Registry) Register(sourceName, sourceType string) error {
	fn, ok := normalizers[sourceType]
	if !ok {
		return fmt.Errorf("register source %q: unsupported type %q", sourceName, sourceType)
	}
	r.mu.Lock()
	r.sources[sourceName] = fn
	r.mu.Unlock()
	return nil
}

// Normalize maps raw onto a Listing using the normalizer of its source.
func (r *Registry) Normalize(raw model.RawResult) (model.Listing, error) {
	r.mu.RLock()
	fn, ok := r.sources[raw.Source]
	r.mu.RUnlock()
	if !ok {
		return model.Listing{}, &model.RecordParseError{
			Source: raw.Source,
			Field:  "source",
			Err:    fmt.Errorf("no normalizer registered"),
		}
	}
	return fn(raw.Source, raw.Data)
}

// SupportedType reports whether sourceType has a client and normalizer.
func SupportedType(sourceType string) bool {
	_, ok := normalizers[sourceType]
	return ok
}
