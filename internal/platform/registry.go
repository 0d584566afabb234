package platform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lukman83/pricepulse/internal/models"
)

// Registry maps platforms to their extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[models.Platform]Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[models.Platform]Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Platform()] = e
}

func (r *Registry) Get(p models.Platform) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, p)
	}
	return e, nil
}

// ForURL detects the platform of rawURL and returns its extractor.
func (r *Registry) ForURL(rawURL string) (Extractor, error) {
	return r.Get(DetectPlatform(rawURL))
}

func (r *Registry) List() []models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]models.Platform, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
