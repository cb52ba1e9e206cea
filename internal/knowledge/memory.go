package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lblod/entity-linker/internal/models"
)

// MemoryBase is the embedding-free fallback backend.
//
// A document matches when no classes and no steps are given, or when any
// potential class occurs case-insensitively in its content or metadata. An
// empty class occurs in every document.
// Recall drifts toward "everything" as hints get sparser, and no ranking is
// applied, so results carry no score.
type MemoryBase struct {
	loader Loader
	logger *slog.Logger

	mu   sync.RWMutex
	docs []models.Document
}

var _ Base = (*MemoryBase)(nil)

// NewMemory creates a naive in-memory backend.
func NewMemory(loader Loader, logger *slog.Logger) *MemoryBase {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBase{loader: loader, logger: logger}
}

// Initialize loads all documents into memory, replacing previous contents.
func (m *MemoryBase) Initialize(ctx context.Context) error {
	m.logger.Info("initializing in-memory knowledge base")

	docs, err := m.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	m.mu.Lock()
	m.docs = docs
	m.mu.Unlock()

	m.logger.Info("loaded documents into memory", "count", len(docs))
	return nil
}

// Search returns every matching document in load order.
func (m *MemoryBase) Search(_ context.Context, _ string, potentialClasses, steps []string) ([]models.ScoredDocument, error) {
	needles := make([]string, 0, len(potentialClasses))
	for _, pc := range potentialClasses {
		needles = append(needles, strings.ToLower(pc))
	}
	openRecall := len(potentialClasses) == 0 && len(steps) == 0

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := answerSet{}
	var results []models.ScoredDocument
	for _, doc := range m.docs {
		if !openRecall && !matchesAny(doc, needles) {
			continue
		}
		if !seen.admit(doc.Answer()) {
			continue
		}
		results = append(results, models.ScoredDocument{Document: doc})
	}
	return results, nil
}

func matchesAny(doc models.Document, needles []string) bool {
	if len(needles) == 0 {
		return false
	}
	content := strings.ToLower(doc.Content)
	meta := strings.ToLower(doc.MetadataString())
	for _, n := range needles {
		if strings.Contains(content, n) || strings.Contains(meta, n) {
			return true
		}
	}
	return false
}
