package mode

import "github.com/kailas-cloud/multivec/internal/domain"

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid queries both collections and interleaves the results.
	Hybrid Mode = "hybrid"
	// VisualOnly queries only the visual (page) collection.
	VisualOnly Mode = "visual_only"
	// TextOnly queries only the text (chunk) collection.
	TextOnly Mode = "text_only"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == VisualOnly || m == TextOnly
}

// Collections returns the collections this mode targets, in the
// deterministic priority order used for merging (visual before text).
func (m Mode) Collections() []domain.Collection {
	switch m {
	case VisualOnly:
		return []domain.Collection{domain.CollectionVisual}
	case TextOnly:
		return []domain.Collection{domain.CollectionText}
	default:
		return []domain.Collection{domain.CollectionVisual, domain.CollectionText}
	}
}
