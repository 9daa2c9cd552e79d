package result

import "github.com/kailas-cloud/multivec/internal/domain"

// Candidate is an intermediate stage-1 hit, optionally carrying an exact
// stage-2 score after re-ranking. The full token matrix is fetched lazily by
// the re-ranker, never held here.
type Candidate struct {
	itemID     string
	docID      string
	collection domain.Collection
	stage1     float64
	stage2     float64
	reranked   bool
	fields     map[string]string
}

// NewCandidate creates a stage-1 candidate.
func NewCandidate(
	itemID, docID string, collection domain.Collection,
	stage1 float64, fields map[string]string,
) Candidate {
	return Candidate{
		itemID:     itemID,
		docID:      docID,
		collection: collection,
		stage1:     stage1,
		fields:     fields,
	}
}

// WithStage2 returns a copy of the candidate carrying an exact MaxSim score.
func (c Candidate) WithStage2(score float64) Candidate {
	c.stage2 = score
	c.reranked = true
	return c
}

// ItemID returns the item identity.
func (c Candidate) ItemID() string { return c.itemID }

// DocID returns the owning document identifier.
func (c Candidate) DocID() string { return c.docID }

// Collection returns the source collection.
func (c Candidate) Collection() domain.Collection { return c.collection }

// Stage1 returns the approximate cosine similarity of representative vectors.
func (c Candidate) Stage1() float64 { return c.stage1 }

// Stage2 returns the exact MaxSim score and whether re-ranking produced one.
func (c Candidate) Stage2() (float64, bool) { return c.stage2, c.reranked }

// Score returns the best available score: stage-2 when present, stage-1 otherwise.
func (c Candidate) Score() float64 {
	if c.reranked {
		return c.stage2
	}
	return c.stage1
}

// Fields returns the metadata fields retrieved with the candidate.
func (c Candidate) Fields() map[string]string { return c.fields }

// Result is a single externally visible, ranked and deduplicated search hit.
type Result struct {
	itemID     string
	docID      string
	collection domain.Collection
	score      float64
	fields     map[string]string
}

// NewResult creates a final search result.
func NewResult(
	itemID, docID string, collection domain.Collection,
	score float64, fields map[string]string,
) Result {
	return Result{
		itemID:     itemID,
		docID:      docID,
		collection: collection,
		score:      score,
		fields:     fields,
	}
}

// ItemID returns the item identity.
func (r Result) ItemID() string { return r.itemID }

// DocID returns the owning document identifier.
func (r Result) DocID() string { return r.docID }

// Collection returns the source collection.
func (r Result) Collection() domain.Collection { return r.collection }

// Score returns the normalized relevance score in [0, 1].
func (r Result) Score() float64 { return r.score }

// Fields returns the metadata fields (filename, page/chunk, preview, ...).
func (r Result) Fields() map[string]string { return r.fields }

// Timing records per-stage latencies for one query, in milliseconds.
// A stage that did not run reports zero.
type Timing struct {
	EmbedMS  float64
	Stage1MS float64
	Stage2MS float64
	MergeMS  float64
	TotalMS  float64
}

// Response is the complete outcome of one search call.
type Response struct {
	Results []Result
	Total   int
	Timing  Timing
}
