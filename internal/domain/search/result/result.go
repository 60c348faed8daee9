package result

import (
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/match"
)

// Result is a scored listing. Immutable once produced.
type Result struct {
	doc        listing.Document
	similarity float64
	score      float64
	reasons    match.Set
	dominant   bool
}

// New creates a scored result. score is clamped to [0,1].
func New(c listing.Candidate, score float64, reasons match.Set) Result {
	return Result{
		doc:        c.Document,
		similarity: c.Similarity,
		score:      clamp01(score),
		reasons:    reasons,
	}
}

// WithDominant returns a copy flagged as coming from a dominant source.
func (r Result) WithDominant(dominant bool) Result {
	r.dominant = dominant
	return r
}

// Document returns the underlying listing.
func (r Result) Document() listing.Document { return r.doc }

// SourceURL returns the listing identity.
func (r Result) SourceURL() string { return r.doc.SourceURL }

// SourceName returns the listing source.
func (r Result) SourceName() string { return r.doc.SourceName }

// Similarity returns the raw vector similarity.
func (r Result) Similarity() float64 { return r.similarity }

// Score returns the final score in [0,1].
func (r Result) Score() float64 { return r.score }

// Reasons returns why the listing matched.
func (r Result) Reasons() match.Set { return r.reasons }

// WhyMatch renders the reasons for presentation badges.
func (r Result) WhyMatch() string { return r.reasons.String() }

// Dominant reports whether the listing's source dominates the result set.
func (r Result) Dominant() bool { return r.dominant }

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
