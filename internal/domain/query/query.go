// Package query holds the structured form of a free-text vehicle search.
package query

// StructuredQuery is the search intent extracted from a raw query.
// Nil pointers mean "unconstrained", never zero.
type StructuredQuery struct {
	Brand          *string `json:"brand,omitempty"`
	Model          *string `json:"model,omitempty"`
	YearMin        *int64  `json:"year_min,omitempty"`
	YearMax        *int64  `json:"year_max,omitempty"`
	MileageMin     *int64  `json:"mileage_min,omitempty"`
	MileageMax     *int64  `json:"mileage_max,omitempty"`
	PriceMin       *int64  `json:"price_min,omitempty"`
	PriceMax       *int64  `json:"price_max,omitempty"`
	Fuel           *string `json:"fuel,omitempty"`
	Color          *string `json:"color,omitempty"`
	PaintCondition *string `json:"paint_condition,omitempty"`
	Condition      *string `json:"condition,omitempty"`
	Region         *string `json:"region,omitempty"`
	Keywords       Set     `json:"keywords"`
	Exclusions     Set     `json:"exclusions"`
}

// Normalize enforces min <= max on every range by dropping the offending min bound.
func (q *StructuredQuery) Normalize() {
	dropInverted(&q.YearMin, q.YearMax)
	dropInverted(&q.MileageMin, q.MileageMax)
	dropInverted(&q.PriceMin, q.PriceMax)
}

func dropInverted(lo **int64, hi *int64) {
	if *lo != nil && hi != nil && **lo > *hi {
		*lo = nil
	}
}

// HasFilters reports whether anything beyond keywords was extracted.
func (q *StructuredQuery) HasFilters() bool {
	for _, s := range []*string{q.Brand, q.Model, q.Fuel, q.Color, q.PaintCondition, q.Condition, q.Region} {
		if s != nil {
			return true
		}
	}
	for _, n := range []*int64{q.YearMin, q.YearMax, q.MileageMin, q.MileageMax, q.PriceMin, q.PriceMax} {
		if n != nil {
			return true
		}
	}
	return q.Exclusions.Len() > 0
}

// HasNumericRange reports whether any numeric bound is set.
func (q *StructuredQuery) HasNumericRange() bool {
	for _, n := range []*int64{q.YearMin, q.YearMax, q.MileageMin, q.MileageMax, q.PriceMin, q.PriceMax} {
		if n != nil {
			return true
		}
	}
	return false
}

// BrandName returns the brand or "" when unset.
func (q *StructuredQuery) BrandName() string {
	if q.Brand == nil {
		return ""
	}
	return *q.Brand
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int64) *int64 { return &n }
