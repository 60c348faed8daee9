// Package match holds the closed vocabulary explaining why a listing matched a query.
package match

import "strings"

// Reason is a single match explanation.
type Reason uint8

// Reasons in rendering order.
const (
	Brand Reason = iota
	Price
	Mileage
	SaleIntent
	Fuel
	Condition
	numReasons
)

// labels is the public vocabulary; presentation badges depend on it.
var labels = [numReasons]string{
	Brand:      "brand",
	Price:      "price",
	Mileage:    "mileage",
	SaleIntent: "sale",
	Fuel:       "fuel",
	Condition:  "condition",
}

// String returns the public label.
func (r Reason) String() string {
	if r >= numReasons {
		return ""
	}
	return labels[r]
}

// Set is a set of reasons.
type Set uint8

// NewSet builds a set from reasons.
func NewSet(reasons ...Reason) Set {
	var s Set
	for _, r := range reasons {
		s = s.With(r)
	}
	return s
}

// With returns s plus r.
func (s Set) With(r Reason) Set {
	if r >= numReasons {
		return s
	}
	return s | 1<<r
}

// Has reports whether r is in s.
func (s Set) Has(r Reason) bool { return r < numReasons && s&(1<<r) != 0 }

// Len returns the number of reasons in s.
func (s Set) Len() int {
	n := 0
	for r := Reason(0); r < numReasons; r++ {
		if s.Has(r) {
			n++
		}
	}
	return n
}

// Reasons lists members in rendering order.
func (s Set) Reasons() []Reason {
	out := make([]Reason, 0, numReasons)
	for r := Reason(0); r < numReasons; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// String renders the set as a comma-joined label list, e.g. "brand, price".
func (s Set) String() string {
	parts := make([]string, 0, numReasons)
	for _, r := range s.Reasons() {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
