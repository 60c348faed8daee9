package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DistanceCosine is the only metric the listing index uses; scores are 1 - distance.
const DistanceCosine = "COSINE"

// VectorAlgorithm is the FT.CREATE vector index algorithm.
type VectorAlgorithm string

const (
	// VectorHNSW is the approximate graph index.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat is the exact brute-force index, fine for small listing sets.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates the schema field kinds the listing index uses.
type IndexFieldType int

const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

// String returns the FT.CREATE keyword.
func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	case IndexFieldVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("IndexFieldType(%d)", int(t))
	}
}

// IndexField is one schema attribute. Vector settings are ignored for other types.
type IndexField struct {
	Name string
	Type IndexFieldType

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    string
	VectorM           int // HNSW max edges per node, 0 keeps the server default
	VectorEFConstruct int // HNSW EF_CONSTRUCTION, 0 keeps the server default
}

// IndexDefinition is an FT index over hashes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_:-]+$`)

// IsValidIdentifier reports whether s is usable as an index name without quoting.
func IsValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Validate checks names, duplicates and vector dimensions.
func (idx *IndexDefinition) Validate() error {
	switch {
	case idx.Name == "":
		return errors.New("index name is required")
	case !IsValidIdentifier(idx.Name):
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	case len(idx.Fields) == 0:
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return fmt.Errorf("vector field %q requires positive DIM", f.Name)
		}
	}
	return nil
}

// String renders a short FT.CREATE-like summary for logs.
func (idx *IndexDefinition) String() string {
	var b strings.Builder
	b.WriteString("FT.CREATE ")
	b.WriteString(idx.Name)
	b.WriteString(" ON HASH")
	if len(idx.Prefixes) > 0 {
		b.WriteString(" PREFIX ")
		b.WriteString(strings.Join(idx.Prefixes, " "))
	}
	b.WriteString(" SCHEMA")
	for _, f := range idx.Fields {
		b.WriteString(" " + f.Name + " " + f.Type.String())
		if f.Type == IndexFieldVector {
			b.WriteString(" " + string(f.VectorAlgo))
		}
	}
	return b.String()
}

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition for the named index.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix restricts the index to hashes under the given key prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds NUMERIC fields.
func (b *IndexBuilder) Numeric(names ...string) *IndexBuilder { return b.add(IndexFieldNumeric, names) }

// Tag adds TAG fields.
func (b *IndexBuilder) Tag(names ...string) *IndexBuilder { return b.add(IndexFieldTag, names) }

// Text adds TEXT fields.
func (b *IndexBuilder) Text(names ...string) *IndexBuilder { return b.add(IndexFieldText, names) }

// Vector adds a FLOAT32 cosine vector field.
func (b *IndexBuilder) Vector(name string, dim int, algo VectorAlgorithm, m, efConstruct int) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:              name,
		Type:              IndexFieldVector,
		VectorAlgo:        algo,
		VectorDim:         dim,
		VectorDistance:    DistanceCosine,
		VectorM:           m,
		VectorEFConstruct: efConstruct,
	})
	return b
}

func (b *IndexBuilder) add(t IndexFieldType, names []string) *IndexBuilder {
	for _, n := range names {
		b.def.Fields = append(b.def.Fields, IndexField{Name: n, Type: t})
	}
	return b
}

// Build validates the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}
