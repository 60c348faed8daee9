package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/PonchoGAD/auto-search-mvp/internal/db"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/filter"
)

// scoreField is the alias FT.SEARCH gives the KNN distance.
const scoreField = "__vector_score"

// SearchKNN returns the K listings nearest to q.Vector among those passing
// q.Filters, closest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := validateKNN(q); err != nil {
		return nil, err
	}

	k := strconv.Itoa(q.K)
	args := []string{q.IndexName, knnQuery(q.Filters, k)}
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n+1))
		args = append(args, q.ReturnFields...)
		args = append(args, scoreField)
	}
	// without an explicit LIMIT FT.SEARCH caps replies at 10 hits
	args = append(args,
		"SORTBY", scoreField,
		"LIMIT", "0", k,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	reply, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseKNNResult(reply)
}

func validateKNN(q *db.KNNQuery) error {
	switch {
	case q == nil:
		return errors.New("knn query is required")
	case q.IndexName == "":
		return errors.New("index name is required")
	case len(q.Vector) == 0:
		return errors.New("vector is required")
	case q.K <= 0:
		return errors.New("k must be positive")
	}
	return nil
}

func knnQuery(filters filter.Expression, k string) string {
	knn := "[KNN " + k + " @vector $BLOB]"
	if pre := buildFilter(filters); pre != "" {
		return "(" + pre + ")=>" + knn
	}
	return "*=>" + knn
}

// parseKNNResult decodes the RESP2 reply [total, key1, [f, v, ...], key2, ...].
// Malformed hits are skipped rather than failing the whole search.
func parseKNNResult(reply []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	hits := reply[1:]
	entries := make([]db.SearchEntry, 0, len(hits)/2)
	for i := 0; i+1 < len(hits); i += 2 {
		entry, ok := decodeHit(hits[i], hits[i+1])
		if ok {
			entries = append(entries, entry)
		}
	}
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func decodeHit(keyMsg, fieldsMsg rueidis.RedisMessage) (db.SearchEntry, bool) {
	key, err := keyMsg.ToString()
	if err != nil {
		return db.SearchEntry{}, false
	}
	pairs, err := fieldsMsg.ToArray()
	if err != nil {
		return db.SearchEntry{}, false
	}

	fields := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nerr := pairs[j].ToString()
		value, verr := pairs[j+1].ToString()
		if nerr == nil && verr == nil {
			fields[name] = value
		}
	}

	entry := db.SearchEntry{Key: key, Fields: fields}
	if raw, ok := fields[scoreField]; ok {
		if dist, err := strconv.ParseFloat(raw, 64); err == nil {
			entry.Score = similarity(dist)
		}
		delete(fields, scoreField)
	}
	return entry, true
}

// similarity converts cosine distance (0..2) into a [0,1] similarity.
func similarity(distance float64) float64 {
	return min(1, max(0, 1-distance))
}

// buildFilter renders the FT.SEARCH pre-filter: must clauses as-is, must-not
// clauses negated, all implicitly AND-ed.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var b strings.Builder
	write := func(clause string, negate bool) {
		if clause == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if negate {
			b.WriteByte('-')
		}
		b.WriteString(clause)
	}
	for _, c := range expr.Must() {
		write(buildCondition(c), false)
	}
	for _, c := range expr.MustNot() {
		write(buildCondition(c), true)
	}
	return b.String()
}

func buildCondition(c filter.Condition) string {
	switch {
	case c.IsMatch():
		values := c.Values()
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = escapeTag(v)
		}
		return "@" + c.Key() + ":{" + strings.Join(escaped, "|") + "}"
	case c.IsRange():
		return buildNumericFilter(c.Key(), *c.Range())
	default:
		return ""
	}
}

func buildNumericFilter(key string, r filter.Range) string {
	lo, hi := "-inf", "+inf"
	if r.GTE() != nil {
		lo = strconv.FormatFloat(*r.GTE(), 'f', -1, 64)
	}
	if r.LTE() != nil {
		hi = strconv.FormatFloat(*r.LTE(), 'f', -1, 64)
	}
	return "@" + key + ":[" + lo + " " + hi + "]"
}

// escapeTag backslash-escapes everything but letters, digits and underscore,
// which covers the RediSearch tag separators and query syntax in any script.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 4)
	for _, r := range v {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// vectorToBytes packs v as little-endian FLOAT32, the layout the index stores.
func vectorToBytes(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return rueidis.BinaryString(buf)
}
