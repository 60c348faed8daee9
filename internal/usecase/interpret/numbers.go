package interpret

import (
	"math"
	"strings"
	"time"

	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

type dimension uint8

const (
	dimNone dimension = iota
	dimPrice
	dimMileage
	dimYear
)

type bound uint8

const (
	boundNone bound = iota
	boundMax
	boundMin
)

const (
	minYear = 1990
	// bareThousandsPriceFloor splits "до 50 тыс" (mileage) from "до 900 тыс" (price).
	bareThousandsPriceFloor = 100_000
	maxMagnitude            = 1e13
)

type cuePhrase struct {
	words []string
	bound bound
}

// cues are matched longest first, ending right before the number.
var cues = []cuePhrase{
	{[]string{"не", "более"}, boundMax},
	{[]string{"не", "больше"}, boundMax},
	{[]string{"не", "дороже"}, boundMax},
	{[]string{"не", "старше"}, boundMin},
	{[]string{"up", "to"}, boundMax},
	{[]string{"до"}, boundMax},
	{[]string{"максимум"}, boundMax},
	{[]string{"макс"}, boundMax},
	{[]string{"max"}, boundMax},
	{[]string{"under"}, boundMax},
	{[]string{"below"}, boundMax},
	{[]string{"дешевле"}, boundMax},
	{[]string{"<"}, boundMax},
	{[]string{"от"}, boundMin},
	{[]string{"более"}, boundMin},
	{[]string{"свыше"}, boundMin},
	{[]string{"больше"}, boundMin},
	{[]string{"после"}, boundMin},
	{[]string{"from"}, boundMin},
	{[]string{"over"}, boundMin},
	{[]string{"above"}, boundMin},
	{[]string{"min"}, boundMin},
	{[]string{">"}, boundMin},
}

var (
	millionWords  = []string{"млн", "mln", "m", "mio"}
	millionStems  = []string{"миллион", "million"}
	thousandWords = []string{"т", "к", "k", "тыс", "thousand"}
	thousandStems = []string{"тысяч"}

	priceUnitWords   = []string{"р", "руб", "rub", "usd", "eur", "евро"}
	priceUnitStems   = []string{"рубл", "доллар", "dollar", "бакс"}
	mileageUnitWords = []string{"км", "km", "ткм"}
	yearUnitWords    = []string{"г", "гг", "год", "года", "year", "yr"}

	mileageContext = []string{"пробег", "mileage", "probeg"}
	priceContext   = []string{"цен", "бюджет", "стоим", "price", "budget", "cost"}
	yearContext    = []string{"год", "выпуск", "year"}

	rangeConnectors = []string{"до", "to"}
)

func multiplierOf(t token) (float64, bool) {
	if t.kind != kindWord {
		return 0, false
	}
	switch {
	case oneOf(t.text, millionWords) || hasStem(t.text, millionStems):
		return 1e6, true
	case oneOf(t.text, thousandWords) || hasStem(t.text, thousandStems):
		return 1e3, true
	}
	return 0, false
}

func unitOf(t token) dimension {
	switch t.kind {
	case kindSymbol:
		if t.text == "$" || t.text == "€" || t.text == "₽" {
			return dimPrice
		}
	case kindWord:
		switch {
		case oneOf(t.text, priceUnitWords) || hasStem(t.text, priceUnitStems):
			return dimPrice
		case oneOf(t.text, mileageUnitWords):
			return dimMileage
		case oneOf(t.text, yearUnitWords):
			return dimYear
		}
	}
	return dimNone
}

func contextOf(t token) dimension {
	if t.kind != kindWord {
		return dimNone
	}
	switch {
	case hasStem(t.text, mileageContext):
		return dimMileage
	case hasStem(t.text, priceContext):
		return dimPrice
	case hasStem(t.text, yearContext):
		return dimYear
	}
	return dimNone
}

// cueBefore matches a cue phrase ending at index end.
func cueBefore(toks []token, end int) (bound, int) {
	for _, c := range cues {
		n := len(c.words)
		if end-n+1 < 0 {
			continue
		}
		ok := true
		for k, w := range c.words {
			t := toks[end-n+1+k]
			if t.text != w || (t.kind != kindWord && t.kind != kindSymbol) {
				ok = false
				break
			}
		}
		if ok {
			return c.bound, n
		}
	}
	return boundNone, 0
}

// numericWord reports whether w belongs to the numeric vocabulary (cues, units, context nouns).
func numericWord(w string) bool {
	for _, c := range cues {
		for _, cw := range c.words {
			if cw == w {
				return true
			}
		}
	}
	t := token{kind: kindWord, text: w}
	if _, ok := multiplierOf(t); ok {
		return true
	}
	return unitOf(t) != dimNone || contextOf(t) != dimNone
}

// measure is one number with everything attached to it.
type measure struct {
	start   int // first consumed token
	end     int // one past the last consumed token
	value   float64
	factor  float64
	hasMult bool
	unit    dimension
	ctx     dimension
	ctxIdx  int
	bound   bound
	tok     token
}

func scanMeasure(toks []token, i int) measure {
	m := measure{start: i, value: toks[i].num, factor: 1, ctxIdx: -1, tok: toks[i]}

	k := i + 1
	if k < len(toks) {
		if f, ok := multiplierOf(toks[k]); ok {
			m.factor, m.hasMult = f, true
			k++
		}
	}
	if k < len(toks) {
		if d := unitOf(toks[k]); d != dimNone {
			m.unit = d
			k++
		}
	}
	m.end = k

	j := i - 1
	if j >= 0 && toks[j].kind == kindSymbol && unitOf(toks[j]) == dimPrice {
		m.unit = dimPrice
		m.start = j
		j--
	}
	if b, n := cueBefore(toks, j); n > 0 {
		m.bound = b
		m.start = j - n + 1
		j -= n
	}

	for ; j >= 0; j-- {
		t := toks[j]
		if t.kind == kindPunct || t.kind == kindNumber {
			break
		}
		if d := contextOf(t); d != dimNone {
			m.ctx, m.ctxIdx = d, j
			break
		}
	}
	if m.ctx == dimNone && m.end < len(toks) {
		if d := contextOf(toks[m.end]); d != dimNone {
			m.ctx, m.ctxIdx = d, m.end
		}
	}
	return m
}

// link joins "от X до Y", "from X to Y" and "X-Y" pairs: X becomes the lower bound,
// Y the upper, and X borrows Y's multiplier, unit and context when it has none.
// A connector only links after an explicit lower-bound cue, so "2018 до 3 млн" stays two measures.
func link(toks []token, a, b *measure) {
	hyphen := a.end < len(toks) && toks[a.end].isSymbol("-") && b.start == a.end+1
	connector := a.bound == boundMin && b.start == a.end && b.start < len(toks) &&
		toks[b.start].kind == kindWord && oneOf(toks[b.start].text, rangeConnectors)
	if !hyphen && !connector {
		return
	}

	if a.bound == boundNone {
		a.bound = boundMin
	}
	if hyphen {
		a.end++
		if b.bound == boundNone {
			b.bound = boundMax
		}
	}

	if !a.hasMult && b.hasMult {
		a.factor, a.hasMult = b.factor, true
	}
	if a.unit == dimNone {
		a.unit = b.unit
	}
	switch {
	case a.ctx == dimNone && b.ctx != dimNone:
		a.ctx = b.ctx
	case b.ctx == dimNone && a.ctx != dimNone:
		b.ctx = a.ctx
	}
}

func (m measure) dimension(now time.Time) dimension {
	if m.unit != dimNone {
		return m.unit
	}
	if m.ctx != dimNone {
		return m.ctx
	}
	amount := m.value * m.factor
	switch {
	case m.isYearLike(now):
		return dimYear
	case m.factor == 1e6:
		return dimPrice
	case m.hasMult, m.bound != boundNone && amount >= 1000:
		if amount >= bareThousandsPriceFloor {
			return dimPrice
		}
		return dimMileage
	}
	return dimNone
}

func (m measure) isYearLike(now time.Time) bool {
	if m.hasMult || m.tok.decimal || m.tok.digits != 4 {
		return false
	}
	return m.value >= minYear && m.value <= float64(now.Year()+1)
}

func (m measure) spans() []int { return seq(m.start, m.end) }

// numberRule extracts price, mileage and year bounds.
func numberRule(now func() time.Time) rule {
	return func(toks []token, _ *lexicon.Lexicon) []extraction {
		var ms []measure
		for i, t := range toks {
			if t.kind == kindNumber {
				ms = append(ms, scanMeasure(toks, i))
			}
		}
		for k := 1; k < len(ms); k++ {
			link(toks, &ms[k-1], &ms[k])
		}

		clock := now()
		var out []extraction
		for _, m := range ms {
			dim := m.dimension(clock)
			if dim == dimNone {
				continue
			}
			amount := m.value * m.factor
			if amount <= 0 || amount > maxMagnitude || math.IsNaN(amount) {
				continue
			}
			if dim == dimYear && !m.isYearLike(clock) {
				continue
			}

			e := extraction{num: int64(math.Round(amount)), spans: m.spans()}
			if m.ctxIdx >= 0 {
				e.soft = []int{m.ctxIdx}
			}
			e.slot = slotFor(dim, m.bound)
			out = append(out, e)
		}
		return out
	}
}

func slotFor(dim dimension, b bound) slot {
	switch dim {
	case dimYear:
		switch b {
		case boundMin:
			return slotYearMin
		case boundMax:
			return slotYearMax
		}
		return slotYearExact
	case dimMileage:
		if b == boundMin {
			return slotMileageMin
		}
		return slotMileageMax
	default:
		if b == boundMin {
			return slotPriceMin
		}
		return slotPriceMax
	}
}

func oneOf(w string, list []string) bool {
	for _, s := range list {
		if w == s {
			return true
		}
	}
	return false
}

func hasStem(w string, stems []string) bool {
	for _, s := range stems {
		if strings.HasPrefix(w, s) {
			return true
		}
	}
	return false
}
