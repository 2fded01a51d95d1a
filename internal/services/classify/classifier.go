package classify

import (
	"sort"
	"strings"

	"LevRecon/pkg/util"
)

const (
	GroupMajor = "major"
	GroupMinor = "minor"
)

var (
	DefaultMajorThresholds = []float64{50_000, 200_000, 500_000, 1_000_000}
	DefaultMinorThresholds = []float64{20_000, 100_000, 200_000}
)

// Classifier partitions tradable symbols into groups with fixed threshold sets.
type Classifier struct {
	quote   string
	exclude map[string]struct{}
	groups  map[string][]float64
}

// New returns a classifier for pairs quoted in quote. Ranked bases listed in
// exclude are never majors. Groups missing from groups get their defaults.
func New(quote string, exclude []string, groups map[string][]float64) *Classifier {
	c := &Classifier{
		quote:   util.NormalizeSymbol(quote),
		exclude: make(map[string]struct{}, len(exclude)),
		groups:  map[string][]float64{GroupMajor: DefaultMajorThresholds, GroupMinor: DefaultMinorThresholds},
	}
	for _, e := range exclude {
		c.exclude[util.NormalizeSymbol(e)] = struct{}{}
	}
	for g, th := range groups {
		if len(th) == 0 {
			continue
		}
		cp := make([]float64, len(th))
		copy(cp, th)
		sort.Float64s(cp)
		c.groups[strings.ToLower(g)] = cp
	}
	return c
}

// Quote returns the quote currency every classified symbol ends with.
func (c *Classifier) Quote() string { return c.quote }

// Classification is the result of one Classify call.
type Classification struct {
	Majors []string `json:"majors"`
	Minors []string `json:"minors"`

	group      map[string]string
	thresholds map[string][]float64
}

// Classify splits tradable into majors (ranked and tradable, in rank order)
// and minors (every other tradable symbol, sorted).
func (c *Classifier) Classify(ranked, tradable []string) Classification {
	cl := Classification{
		group:      make(map[string]string),
		thresholds: c.groups,
	}

	pairs := make(map[string]struct{}, len(tradable))
	for _, s := range tradable {
		if p := util.NormalizeSymbol(s); len(p) > len(c.quote) && strings.HasSuffix(p, c.quote) {
			pairs[p] = struct{}{}
		}
	}

	for _, r := range ranked {
		p := c.pair(r)
		if p == "" {
			continue
		}
		if _, ok := c.exclude[c.base(p)]; ok {
			continue
		}
		if _, ok := pairs[p]; !ok {
			continue
		}
		if _, seen := cl.group[p]; seen {
			continue
		}
		cl.group[p] = GroupMajor
		cl.Majors = append(cl.Majors, p)
	}

	for p := range pairs {
		if _, ok := cl.group[p]; ok {
			continue
		}
		cl.group[p] = GroupMinor
		cl.Minors = append(cl.Minors, p)
	}
	sort.Strings(cl.Minors)
	return cl
}

func (c *Classifier) pair(s string) string {
	return util.PairSymbol(s, c.quote)
}

func (c *Classifier) base(pair string) string {
	if len(pair) > len(c.quote) {
		return strings.TrimSuffix(pair, c.quote)
	}
	return pair
}

// Symbols returns majors followed by minors.
func (cl Classification) Symbols() []string {
	out := make([]string, 0, len(cl.Majors)+len(cl.Minors))
	out = append(out, cl.Majors...)
	return append(out, cl.Minors...)
}

// Group returns the group of symbol, or false if it is not tradable.
func (cl Classification) Group(symbol string) (string, bool) {
	g, ok := cl.group[util.NormalizeSymbol(symbol)]
	return g, ok
}

// ThresholdsFor returns a copy of the ordered threshold set of symbol's group.
func (cl Classification) ThresholdsFor(symbol string) ([]float64, bool) {
	g, ok := cl.Group(symbol)
	if !ok {
		return nil, false
	}
	th := cl.thresholds[g]
	out := make([]float64, len(th))
	copy(out, th)
	return out, true
}

// InGroup filters Symbols by group; "all" or "" returns every symbol.
func (cl Classification) InGroup(group string) []string {
	switch strings.ToLower(group) {
	case GroupMajor:
		return append([]string(nil), cl.Majors...)
	case GroupMinor:
		return append([]string(nil), cl.Minors...)
	default:
		return cl.Symbols()
	}
}
