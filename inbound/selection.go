package inbound

import (
	"math"
	"sort"
	"strings"
)

// Signature identifies an option across id rotations.
type Signature struct {
	Partnered   bool
	Solution    string
	Mode        string
	CarrierCode string
	CarrierName string
}

func SignatureOf(o Option) Signature {
	return Signature{
		Partnered:   o.Partnered,
		Solution:    o.Solution,
		Mode:        o.Mode,
		CarrierCode: o.CarrierCode,
		CarrierName: o.CarrierName,
	}
}

// Score rates how well o matches the signature. Partnered flag, solution,
// mode and carrier must match. The score only breaks ties: a matching
// carrier code adds two and a matching carrier name adds one.
func (s Signature) Score(o Option) (int, bool) {
	if o.Partnered != s.Partnered || o.Solution != s.Solution || o.Mode != s.Mode {
		return 0, false
	}
	if !s.carrierMatches(o) {
		return 0, false
	}
	score := 0
	if s.CarrierCode != "" && strings.EqualFold(s.CarrierCode, o.CarrierCode) {
		score += 2
	}
	if s.CarrierName != "" && strings.EqualFold(s.CarrierName, o.CarrierName) {
		score++
	}
	return score, true
}

// carrierMatches compares carrier codes when both sides carry one and
// falls back to names otherwise. A signature without any carrier matches
// every carrier.
func (s Signature) carrierMatches(o Option) bool {
	switch {
	case s.CarrierCode != "" && o.CarrierCode != "":
		return strings.EqualFold(s.CarrierCode, o.CarrierCode)
	case s.CarrierName != "" && o.CarrierName != "":
		return strings.EqualFold(s.CarrierName, o.CarrierName)
	}
	return s.CarrierCode == "" && s.CarrierName == ""
}

// BestMatch returns the highest-scoring match, breaking ties by charge.
func (s Signature) BestMatch(candidates []Option) (Option, bool) {
	best, bestScore, found := Option{}, -1, false
	for _, o := range candidates {
		score, ok := s.Score(o)
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && chargeOf(o) < chargeOf(best)) {
			best, bestScore, found = o, score, true
		}
	}
	return best, found
}

// Hints narrow automatic selection.
type Hints struct {
	Carrier  string
	Solution string
	Mode     string
}

func (h Hints) empty() bool { return h.Carrier == "" && h.Solution == "" }

func (h Hints) match(o Option) bool {
	if h.Carrier != "" && !strings.EqualFold(h.Carrier, o.CarrierCode) && !strings.EqualFold(h.Carrier, o.CarrierName) {
		return false
	}
	if h.Solution != "" && !strings.EqualFold(h.Solution, o.Solution) {
		return false
	}
	return true
}

// SelectionInput is everything a strategy may look at.
type SelectionInput struct {
	Candidates     []Option
	TargetID       string
	LastKnown      *Option
	ForcePartnered bool
	AutoSelect     bool
	Hints          Hints
}

// Strategy picks an option or declines.
type Strategy struct {
	Name string
	Pick func(in SelectionInput) (Option, bool)
}

// Strategies are tried in order; the first to pick wins.
var Strategies = []Strategy{
	{Name: "exact_id", Pick: pickExactID},
	{Name: "signature", Pick: pickSignature},
	{Name: "partnered_cheapest", Pick: pickPartneredCheapest},
	{Name: "hint", Pick: pickHint},
	{Name: "sole_option", Pick: pickSole},
	{Name: "cheapest_auto", Pick: pickCheapestAuto},
}

func pickExactID(in SelectionInput) (Option, bool) {
	if in.TargetID == "" {
		return Option{}, false
	}
	for _, o := range in.Candidates {
		if o.ID == in.TargetID {
			return o, true
		}
	}
	return Option{}, false
}

func pickSignature(in SelectionInput) (Option, bool) {
	if in.LastKnown == nil {
		return Option{}, false
	}
	if in.ForcePartnered && !in.LastKnown.Partnered {
		return Option{}, false
	}
	return SignatureOf(*in.LastKnown).BestMatch(in.Candidates)
}

func pickPartneredCheapest(in SelectionInput) (Option, bool) {
	if !in.ForcePartnered {
		return Option{}, false
	}
	return cheapest(in.Candidates, func(o Option) bool { return o.Partnered })
}

func pickHint(in SelectionInput) (Option, bool) {
	if in.Hints.empty() {
		return Option{}, false
	}
	return cheapest(in.Candidates, in.Hints.match)
}

func pickSole(in SelectionInput) (Option, bool) {
	if len(in.Candidates) != 1 {
		return Option{}, false
	}
	return in.Candidates[0], true
}

func pickCheapestAuto(in SelectionInput) (Option, bool) {
	if !in.AutoSelect {
		return Option{}, false
	}
	return cheapest(in.Candidates, nil)
}

// Select runs the strategies and reports which one picked. A target id
// that neither its exact match nor its signature resolves stops the chain,
// so nothing the caller did not choose gets booked.
func Select(in SelectionInput) (Option, string, bool) {
	for _, s := range Strategies {
		if in.TargetID != "" && s.Name != "exact_id" && s.Name != "signature" {
			return Option{}, "", false
		}
		if o, ok := s.Pick(in); ok {
			return o, s.Name, true
		}
	}
	return Option{}, "", false
}

// resolveConcrete maps a previous selection onto a fresh listing.
func resolveConcrete(fresh []Option, sel Selection) (Option, string, bool) {
	last := sel.option()
	return Select(SelectionInput{Candidates: fresh, TargetID: sel.TransportationOptionID, LastKnown: &last})
}

func chargeOf(o Option) float64 {
	if o.Charge == nil {
		return math.Inf(1)
	}
	return o.Charge.Amount
}

func cheapest(opts []Option, keep func(Option) bool) (Option, bool) {
	var pool []Option
	for _, o := range opts {
		if keep == nil || keep(o) {
			pool = append(pool, o)
		}
	}
	if len(pool) == 0 {
		return Option{}, false
	}
	sort.SliceStable(pool, func(i, j int) bool { return chargeOf(pool[i]) < chargeOf(pool[j]) })
	return pool[0], true
}

// dedupe keeps the first occurrence of each option key.
func dedupe(opts []Option) []Option {
	seen := make(map[string]bool, len(opts))
	out := opts[:0:0]
	for _, o := range opts {
		k := o.dedupeKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}
	return out
}

// modeMatches compares by prefix, so FREIGHT_FTL covers both its pallet and
// non-pallet variants. An empty want matches everything.
func modeMatches(mode, want string) bool {
	return want == "" || strings.HasPrefix(mode, want)
}

func filterMode(opts []Option, mode string) []Option {
	if mode == "" {
		return opts
	}
	var out []Option
	for _, o := range opts {
		if modeMatches(o.Mode, mode) {
			out = append(out, o)
		}
	}
	return out
}

func availableOnly(opts []Option) []Option {
	var out []Option
	for _, o := range opts {
		if o.Available() {
			out = append(out, o)
		}
	}
	return out
}

func withoutPartnered(opts []Option) []Option {
	var out []Option
	for _, o := range opts {
		if !o.Partnered {
			out = append(out, o)
		}
	}
	return out
}
