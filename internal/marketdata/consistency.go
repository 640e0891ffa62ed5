package marketdata

import (
	"math"
	"time"
)

// Verdict is the consistency guard's per-observation verdict.
type Verdict string

const (
	VerdictOK                        Verdict = "OK"
	VerdictRequiresManualIntervention Verdict = "REQUIRES_MANUAL_INTERVENTION"
)

// fingerprint is a coarse bucketed identifier for one observation, cheap
// enough to compare for the alternation tripwire.
type fingerprint struct {
	priceBucket int
	liqBucket   int
	fdvBucket   int
	mcapBucket  int
	buy5m       int
	sell5m      int
}

func bucket(v float64) int {
	if v <= 0 {
		return 0
	}
	// logarithmic-ish bucketing: one bucket per doubling.
	return int(math.Log2(v))
}

func fingerprintOf(row Pair) fingerprint {
	fp := fingerprint{
		priceBucket: bucket(row.PriceUSD),
		liqBucket:   bucket(row.LiquidityUSD),
	}
	if row.FDV != nil {
		fp.fdvBucket = bucket(*row.FDV)
	}
	if row.MarketCap != nil {
		fp.mcapBucket = bucket(*row.MarketCap)
	}
	if b, ok := row.Txns["5m"]; ok {
		fp.buy5m = b.Buys
		fp.sell5m = b.Sells
	}
	return fp
}

type observation struct {
	fp       fingerprint
	price    float64
	observedAt time.Time
}

// pairState is the bounded per-pair history the guard maintains.
type pairState struct {
	history []observation
}

// Guard detects anomalous feed behavior: sudden price jumps and alternating
// flip-flop patterns that suggest the aggregator is serving stale or
// corrupted snapshots for a pair.
type Guard struct {
	maxWindow int
	jumpFactor float64
	altCycles int
	stalenessHorizon time.Duration

	states map[string]*pairState // keyed by chain|pair
}

func NewGuard(windowSize int, jumpFactor float64, altCycles int, stalenessHorizon time.Duration) *Guard {
	return &Guard{
		maxWindow:        windowSize,
		jumpFactor:       jumpFactor,
		altCycles:        altCycles,
		stalenessHorizon: stalenessHorizon,
		states:           make(map[string]*pairState),
	}
}

func key(chain, pair string) string { return chain + "|" + pair }

// Observe records one snapshot for (chain, pair) and returns the verdict
// for this call. A gap longer than the staleness horizon resets the
// jump baseline and always passes, since a large delta across a long gap
// is expected rather than anomalous. Otherwise the immediate price jump
// is checked, then the alternating-fingerprint pattern.
func (g *Guard) Observe(chain, pair string, row Pair, now time.Time) Verdict {
	k := key(chain, pair)
	st, ok := g.states[k]
	if !ok {
		st = &pairState{}
		g.states[k] = st
	}

	fp := fingerprintOf(row)

	if len(st.history) > 0 {
		prev := st.history[len(st.history)-1]

		if now.Sub(prev.observedAt) > g.stalenessHorizon {
			st.history = append(st.history, observation{fp: fp, price: row.PriceUSD, observedAt: now})
			g.trim(st)
			return VerdictOK
		}

		if prev.price > 0 && row.PriceUSD > 0 {
			ratio := row.PriceUSD / prev.price
			if ratio > g.jumpFactor || ratio < 1/g.jumpFactor {
				st.history = append(st.history, observation{fp: fp, price: row.PriceUSD, observedAt: now})
				g.trim(st)
				return VerdictRequiresManualIntervention
			}
		}
	}

	st.history = append(st.history, observation{fp: fp, price: row.PriceUSD, observedAt: now})
	g.trim(st)

	if g.isAlternating(st) {
		return VerdictRequiresManualIntervention
	}
	return VerdictOK
}

func (g *Guard) trim(st *pairState) {
	if len(st.history) > g.maxWindow {
		st.history = st.history[len(st.history)-g.maxWindow:]
	}
}

// isAlternating checks whether the tail of the deque forms an ABAB... run
// of at least 2*altCycles observations with exactly two distinct fingerprints.
func (g *Guard) isAlternating(st *pairState) bool {
	need := 2 * g.altCycles
	if len(st.history) < need {
		return false
	}
	tail := st.history[len(st.history)-need:]

	distinct := map[fingerprint]bool{}
	for _, o := range tail {
		distinct[o.fp] = true
	}
	if len(distinct) != 2 {
		return false
	}

	a, b := tail[0].fp, tail[1].fp
	if a == b {
		return false
	}
	for i, o := range tail {
		want := a
		if i%2 == 1 {
			want = b
		}
		if o.fp != want {
			return false
		}
	}
	return true
}
