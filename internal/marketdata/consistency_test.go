package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func pairAt(price float64) Pair {
	return Pair{Chain: "solana", PairAddress: "p1", PriceUSD: price, LiquidityUSD: 10000}
}

func TestGuard_FirstObservationAlwaysOK(t *testing.T) {
	g := NewGuard(10, 3.0, 3, time.Hour)
	now := time.Now()

	verdict := g.Observe("solana", "p1", pairAt(1.0), now)

	assert.Equal(t, VerdictOK, verdict)
}

func TestGuard_FlagsSuddenPriceJump(t *testing.T) {
	g := NewGuard(10, 3.0, 3, time.Hour)
	now := time.Now()
	g.Observe("solana", "p1", pairAt(1.0), now)

	verdict := g.Observe("solana", "p1", pairAt(10.0), now.Add(time.Minute))

	assert.Equal(t, VerdictRequiresManualIntervention, verdict)
}

func TestGuard_FlagsSuddenPriceCrash(t *testing.T) {
	g := NewGuard(10, 3.0, 3, time.Hour)
	now := time.Now()
	g.Observe("solana", "p1", pairAt(10.0), now)

	verdict := g.Observe("solana", "p1", pairAt(1.0), now.Add(time.Minute))

	assert.Equal(t, VerdictRequiresManualIntervention, verdict)
}

func TestGuard_StalenessHorizonResetsBaseline(t *testing.T) {
	g := NewGuard(10, 3.0, 3, time.Minute)
	now := time.Now()
	g.Observe("solana", "p1", pairAt(1.0), now)

	// Past the staleness horizon: even a big jump is treated as a fresh baseline, not a tripwire.
	verdict := g.Observe("solana", "p1", pairAt(100.0), now.Add(2*time.Hour))

	assert.Equal(t, VerdictOK, verdict)
}

func TestGuard_FlagsAlternatingFingerprints(t *testing.T) {
	g := NewGuard(10, 100.0, 2, time.Hour)
	now := time.Now()

	a := pairAt(1.0)
	b := pairAt(1.00000001) // same price bucket as a, but LiquidityUSD differs below to force a distinct fingerprint
	b.LiquidityUSD = 20000

	var verdict Verdict
	for i := 0; i < 4; i++ {
		row := a
		if i%2 == 1 {
			row = b
		}
		verdict = g.Observe("solana", "p1", row, now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, VerdictRequiresManualIntervention, verdict)
}

func TestGuard_IndependentStatePerPair(t *testing.T) {
	g := NewGuard(10, 3.0, 3, time.Hour)
	now := time.Now()
	g.Observe("solana", "p1", pairAt(1.0), now)

	verdict := g.Observe("solana", "p2", pairAt(50.0), now.Add(time.Minute))

	assert.Equal(t, VerdictOK, verdict)
}
