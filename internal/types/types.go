// Package types holds the value types shared across the pipeline, the
// store, and the broadcast hub. Raw HTTP payloads are parsed into these
// once at the boundary; nothing downstream touches a bare map.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenKey is the content-addressed identity of a tradeable pair.
type TokenKey struct {
	Chain        string
	TokenAddress string
	PairAddress  string
	Symbol       string
}

// Window names a momentum/volume/txn observation bucket.
type Window string

const (
	Window5m  Window = "5m"
	Window1h  Window = "1h"
	Window6h  Window = "6h"
	Window24h Window = "24h"
)

// TxnBucket is a buy/sell count pair for one window.
type TxnBucket struct {
	Buys  int
	Sells int
}

// NormalizedRow is a flattened snapshot of a pair from the aggregator.
// Optional fields are pointers so "absent" is explicit and distinct from 0.
type NormalizedRow struct {
	Chain          string
	TokenAddress   string
	PairAddress    string
	Symbol         string
	PriceUSD       float64
	PriceNative    float64
	VolumeUSD      map[Window]float64
	LiquidityUSD   float64
	PriceChangePct map[Window]float64
	Txns           map[Window]TxnBucket
	PairCreatedAt  int64 // epoch ms
	FDV            *float64
	MarketCap      *float64
}

// Candidate is a NormalizedRow enriched by the pipeline. Created by the
// selection stage, mutated only inside the pipeline, discarded at cycle end.
type Candidate struct {
	NormalizedRow
	TokenAgeHours     float64
	QualityScore      float64
	StatisticsScore   float64
	EntryScore        float64
	ScoreFinal        float64
	AIQualityDelta    *float64
	AIBuyProbability  *float64
}

// Phase is a Position's lifecycle state.
type Phase string

const (
	PhaseOpen   Phase = "OPEN"
	PhasePartial Phase = "PARTIAL"
	PhaseClosed Phase = "CLOSED"
	PhaseStaled Phase = "STALED"
)

// Position is a per-address open or historical holding.
type Position struct {
	ID           string
	Symbol       string
	Chain        string
	TokenAddress string
	PairAddress  string
	Qty          decimal.Decimal
	Entry        decimal.Decimal
	TP1          decimal.Decimal
	TP2          decimal.Decimal
	Stop         decimal.Decimal
	Phase        Phase
	OpenedAt     time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time

	// EntryTradeID carries the opening BUY trade's ID forward so a later
	// close can look up the Analytics row that trade produced.
	EntryTradeID string
}

// Key returns the position's token identity for PnL grouping.
func (p Position) Key() TokenKey {
	return TokenKey{Chain: p.Chain, TokenAddress: p.TokenAddress, PairAddress: p.PairAddress, Symbol: p.Symbol}
}

// Side is a trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeStatus distinguishes simulated from broadcast trades.
type TradeStatus string

const (
	StatusPaper TradeStatus = "PAPER"
	StatusLive  TradeStatus = "LIVE"
)

// Trade is an immutable journal entry.
type Trade struct {
	ID           string
	Side         Side
	Symbol       string
	Chain        string
	TokenAddress string
	PairAddress  string
	Price        decimal.Decimal
	Qty          decimal.Decimal
	Fee          decimal.Decimal
	PnL          *decimal.Decimal
	Status       TradeStatus
	TxHash       string
	CreatedAt    time.Time
}

// PortfolioSnapshot is an atomic equity record.
type PortfolioSnapshot struct {
	ID        string
	Equity    decimal.Decimal
	Cash      decimal.Decimal
	Holdings  decimal.Decimal
	CreatedAt time.Time
}

// Decision is the outcome recorded against an Analytics row.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSkip Decision = "SKIP"
)

// Route is the narrow shape the trader needs from the meta-aggregator
// client to dispatch a LIVE buy: which signer variant to use and the
// payload that variant sends. The meta-aggregator client itself is an
// out-of-scope collaborator; this is the contract the core consumes.
type Route struct {
	FromChain       string
	ToChain         string
	SerializedTx    []byte // present for SPL-style routes
	ToAddress       string // EVM router/contract target
	CallData        []byte
	ValueWei        *string
}

// Analytics is a per-evaluation audit row. One per candidate per cycle.
type Analytics struct {
	ID             string
	Address        string
	Symbol         string
	QualityScore   float64
	StatisticsScore float64
	EntryScore     float64
	AIBuyProbability *float64
	Decision       Decision
	Reason         string // pipe-joined machine codes on SKIP
	SizedNotional  decimal.Decimal
	CashBefore     decimal.Decimal
	CashAfter      decimal.Decimal
	RawPayload     []byte
	EvaluatedAt    time.Time

	// Outcome, attached at most once when the originating trade closes.
	TradeID        *string
	HasOutcome     bool
	ClosedAt       *time.Time
	HoldingMinutes *float64
	PnLPct         *float64
	PnLUSD         *float64
	WasProfit      *bool
	ExitReason     *string
}
