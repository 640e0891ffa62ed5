// Package store is the transactional store: GORM models and DAOs over the
// positions/trades/portfolio_snapshots/analytics tables. It is named
// only by the narrow contract the core consumes; this package is the
// concrete reference implementation used by the orchestrator wiring; no
// test opens it.
package store

import (
	"time"
)

// PositionRow is the GORM-mapped persistence shape for types.Position.
type PositionRow struct {
	ID           string `gorm:"primaryKey"`
	Symbol       string
	Chain        string
	TokenAddress string `gorm:"index:idx_positions_address"`
	PairAddress  string
	Qty          string // decimal encoded as string to avoid float drift in the DB
	Entry        string
	TP1          string
	TP2          string
	Stop         string
	Phase        string
	OpenedAt     time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	EntryTradeID string
}

func (PositionRow) TableName() string { return "positions" }

// TradeRow is the GORM-mapped persistence shape for types.Trade.
type TradeRow struct {
	ID           string `gorm:"primaryKey"`
	Side         string
	Symbol       string
	Chain        string
	TokenAddress string `gorm:"index:idx_trades_created_token"`
	PairAddress  string
	Price        string
	Qty          string
	Fee          string
	PnL          *string
	Status       string
	TxHash       string
	CreatedAt    time.Time `gorm:"index:idx_trades_created_token"`
}

func (TradeRow) TableName() string { return "trades" }

// PortfolioSnapshotRow is the GORM-mapped persistence shape for
// types.PortfolioSnapshot.
type PortfolioSnapshotRow struct {
	ID        string `gorm:"primaryKey"`
	Equity    string
	Cash      string
	Holdings  string
	CreatedAt time.Time
}

func (PortfolioSnapshotRow) TableName() string { return "portfolio_snapshots" }

// AnalyticsRow is the GORM-mapped persistence shape for types.Analytics.
type AnalyticsRow struct {
	ID               string `gorm:"primaryKey"`
	Address          string
	Symbol           string
	QualityScore     float64
	StatisticsScore  float64
	EntryScore       float64
	AIBuyProbability *float64
	Decision         string
	Reason           string
	SizedNotional    string
	CashBefore       string
	CashAfter        string
	RawPayload       []byte
	EvaluatedAt      time.Time

	TradeID        *string
	HasOutcome     bool
	ClosedAt       *time.Time
	HoldingMinutes *float64
	PnLPct         *float64
	PnLUSD         *float64
	WasProfit      *bool
	ExitReason     *string
}

func (AnalyticsRow) TableName() string { return "analytics" }

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{&PositionRow{}, &TradeRow{}, &PortfolioSnapshotRow{}, &AnalyticsRow{}}
}
