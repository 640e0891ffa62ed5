package hub

import (
	"github.com/trendrunner/tokentrader/internal/pnl"
	"github.com/trendrunner/tokentrader/internal/types"
)

// The wire DTOs convert internal decimal.Decimal fields to float64 and
// durations to seconds before anything reaches json.Marshal. Enum types
// (Phase, Side, TradeStatus, Decision) are already plain strings, so
// json.Marshal emits their value with no extra step.

type PositionDTO struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Chain        string  `json:"chain"`
	TokenAddress string  `json:"tokenAddress"`
	PairAddress  string  `json:"pairAddress"`
	Qty          float64 `json:"qty"`
	Entry        float64 `json:"entry"`
	TP1          float64 `json:"tp1"`
	TP2          float64 `json:"tp2"`
	Stop         float64 `json:"stop"`
	Phase        string  `json:"phase"`
	OpenedAtMs   int64   `json:"openedAtMs"`
}

func toPositionDTO(p types.Position) PositionDTO {
	qty, _ := p.Qty.Float64()
	entry, _ := p.Entry.Float64()
	tp1, _ := p.TP1.Float64()
	tp2, _ := p.TP2.Float64()
	stop, _ := p.Stop.Float64()
	return PositionDTO{
		ID: p.ID, Symbol: p.Symbol, Chain: p.Chain, TokenAddress: p.TokenAddress, PairAddress: p.PairAddress,
		Qty: qty, Entry: entry, TP1: tp1, TP2: tp2, Stop: stop, Phase: string(p.Phase),
		OpenedAtMs: p.OpenedAt.UnixMilli(),
	}
}

// PositionsDTO converts a slice in one pass.
func PositionsDTO(positions []types.Position) []PositionDTO {
	out := make([]PositionDTO, len(positions))
	for i, p := range positions {
		out[i] = toPositionDTO(p)
	}
	return out
}

type TradeDTO struct {
	ID           string  `json:"id"`
	Side         string  `json:"side"`
	Symbol       string  `json:"symbol"`
	Chain        string  `json:"chain"`
	TokenAddress string  `json:"tokenAddress"`
	Price        float64 `json:"price"`
	Qty          float64 `json:"qty"`
	Status       string  `json:"status"`
	TxHash       string  `json:"txHash,omitempty"`
	CreatedAtMs  int64   `json:"createdAtMs"`
}

func toTradeDTO(t types.Trade) TradeDTO {
	price, _ := t.Price.Float64()
	qty, _ := t.Qty.Float64()
	return TradeDTO{
		ID: t.ID, Side: string(t.Side), Symbol: t.Symbol, Chain: t.Chain, TokenAddress: t.TokenAddress,
		Price: price, Qty: qty, Status: string(t.Status), TxHash: t.TxHash, CreatedAtMs: t.CreatedAt.UnixMilli(),
	}
}

func TradesDTO(trades []types.Trade) []TradeDTO {
	out := make([]TradeDTO, len(trades))
	for i, t := range trades {
		out[i] = toTradeDTO(t)
	}
	return out
}

// EquityPointDTO is one sample on the broadcast equity curve.
type EquityPointDTO struct {
	AtMs   int64   `json:"atMs"`
	Equity float64 `json:"equity"`
}

// EquityCurveDTO converts a pnl.EquityCurve result in one pass.
func EquityCurveDTO(points []pnl.Point) []EquityPointDTO {
	out := make([]EquityPointDTO, len(points))
	for i, p := range points {
		equity, _ := p.Equity.Float64()
		out[i] = EquityPointDTO{AtMs: p.At.UnixMilli(), Equity: equity}
	}
	return out
}

type PortfolioDTO struct {
	Equity        float64          `json:"equity"`
	Cash          float64          `json:"cash"`
	Holdings      float64          `json:"holdings"`
	RealizedPnL   float64          `json:"realizedPnl"`
	UnrealizedPnL float64          `json:"unrealizedPnl"`
	EquityCurve   []EquityPointDTO `json:"equityCurve"`
}
