package store

import (
	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/internal/types"
)

func decStr(d decimal.Decimal) string { return d.String() }

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toPositionRow(p types.Position) PositionRow {
	return PositionRow{
		ID: p.ID, Symbol: p.Symbol, Chain: p.Chain, TokenAddress: p.TokenAddress,
		PairAddress: p.PairAddress, Qty: decStr(p.Qty), Entry: decStr(p.Entry),
		TP1: decStr(p.TP1), TP2: decStr(p.TP2), Stop: decStr(p.Stop),
		Phase: string(p.Phase), OpenedAt: p.OpenedAt, UpdatedAt: p.UpdatedAt, ClosedAt: p.ClosedAt,
		EntryTradeID: p.EntryTradeID,
	}
}

func fromPositionRow(r PositionRow) types.Position {
	return types.Position{
		ID: r.ID, Symbol: r.Symbol, Chain: r.Chain, TokenAddress: r.TokenAddress,
		PairAddress: r.PairAddress, Qty: parseDec(r.Qty), Entry: parseDec(r.Entry),
		TP1: parseDec(r.TP1), TP2: parseDec(r.TP2), Stop: parseDec(r.Stop),
		Phase: types.Phase(r.Phase), OpenedAt: r.OpenedAt, UpdatedAt: r.UpdatedAt, ClosedAt: r.ClosedAt,
		EntryTradeID: r.EntryTradeID,
	}
}

func toTradeRow(t types.Trade) TradeRow {
	var pnl *string
	if t.PnL != nil {
		s := decStr(*t.PnL)
		pnl = &s
	}
	return TradeRow{
		ID: t.ID, Side: string(t.Side), Symbol: t.Symbol, Chain: t.Chain,
		TokenAddress: t.TokenAddress, PairAddress: t.PairAddress, Price: decStr(t.Price),
		Qty: decStr(t.Qty), Fee: decStr(t.Fee), PnL: pnl, Status: string(t.Status),
		TxHash: t.TxHash, CreatedAt: t.CreatedAt,
	}
}

func fromTradeRow(r TradeRow) types.Trade {
	var pnl *decimal.Decimal
	if r.PnL != nil {
		d := parseDec(*r.PnL)
		pnl = &d
	}
	return types.Trade{
		ID: r.ID, Side: types.Side(r.Side), Symbol: r.Symbol, Chain: r.Chain,
		TokenAddress: r.TokenAddress, PairAddress: r.PairAddress, Price: parseDec(r.Price),
		Qty: parseDec(r.Qty), Fee: parseDec(r.Fee), PnL: pnl, Status: types.TradeStatus(r.Status),
		TxHash: r.TxHash, CreatedAt: r.CreatedAt,
	}
}

func toSnapshotRow(s types.PortfolioSnapshot) PortfolioSnapshotRow {
	return PortfolioSnapshotRow{
		ID: s.ID, Equity: decStr(s.Equity), Cash: decStr(s.Cash),
		Holdings: decStr(s.Holdings), CreatedAt: s.CreatedAt,
	}
}

func fromSnapshotRow(r PortfolioSnapshotRow) types.PortfolioSnapshot {
	return types.PortfolioSnapshot{
		ID: r.ID, Equity: parseDec(r.Equity), Cash: parseDec(r.Cash),
		Holdings: parseDec(r.Holdings), CreatedAt: r.CreatedAt,
	}
}

func toAnalyticsRow(a types.Analytics) AnalyticsRow {
	return AnalyticsRow{
		ID: a.ID, Address: a.Address, Symbol: a.Symbol, QualityScore: a.QualityScore,
		StatisticsScore: a.StatisticsScore, EntryScore: a.EntryScore, AIBuyProbability: a.AIBuyProbability,
		Decision: string(a.Decision), Reason: a.Reason, SizedNotional: decStr(a.SizedNotional),
		CashBefore: decStr(a.CashBefore), CashAfter: decStr(a.CashAfter), RawPayload: a.RawPayload,
		EvaluatedAt: a.EvaluatedAt, TradeID: a.TradeID, HasOutcome: a.HasOutcome, ClosedAt: a.ClosedAt,
		HoldingMinutes: a.HoldingMinutes, PnLPct: a.PnLPct, PnLUSD: a.PnLUSD, WasProfit: a.WasProfit,
		ExitReason: a.ExitReason,
	}
}

func fromAnalyticsRow(r AnalyticsRow) types.Analytics {
	return types.Analytics{
		ID: r.ID, Address: r.Address, Symbol: r.Symbol, QualityScore: r.QualityScore,
		StatisticsScore: r.StatisticsScore, EntryScore: r.EntryScore, AIBuyProbability: r.AIBuyProbability,
		Decision: types.Decision(r.Decision), Reason: r.Reason, SizedNotional: parseDec(r.SizedNotional),
		CashBefore: parseDec(r.CashBefore), CashAfter: parseDec(r.CashAfter), RawPayload: r.RawPayload,
		EvaluatedAt: r.EvaluatedAt, TradeID: r.TradeID, HasOutcome: r.HasOutcome, ClosedAt: r.ClosedAt,
		HoldingMinutes: r.HoldingMinutes, PnLPct: r.PnLPct, PnLUSD: r.PnLUSD, WasProfit: r.WasProfit,
		ExitReason: r.ExitReason,
	}
}
