package store

import (
	"context"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trendrunner/tokentrader/internal/types"
)

// Store wraps the transactional store. Writes go through short-lived GORM
// sessions (acquire/commit/release with guaranteed release on every
// path); GORM's *gorm.DB already gives that per-call, so no session
// object is threaded explicitly here.
type Store struct {
	db *gorm.DB
}

// Open picks the driver from the DSN scheme: "mysql://" selects the MySQL
// driver (grounded in ChoSanghyuk-blackholedex's gorm.io/driver/mysql
// usage); anything else is treated as a sqlite file path, opened through
// gorm.io/driver/sqlite, which builds on the cgo mattn/go-sqlite3 driver.
func Open(dsn string) (*Store, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "mysql://") {
		dialector = mysql.Open(strings.TrimPrefix(dsn, "mysql://"))
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Ping backs the health endpoint's degraded/ok check.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) UpsertPosition(ctx context.Context, p types.Position) error {
	return s.db.WithContext(ctx).Save(toPositionRow(p)).Error
}

func (s *Store) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	var rows []PositionRow
	if err := s.db.WithContext(ctx).Where("phase IN ?", []string{string(types.PhaseOpen), string(types.PhasePartial)}).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Position, len(rows))
	for i, r := range rows {
		out[i] = fromPositionRow(r)
	}
	return out, nil
}

func (s *Store) FindPositionByAddress(ctx context.Context, address string) (*types.Position, error) {
	var row PositionRow
	err := s.db.WithContext(ctx).Where("token_address = ? AND phase IN ?", address, []string{string(types.PhaseOpen), string(types.PhasePartial)}).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	p := fromPositionRow(row)
	return &p, nil
}

func (s *Store) InsertTrade(ctx context.Context, t types.Trade) error {
	return s.db.WithContext(ctx).Create(toTradeRow(t)).Error
}

func (s *Store) ListTrades(ctx context.Context) ([]types.Trade, error) {
	var rows []TradeRow
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Trade, len(rows))
	for i, r := range rows {
		out[i] = fromTradeRow(r)
	}
	return out, nil
}

func (s *Store) InsertSnapshot(ctx context.Context, snap types.PortfolioSnapshot) error {
	return s.db.WithContext(ctx).Create(toSnapshotRow(snap)).Error
}

func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]types.PortfolioSnapshot, error) {
	var rows []PortfolioSnapshotRow
	q := s.db.WithContext(ctx).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.PortfolioSnapshot, len(rows))
	for i, r := range rows {
		out[i] = fromSnapshotRow(r)
	}
	return out, nil
}

func (s *Store) InsertAnalytics(ctx context.Context, a types.Analytics) error {
	return s.db.WithContext(ctx).Create(toAnalyticsRow(a)).Error
}

func (s *Store) ListAnalytics(ctx context.Context, limit int) ([]types.Analytics, error) {
	var rows []AnalyticsRow
	q := s.db.WithContext(ctx).Order("evaluated_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Analytics, len(rows))
	for i, r := range rows {
		out[i] = fromAnalyticsRow(r)
	}
	return out, nil
}

// FindAnalyticsByTradeID looks up the audit row an exit should attach its
// outcome to. trade_id is carried forward at buy time, so the lookup is
// a direct, unambiguous match rather than a best-effort symbol/time join.
func (s *Store) FindAnalyticsByTradeID(ctx context.Context, tradeID string) (*types.Analytics, error) {
	var row AnalyticsRow
	err := s.db.WithContext(ctx).Where("trade_id = ? AND has_outcome = ?", tradeID, false).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	a := fromAnalyticsRow(row)
	return &a, nil
}

func (s *Store) AttachAnalyticsOutcome(ctx context.Context, id string, outcome types.Analytics) error {
	row := AnalyticsRow{
		HasOutcome:     true,
		ClosedAt:       outcome.ClosedAt,
		HoldingMinutes: outcome.HoldingMinutes,
		PnLPct:         outcome.PnLPct,
		PnLUSD:         outcome.PnLUSD,
		WasProfit:      outcome.WasProfit,
		ExitReason:     outcome.ExitReason,
	}
	return s.db.WithContext(ctx).Model(&AnalyticsRow{}).Where("id = ?", id).
		Select("HasOutcome", "ClosedAt", "HoldingMinutes", "PnLPct", "PnLUSD", "WasProfit", "ExitReason").
		Updates(row).Error
}
