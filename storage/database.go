package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/xylbot/core"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Signal, order and session persistence
// ═══════════════════════════════════════════════════════════════════════════════
//
// DSN selects the backend:
//   postgres://... or postgresql://...  → PostgreSQL
//   anything else                       → SQLite file path
//
// Database implements core.Recorder and execution.PositionStore.
//
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db *gorm.DB
}

// Models

type SignalRecord struct {
	ID          string `gorm:"primaryKey"`
	Symbol      string `gorm:"index"`
	Time        time.Time
	BarIndex    int
	Direction   string
	Setups      string
	Score       int
	Price       decimal.Decimal `gorm:"type:decimal(20,6)"`
	Marker      decimal.Decimal `gorm:"type:decimal(20,6)"`
	Bid         decimal.Decimal `gorm:"type:decimal(20,6)"`
	Ask         decimal.Decimal `gorm:"type:decimal(20,6)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,6)"`
	StopPrice   decimal.Decimal `gorm:"type:decimal(20,6)"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(20,6)"`
	OrderID     string
	Rejected    string
	CreatedAt   time.Time
}

type OrderEventRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Symbol    string `gorm:"index"`
	Time      time.Time
	BarIndex  int
	Kind      string `gorm:"index"` // ENTRY, TRAIL_STOP, EXTEND_TARGET, FLATTEN, EXIT
	Direction string
	OrderID   string
	Price     decimal.Decimal `gorm:"type:decimal(20,6)"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,6)"`
	PnL       decimal.Decimal `gorm:"column:pnl;type:decimal(20,6)"`
	Reason    string
	CreatedAt time.Time
}

type DailyStatRecord struct {
	Symbol    string `gorm:"primaryKey"`
	Day       string `gorm:"primaryKey"` // 2006-01-02
	Bars      int
	Signals   int
	Entries   int
	Exits     int
	PnL       decimal.Decimal `gorm:"column:pnl;type:decimal(20,6)"`
	UpdatedAt time.Time
}

type OpenPositionRecord struct {
	Symbol       string          `gorm:"primaryKey"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,6)"`
	AveragePrice decimal.Decimal `gorm:"type:decimal(20,6)"`
	RealizedPnL  decimal.Decimal `gorm:"column:realized_pnl;type:decimal(20,6)"`
	EntryBar     int
	Orders       string // JSON []types.Order
	UpdatedAt    time.Time
}

// New opens the database and migrates every model
func New(dsn string) (*Database, error) {
	var db *gorm.DB
	var err error

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info().Msg("💾 Database connected (PostgreSQL)")
	} else {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("path", dsn).Msg("💾 Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&SignalRecord{}, &OrderEventRecord{}, &DailyStatRecord{}, &OpenPositionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Database{db: db}, nil
}

// Close releases the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECORDER
// ═══════════════════════════════════════════════════════════════════════════════

// RecordSignal stores a signal and its order request, if any
func (d *Database) RecordSignal(ev core.SignalEvent) error {
	s := ev.Signal
	rec := &SignalRecord{
		ID:        s.ID,
		Symbol:    s.Symbol,
		Time:      s.Time,
		BarIndex:  s.BarIndex,
		Direction: string(s.Direction),
		Setups:    setupString(s.Setups),
		Score:     s.Score,
		Price:     decimal.NewFromFloat(s.Price),
		Marker:    decimal.NewFromFloat(s.Marker),
		Bid:       decimal.NewFromFloat(s.Bid),
		Ask:       decimal.NewFromFloat(s.Ask),
		OrderID:   ev.OrderID,
		Rejected:  ev.Rejected,
	}
	if req := ev.Request; req != nil {
		rec.Quantity = req.Quantity
		rec.StopPrice = req.StopPrice()
		rec.TargetPrice = req.TargetPrice()
	}
	return d.db.Create(rec).Error
}

// RecordOrderEvent appends one order lifecycle step
func (d *Database) RecordOrderEvent(ev core.OrderEvent) error {
	return d.db.Create(&OrderEventRecord{
		Symbol:    ev.Symbol,
		Time:      ev.Time,
		BarIndex:  ev.BarIndex,
		Kind:      ev.Kind,
		Direction: string(ev.Direction),
		OrderID:   ev.OrderID,
		Price:     ev.Price,
		Quantity:  ev.Quantity,
		PnL:       ev.PnL,
		Reason:    ev.Reason,
	}).Error
}

// RecordDailyStat upserts the summary of one trading day
func (d *Database) RecordDailyStat(st core.DailyStat) error {
	return d.db.Save(&DailyStatRecord{
		Symbol:  st.Symbol,
		Day:     st.Day.Format("2006-01-02"),
		Bars:    st.Bars,
		Signals: st.Signals,
		Entries: st.Entries,
		Exits:   st.Exits,
		PnL:     st.RealizedPnL,
	}).Error
}

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION STORE
// ═══════════════════════════════════════════════════════════════════════════════

// SaveOpenPosition upserts the live position with its working orders
func (d *Database) SaveOpenPosition(pos types.PositionSnapshot, orders []types.Order) error {
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	return d.db.Save(&OpenPositionRecord{
		Symbol:       pos.Symbol,
		Quantity:     pos.Quantity,
		AveragePrice: pos.AveragePrice,
		RealizedPnL:  pos.RealizedPnL,
		EntryBar:     pos.EntryBar,
		Orders:       string(raw),
	}).Error
}

// DeleteOpenPosition removes the persisted position of a symbol
func (d *Database) DeleteOpenPosition(symbol string) error {
	return d.db.Where("symbol = ?", symbol).Delete(&OpenPositionRecord{}).Error
}

// LoadOpenPosition returns the persisted position, ok=false when none
func (d *Database) LoadOpenPosition(symbol string) (types.PositionSnapshot, []types.Order, bool, error) {
	var rec OpenPositionRecord
	err := d.db.First(&rec, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.PositionSnapshot{}, nil, false, nil
	}
	if err != nil {
		return types.PositionSnapshot{}, nil, false, err
	}

	var orders []types.Order
	if rec.Orders != "" {
		if err := json.Unmarshal([]byte(rec.Orders), &orders); err != nil {
			return types.PositionSnapshot{}, nil, false, fmt.Errorf("decode orders: %w", err)
		}
	}
	pos := types.PositionSnapshot{
		Symbol:       rec.Symbol,
		Quantity:     rec.Quantity,
		AveragePrice: rec.AveragePrice,
		RealizedPnL:  rec.RealizedPnL,
		EntryBar:     rec.EntryBar,
	}
	return pos, orders, true, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ═══════════════════════════════════════════════════════════════════════════════

func (d *Database) GetRecentSignals(limit int) ([]SignalRecord, error) {
	var out []SignalRecord
	err := d.db.Order("time DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (d *Database) GetRecentOrderEvents(limit int) ([]OrderEventRecord, error) {
	var out []OrderEventRecord
	err := d.db.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (d *Database) GetDailyStats(symbol string) ([]DailyStatRecord, error) {
	var out []DailyStatRecord
	err := d.db.Where("symbol = ?", symbol).Order("day ASC").Find(&out).Error
	return out, err
}

// GetTotalPnL sums the realized PnL of every booked exit
func (d *Database) GetTotalPnL() (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := d.db.Model(&OrderEventRecord{}).
		Where("kind = ?", "EXIT").
		Select("COALESCE(SUM(pnl), 0) as total").
		Scan(&result).Error
	return result.Total, err
}

// GetStats returns aggregate counters
func (d *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var signals int64
	if err := d.db.Model(&SignalRecord{}).Count(&signals).Error; err != nil {
		return nil, err
	}
	stats["total_signals"] = signals

	var entries int64
	d.db.Model(&OrderEventRecord{}).Where("kind = ?", "ENTRY").Count(&entries)
	stats["total_entries"] = entries

	var rejected int64
	d.db.Model(&SignalRecord{}).Where("rejected <> ?", "").Count(&rejected)
	stats["rejected_signals"] = rejected

	pnl, err := d.GetTotalPnL()
	if err != nil {
		return nil, err
	}
	stats["total_pnl"] = pnl

	return stats, nil
}

func setupString(ids []types.SetupID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
