package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ocobot/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeRecord is one bot run. A run covers at most one entry and its
// protective sell legs.
type TradeRecord struct {
	ID        uint `gorm:"primaryKey"`
	Pair      string
	Amount    string
	Outcome   string
	StartedAt time.Time
	EndedAt   *time.Time
}

// OrderRecord is one order placed during a run.
type OrderRecord struct {
	ID        uint `gorm:"primaryKey"`
	TradeID   uint `gorm:"index"`
	OrderID   int64
	Role      string
	Side      string
	OrderType string
	Quantity  string
	Price     string
	StopPrice string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Journal persists the trade lifecycle to SQLite for post-mortem review.
type Journal struct {
	db      *gorm.DB
	tradeID uint
}

// NewJournal opens (or creates) the journal database and starts a new
// trade record for this run.
func NewJournal(dbPath, pair, amount string) (*Journal, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRecord{}, &OrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	trade := TradeRecord{
		Pair:      pair,
		Amount:    amount,
		StartedAt: time.Now(),
	}
	if err := db.Create(&trade).Error; err != nil {
		return nil, fmt.Errorf("failed to create trade record: %w", err)
	}

	return &Journal{db: db, tradeID: trade.ID}, nil
}

// RecordOrder persists a freshly placed order.
func (j *Journal) RecordOrder(role domain.Role, orderID int64, req domain.OrderRequest, status string) error {
	rec := OrderRecord{
		TradeID:   j.tradeID,
		OrderID:   orderID,
		Role:      role.String(),
		Side:      req.Side,
		OrderType: req.Type,
		Quantity:  req.Quantity.String(),
		Status:    status,
	}
	if !req.Price.IsZero() {
		rec.Price = req.Price.String()
	}
	if !req.StopPrice.IsZero() {
		rec.StopPrice = req.StopPrice.String()
	}
	return j.db.Create(&rec).Error
}

// RecordOrderStatus updates the stored status of an order.
func (j *Journal) RecordOrderStatus(orderID int64, status string) error {
	return j.db.Model(&OrderRecord{}).
		Where("trade_id = ? AND order_id = ?", j.tradeID, orderID).
		Update("status", status).Error
}

// RecordOutcome closes out the trade record.
func (j *Journal) RecordOutcome(outcome string) error {
	now := time.Now()
	return j.db.Model(&TradeRecord{}).
		Where("id = ?", j.tradeID).
		Updates(map[string]interface{}{
			"outcome":  outcome,
			"ended_at": &now,
		}).Error
}

// Trades returns every recorded run, newest first.
func (j *Journal) Trades() ([]TradeRecord, error) {
	var trades []TradeRecord
	err := j.db.Order("started_at DESC").Find(&trades).Error
	return trades, err
}

// OrdersForTrade returns the orders of one run.
func (j *Journal) OrdersForTrade(tradeID uint) ([]OrderRecord, error) {
	var orders []OrderRecord
	err := j.db.Where("trade_id = ?", tradeID).Find(&orders).Error
	return orders, err
}
