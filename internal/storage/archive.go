// Package storage archives finalized orders to a relational database. The
// in-memory ledger stays authoritative for the session; the archive is a
// best-effort record that survives the process.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver

	"concierge/internal/ledger"
)

// ArchivedOrder is the database row for a finalized order. Items are stored
// as a JSON-encoded name -> quantity mapping.
type ArchivedOrder struct {
	ID         string    `gorm:"primary_key"`
	SessionID  string    `gorm:"index"`
	Restaurant string
	ItemsJSON  string    `gorm:"column:items"`
	GrandTotal float64
	CreatedAt  time.Time
}

// TableName sets the table name for gorm.
func (ArchivedOrder) TableName() string {
	return "orders"
}

// Archive wraps the database connection.
type Archive struct {
	db *gorm.DB
}

// Open connects to the archive database and runs migrations. Supported
// dialects are "sqlite3" and "postgres".
func Open(dialect, dsn string) (*Archive, error) {
	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s archive: %w", dialect, err)
	}

	if err := db.AutoMigrate(&ArchivedOrder{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save persists one finalized order record.
func (a *Archive) Save(sessionID string, record ledger.OrderRecord) error {
	items, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	row := ArchivedOrder{
		ID:         record.ID,
		SessionID:  sessionID,
		Restaurant: record.Restaurant,
		ItemsJSON:  string(items),
		GrandTotal: record.GrandTotal,
		CreatedAt:  record.CreatedAt,
	}
	if err := a.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to archive order %s: %w", record.ID, err)
	}
	return nil
}

// BySession returns all archived orders for a session, most recent first.
func (a *Archive) BySession(sessionID string) ([]ledger.OrderRecord, error) {
	var rows []ArchivedOrder
	if err := a.db.Where("session_id = ?", sessionID).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load archived orders: %w", err)
	}

	records := make([]ledger.OrderRecord, 0, len(rows))
	for _, row := range rows {
		items := make(map[string]int)
		if err := json.Unmarshal([]byte(row.ItemsJSON), &items); err != nil {
			return nil, fmt.Errorf("failed to decode order %s items: %w", row.ID, err)
		}
		records = append(records, ledger.OrderRecord{
			ID:         row.ID,
			Restaurant: row.Restaurant,
			Items:      items,
			GrandTotal: row.GrandTotal,
			CreatedAt:  row.CreatedAt,
		})
	}
	return records, nil
}
