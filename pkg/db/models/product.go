package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultRestockThreshold applies when a product has no threshold of its own.
// Stored thresholds are always positive.
const DefaultRestockThreshold = 5

// Product carries the stock counters the inventory adjuster mutates.
type Product struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name             string          `gorm:"column:name;not null" json:"name"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock            int             `gorm:"column:stock;not null;default:0;check:products_stock_non_negative,stock >= 0" json:"stock"`
	SoldQuantity     int             `gorm:"column:sold_quantity;not null;default:0;check:products_sold_quantity_non_negative,sold_quantity >= 0" json:"soldQuantity"`
	RestockThreshold int             `gorm:"column:restock_threshold;not null;default:5;check:products_restock_threshold_positive,restock_threshold > 0" json:"restockThreshold"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
