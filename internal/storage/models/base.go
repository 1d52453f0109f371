// internal/storage/models/base.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseModel replaces gorm.Model for finer control over columns
type BaseModel struct {
	ID        uint       `gorm:"primarykey"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	DeletedAt *time.Time `gorm:"index"`
}

// Amount stores a u64 quantity in a numeric column without float rounding.
func Amount(v uint64) decimal.Decimal {
	return decimal.NewFromUint64(v)
}

// ReserveSnapshot is the reserve state after an event, embedded in several records.
type ReserveSnapshot struct {
	VirtualSolReserves   decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	VirtualTokenReserves decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	RealSolReserves      decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	RealTokenReserves    decimal.Decimal `gorm:"type:numeric(20,0);not null"`
}
