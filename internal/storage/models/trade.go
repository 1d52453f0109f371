// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	BaseModel
	EventID     string          `gorm:"unique;not null;type:varchar(36)"`
	Mint        string          `gorm:"index;not null;type:varchar(44)"`
	User        string          `gorm:"index;not null;type:varchar(44)"`
	IsBuy       bool            `gorm:"not null"`
	SolAmount   decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	TokenAmount decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	FeeLamports decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	ReserveSnapshot
	ExecutedAt time.Time `gorm:"index;not null"`
}
