// internal/storage/models/curve.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Curve struct {
	BaseModel
	Mint             string          `gorm:"unique;not null;type:varchar(44)"`
	Creator          string          `gorm:"index;not null;type:varchar(44)"`
	Name             string          `gorm:"not null;type:varchar(32)"`
	Symbol           string          `gorm:"not null;type:varchar(10)"`
	URI              string          `gorm:"not null;type:varchar(200)"`
	StartTime        time.Time       `gorm:"not null"`
	TokenTotalSupply decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	ReserveSnapshot
	Complete    bool `gorm:"index;not null;default:false"`
	CompletedAt *time.Time
}

type Migration struct {
	BaseModel
	Mint        string          `gorm:"unique;not null;type:varchar(44)"`
	Authority   string          `gorm:"not null;type:varchar(44)"`
	Pool        string          `gorm:"index;not null;type:varchar(44)"`
	LPMint      string          `gorm:"not null;type:varchar(44)"`
	LPAmount    decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	SolAmount   decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	TokenAmount decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	MigrateFee  decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	Escrow      string          `gorm:"type:varchar(44)"`
	LockedAt    *time.Time
}

// ConfigChange audits every global or whitelist update. Subject is the
// global authority for global updates and the creator for whitelist updates.
type ConfigChange struct {
	BaseModel
	Kind    string `gorm:"index;not null;type:varchar(32)"`
	Subject string `gorm:"index;not null;type:varchar(44)"`
	Payload string `gorm:"type:jsonb;not null"`
}
