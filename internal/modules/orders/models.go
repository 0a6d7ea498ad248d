package orders

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Order struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	Gateway     string `gorm:"type:varchar(32);not null;uniqueIndex:ux_orders_gateway_external_ref,priority:1"`
	ExternalRef string `gorm:"type:varchar(128);not null;uniqueIndex:ux_orders_gateway_external_ref,priority:2"`

	// Amount is the authoritative charge in major units as quoted to the
	// customer. Adapters convert to provider encodings; this never does.
	Amount   float64 `gorm:"type:decimal(12,2);not null"`
	Currency string  `gorm:"type:char(3);not null"`

	CustomerName  string `gorm:"type:varchar(255);not null"`
	CustomerEmail string `gorm:"type:varchar(255);not null"`
	CustomerPhone string `gorm:"type:varchar(32);not null"`

	Status       string         `gorm:"type:varchar(16);not null;index:ix_orders_status"`
	ProviderMeta datatypes.JSON `gorm:"type:json"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Order) TableName() string { return "orders" }

func (o Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusFailed
}

// MetaMap decodes provider_meta; nil column decodes to an empty map.
func (o Order) MetaMap() map[string]any {
	out := map[string]any{}
	if len(o.ProviderMeta) == 0 {
		return out
	}
	_ = json.Unmarshal(o.ProviderMeta, &out)
	return out
}
