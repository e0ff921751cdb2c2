package models

import (
	"time"

	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

// Product is a blind-box listing sold in up to two modes: a single individual
// box and a boxed set. Each enabled mode carries its own price and stock
// counter; the per-mode counters are authoritative and InStock is a derived
// cache recomputed on every mutation.
type Product struct {
	ID                 int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Name               string              `gorm:"column:name;not null"`
	Description        string              `gorm:"column:description;not null;default:''"`
	Status             enums.ProductStatus `gorm:"column:status;not null;default:'active'"`
	EnableIndividual   bool                `gorm:"column:enable_individual;not null;default:false"`
	EnableSet          bool                `gorm:"column:enable_set;not null;default:false"`
	IndividualPriceWei int64               `gorm:"column:individual_price_wei;not null;default:0"`
	IndividualStock    int                 `gorm:"column:individual_stock;not null;default:0"`
	SetPriceWei        int64               `gorm:"column:set_price_wei;not null;default:0"`
	SetStock           int                 `gorm:"column:set_stock;not null;default:0"`
	SetBoxes           int                 `gorm:"column:set_boxes;not null;default:0"`
	LegacyPriceWei     int64               `gorm:"column:legacy_price_wei;not null;default:0"`
	InStock            bool                `gorm:"column:in_stock;not null;default:false"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// UnitPriceWei resolves the price for the requested mode, falling back to the
// legacy flat price when the mode-specific price is zero. Returns 0 when no
// price is configured at all.
func (p Product) UnitPriceWei(isSet bool) int64 {
	unit := p.IndividualPriceWei
	if isSet {
		unit = p.SetPriceWei
	}
	if unit == 0 {
		unit = p.LegacyPriceWei
	}
	return unit
}

// ModeEnabled reports whether the requested sale mode is enabled.
func (p Product) ModeEnabled(isSet bool) bool {
	if isSet {
		return p.EnableSet
	}
	return p.EnableIndividual
}

// ModeStock returns the authoritative stock counter for the requested mode.
func (p Product) ModeStock(isSet bool) int {
	if isSet {
		return p.SetStock
	}
	return p.IndividualStock
}

// AnyModeInStock recomputes the derived availability flag from the per-mode
// counters.
func (p Product) AnyModeInStock() bool {
	if p.EnableIndividual && p.IndividualStock > 0 {
		return true
	}
	if p.EnableSet && p.SetStock > 0 {
		return true
	}
	return false
}
