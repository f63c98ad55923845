package model

import (
	"github.com/shopspring/decimal"
)

// 數量級距門檻，50件以上用Price50、100件以上用Price100
const (
	PriceTier50  = 50
	PriceTier100 = 100
)

type Product struct {
	ProductID   uint            `gorm:"primaryKey"`
	Title       string          `gorm:"not null;type:varchar(100)"`
	Author      string          `gorm:"not null;type:varchar(100)"`
	Description string          `gorm:"type:text"`
	ISBN        string          `gorm:"not null;type:varchar(50);unique"`
	ListPrice   decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Price       decimal.Decimal `gorm:"not null;type:decimal(10,2)"` // 1~49件單價
	Price50     decimal.Decimal `gorm:"not null;type:decimal(10,2)"` // 50~99件單價
	Price100    decimal.Decimal `gorm:"not null;type:decimal(10,2)"` // 100件以上單價
	CategoryID  uint            `gorm:"not null"`
	Category    Category        `gorm:"foreignKey:CategoryID;references:CategoryID"`
	ImageURL    string          `gorm:"type:varchar(255)"`
	BaseModel
}

// UnitPriceFor 依購買數量決定單價
// 純函數，結果只跟 (product, count) 有關
func (p *Product) UnitPriceFor(count int) decimal.Decimal {
	switch {
	case count >= PriceTier100:
		return p.Price100
	case count >= PriceTier50:
		return p.Price50
	default:
		return p.Price
	}
}
