package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 訂單狀態
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusApproved   OrderStatus = "approved"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsTerminal shipped/cancelled/refunded 之後訂單狀態不再流轉
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusShipped || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// PaymentStatus 付款狀態，與訂單狀態獨立流轉
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	// 月結客戶出貨後才收款
	PaymentStatusDelayedPayment PaymentStatus = "delayed_payment"
	PaymentStatusApproved       PaymentStatus = "approved"
	PaymentStatusRejected       PaymentStatus = "rejected"
	PaymentStatusRefunded       PaymentStatus = "refunded"
)

type OrderHeader struct {
	OrderID       uint            `gorm:"primaryKey"`
	UserID        uint            `gorm:"not null"`
	User          User            `gorm:"foreignKey:UserID;references:UserID"`
	OrderDate     time.Time       `gorm:"not null"`
	ShippingDate  *time.Time      `gorm:"null"`
	OrderTotal    decimal.Decimal `gorm:"not null;type:decimal(10,2)"` // 結帳時定案，之後不得由即時價格重算
	OrderStatus   OrderStatus     `gorm:"not null;type:varchar(20)"`
	PaymentStatus PaymentStatus   `gorm:"not null;type:varchar(20)"`

	TrackingNumber string `gorm:"type:varchar(100)"`
	Carrier        string `gorm:"type:varchar(50)"`

	PaymentDate    *time.Time `gorm:"null"`
	PaymentDueDate *time.Time `gorm:"null"` // 月結付款期限
	// 金流閘道的關聯代號，退款重試靠它保持冪等
	SessionID       string `gorm:"type:varchar(255)"`
	PaymentIntentID string `gorm:"type:varchar(255)"`

	// 出貨地址快照，結帳時複製，之後使用者改地址不影響歷史訂單
	Name          string `gorm:"type:varchar(100)"`
	PhoneNumber   string `gorm:"type:varchar(50)"`
	StreetAddress string `gorm:"type:varchar(255)"`
	City          string `gorm:"type:varchar(50)"`
	State         string `gorm:"type:varchar(50)"`
	PostalCode    string `gorm:"type:varchar(20)"`

	// 樂觀鎖版本號，狀態流轉一律帶版本更新
	Version uint `gorm:"not null;default:1"`

	OrderDetails []OrderDetail `gorm:"foreignKey:OrderHeaderID;references:OrderID;constraint:OnDelete:CASCADE"` // 一對多，級聯刪除
	BaseModel
}

type OrderDetail struct {
	OrderDetailID uint    `gorm:"primaryKey"`
	OrderHeaderID uint    `gorm:"not null"`
	ProductID     uint    `gorm:"not null"`
	Product       Product `gorm:"foreignKey:ProductID;references:ProductID"`
	// 商品名稱與單價快照，脫離之後的商品編輯
	ProductTitle string          `gorm:"not null;type:varchar(100)"`
	Count        int             `gorm:"not null"`
	Price        decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	BaseModel
}
