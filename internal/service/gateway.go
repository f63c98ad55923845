package service

import (
	"context"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/shopspring/decimal"
)

// ChargeSession 金流閘道回傳的收款關聯代號
type ChargeSession struct {
	SessionID       string
	PaymentIntentID string
}

// PaymentOutcome 金流webhook回報的收款結果
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentGateway 金流閘道抽象契約，協定細節不在本核心範圍
// Refund 以 paymentIntentID 冪等，同一代號重送不會重複退款
type PaymentGateway interface {
	InitiateCharge(ctx context.Context, orderID uint, amount decimal.Decimal) (*ChargeSession, error)
	Refund(ctx context.Context, paymentIntentID string) error
}

// IOrderNotifier 訂單狀態異動通知，best effort
type IOrderNotifier interface {
	NotifyStatusChanged(ctx context.Context, order *model.OrderHeader) error
}
