package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/repository/db"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrOrderNotExist       = errors.New("order is not exist")
	ErrInvalidTransition   = errors.New("invalid order state transition")
	ErrMissingShipmentInfo = errors.New("tracking number and carrier are required")
	ErrForbidden           = errors.New("caller is not allowed to perform this operation")
	ErrGateway             = errors.New("payment gateway error")
)

// OrderListFilter 訂單列表的狀態過濾
type OrderListFilter string

const (
	OrderListAll            OrderListFilter = ""
	OrderListPendingPayment OrderListFilter = "pending"   // 月結未收款
	OrderListApproved       OrderListFilter = "approved"
	OrderListInProcess      OrderListFilter = "inprocess"
	OrderListCompleted      OrderListFilter = "completed" // 已出貨
)

type IOrderService interface {
	GetOrder(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error)
	ListOrders(ctx context.Context, caller model.Caller, filter OrderListFilter) ([]model.OrderHeader, error)
	Approve(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error)
	StartProcessing(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error)
	Ship(ctx context.Context, caller model.Caller, orderID uint, trackingNumber, carrier string) (*model.OrderHeader, error)
	Cancel(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string, outcome PaymentOutcome) (*model.OrderHeader, error)
	UpdateShippingDetails(ctx context.Context, caller model.Caller, updated *model.OrderHeader) (*model.OrderHeader, error)
}

// OrderService 訂單生命週期引擎
// 每個流轉 = 驗證 + 一筆帶版本的暫存更新 + 單次Save，不會部份套用
type OrderService struct {
	dao          *db.DbDao
	gateway      PaymentGateway
	notifier     IOrderNotifier // nil表示不發通知
	netTermsDays int
}

func NewOrderService(dao *db.DbDao, gateway PaymentGateway, notifier IOrderNotifier, netTermsDays int) *OrderService {
	return &OrderService{dao: dao, gateway: gateway, notifier: notifier, netTermsDays: netTermsDays}
}

func (s *OrderService) getOrder(ctx context.Context, uow *db.UnitOfWork, orderID uint) (*model.OrderHeader, error) {
	order, err := uow.OrderHeader.Get(ctx, db.ByID("order_id", orderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotExist
	}
	return order, nil
}

// 通知失敗只記log，不可中斷已提交的流轉
func (s *OrderService) notify(ctx context.Context, order *model.OrderHeader) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyStatusChanged(ctx, order); err != nil {
		log.Error().Err(err).Uint("order_id", order.OrderID).Msg("publish order status event failed")
	}
}

func (s *OrderService) GetOrder(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error) {
	uow := db.NewUnitOfWork(s.dao)
	order, err := uow.OrderHeader.Get(ctx, db.ByID("order_id", orderID), model.RelationOrderDetails, model.RelationUser)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotExist
	}
	if !caller.HasRole(model.RoleAdmin, model.RoleEmployee) && order.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, caller model.Caller, filter OrderListFilter) ([]model.OrderHeader, error) {
	uow := db.NewUnitOfWork(s.dao)
	return uow.OrderHeader.GetAll(ctx, func(q *gorm.DB) *gorm.DB {
		if !caller.HasRole(model.RoleAdmin, model.RoleEmployee) {
			q = q.Where("user_id = ?", caller.UserID)
		}
		switch filter {
		case OrderListPendingPayment:
			q = q.Where("payment_status = ?", model.PaymentStatusDelayedPayment)
		case OrderListApproved:
			q = q.Where("order_status = ?", model.OrderStatusApproved)
		case OrderListInProcess:
			q = q.Where("order_status = ?", model.OrderStatusProcessing)
		case OrderListCompleted:
			q = q.Where("order_status = ?", model.OrderStatusShipped)
		}
		return q
	}, model.RelationUser)
}

// Approve 待處理 -> 已核准，要先確認收款(已付或月結)
func (s *OrderService) Approve(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error) {
	if !caller.HasRole(model.RoleAdmin, model.RoleEmployee) {
		return nil, ErrForbidden
	}

	uow := db.NewUnitOfWork(s.dao)
	order, err := s.getOrder(ctx, uow, orderID)
	if err != nil {
		return nil, err
	}

	if order.OrderStatus != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: approve requires pending order, got %s", ErrInvalidTransition, order.OrderStatus)
	}
	if order.PaymentStatus != model.PaymentStatusApproved && order.PaymentStatus != model.PaymentStatusDelayedPayment {
		return nil, fmt.Errorf("%w: payment not confirmed, got %s", ErrInvalidTransition, order.PaymentStatus)
	}

	order.OrderStatus = model.OrderStatusApproved
	uow.OrderHeader.UpdateVersioned(order)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}

	s.notify(ctx, order)
	return order, nil
}

// StartProcessing 已核准 -> 處理中
func (s *OrderService) StartProcessing(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error) {
	if !caller.HasRole(model.RoleAdmin, model.RoleEmployee) {
		return nil, ErrForbidden
	}

	uow := db.NewUnitOfWork(s.dao)
	order, err := s.getOrder(ctx, uow, orderID)
	if err != nil {
		return nil, err
	}

	if order.OrderStatus != model.OrderStatusApproved {
		return nil, fmt.Errorf("%w: processing requires approved order, got %s", ErrInvalidTransition, order.OrderStatus)
	}

	order.OrderStatus = model.OrderStatusProcessing
	uow.OrderHeader.UpdateVersioned(order)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}

	s.notify(ctx, order)
	return order, nil
}

// Ship 處理中 -> 已出貨，要有物流單號與承運商
// 月結訂單出貨時一併推算付款期限
func (s *OrderService) Ship(ctx context.Context, caller model.Caller, orderID uint, trackingNumber, carrier string) (*model.OrderHeader, error) {
	if !caller.HasRole(model.RoleAdmin, model.RoleEmployee) {
		return nil, ErrForbidden
	}
	if trackingNumber == "" || carrier == "" {
		return nil, ErrMissingShipmentInfo
	}

	uow := db.NewUnitOfWork(s.dao)
	order, err := s.getOrder(ctx, uow, orderID)
	if err != nil {
		return nil, err
	}

	if order.OrderStatus != model.OrderStatusProcessing {
		return nil, fmt.Errorf("%w: ship requires processing order, got %s", ErrInvalidTransition, order.OrderStatus)
	}

	now := time.Now().UTC()
	order.TrackingNumber = trackingNumber
	order.Carrier = carrier
	order.ShippingDate = &now
	order.OrderStatus = model.OrderStatusShipped
	if order.PaymentStatus == model.PaymentStatusDelayedPayment {
		due := now.AddDate(0, 0, s.netTermsDays)
		order.PaymentDueDate = &due
	}

	uow.OrderHeader.UpdateVersioned(order)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}

	s.notify(ctx, order)
	return order, nil
}

// Cancel 取消訂單
// admin可取消任何未終結訂單，訂單本人只能取消pending
// 已收款的訂單要先跟閘道退款成功才落地取消，退款靠關聯代號冪等，失敗由呼叫端重試
func (s *OrderService) Cancel(ctx context.Context, caller model.Caller, orderID uint) (*model.OrderHeader, error) {
	uow := db.NewUnitOfWork(s.dao)
	order, err := s.getOrder(ctx, uow, orderID)
	if err != nil {
		return nil, err
	}

	if !caller.HasRole(model.RoleAdmin) {
		if order.UserID != caller.UserID {
			return nil, ErrForbidden
		}
		if order.OrderStatus != model.OrderStatusPending {
			return nil, ErrForbidden
		}
	}
	if order.OrderStatus.IsTerminal() {
		return nil, fmt.Errorf("%w: order already %s", ErrInvalidTransition, order.OrderStatus)
	}

	if order.PaymentStatus == model.PaymentStatusApproved {
		if s.gateway == nil {
			return nil, fmt.Errorf("%w: no payment gateway configured", ErrGateway)
		}
		if order.PaymentIntentID == "" {
			return nil, fmt.Errorf("%w: order %d has no payment intent id", ErrGateway, order.OrderID)
		}
		// 狀態落地前先退款，中途掛掉重跑Cancel會再退一次，由閘道冪等吸收
		if err := s.gateway.Refund(ctx, order.PaymentIntentID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		}
		order.OrderStatus = model.OrderStatusCancelled
		order.PaymentStatus = model.PaymentStatusRefunded
	} else {
		order.OrderStatus = model.OrderStatusCancelled
	}

	uow.OrderHeader.UpdateVersioned(order)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}

	s.notify(ctx, order)
	return order, nil
}

// ConfirmPayment 金流webhook回報收款結果
// 成功時付款pending -> approved，且訂單pending自動核准
// 失敗時付款 -> rejected，訂單維持pending讓客戶重試
func (s *OrderService) ConfirmPayment(ctx context.Context, paymentIntentID string, outcome PaymentOutcome) (*model.OrderHeader, error) {
	uow := db.NewUnitOfWork(s.dao)
	order, err := uow.OrderHeader.Get(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("payment_intent_id = ?", paymentIntentID)
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotExist
	}

	switch outcome {
	case PaymentSucceeded:
		if order.PaymentStatus == model.PaymentStatusApproved {
			// webhook重送
			return order, nil
		}
		if order.PaymentStatus != model.PaymentStatusPending {
			return nil, fmt.Errorf("%w: payment already %s", ErrInvalidTransition, order.PaymentStatus)
		}
		now := time.Now().UTC()
		order.PaymentStatus = model.PaymentStatusApproved
		order.PaymentDate = &now
		if order.OrderStatus == model.OrderStatusPending {
			order.OrderStatus = model.OrderStatusApproved
		}
	case PaymentFailed:
		if order.PaymentStatus != model.PaymentStatusPending {
			return nil, fmt.Errorf("%w: payment already %s", ErrInvalidTransition, order.PaymentStatus)
		}
		order.PaymentStatus = model.PaymentStatusRejected
	default:
		return nil, fmt.Errorf("%w: unknown payment outcome %q", ErrInvalidTransition, outcome)
	}

	uow.OrderHeader.UpdateVersioned(order)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}

	s.notify(ctx, order)
	return order, nil
}

// UpdateShippingDetails 後台編輯出貨快照
// 承運商與物流單號只在有填值時覆蓋
func (s *OrderService) UpdateShippingDetails(ctx context.Context, caller model.Caller, updated *model.OrderHeader) (*model.OrderHeader, error) {
	if !caller.HasRole(model.RoleAdmin, model.RoleEmployee) {
		return nil, ErrForbidden
	}

	uow := db.NewUnitOfWork(s.dao)
	order, err := s.getOrder(ctx, uow, updated.OrderID)
	if err != nil {
		return nil, err
	}

	order.Name = updated.Name
	order.PhoneNumber = updated.PhoneNumber
	order.StreetAddress = updated.StreetAddress
	order.City = updated.City
	order.State = updated.State
	order.PostalCode = updated.PostalCode
	if updated.Carrier != "" {
		order.Carrier = updated.Carrier
	}
	if updated.TrackingNumber != "" {
		order.TrackingNumber = updated.TrackingNumber
	}

	uow.OrderHeader.UpdateVersioned(order)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}
	return order, nil
}
