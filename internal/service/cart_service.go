package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/repository/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart        = errors.New("shopping cart is empty")
	ErrCartItemNotExist = errors.New("cart item is not exist")
	ErrUserNotExist     = errors.New("user is not exist")
)

// ShippingInfo 結帳時填的出貨資料，會快照進OrderHeader
type ShippingInfo struct {
	Name          string
	PhoneNumber   string
	StreetAddress string
	City          string
	State         string
	PostalCode    string
}

type ICartService interface {
	AddToCart(ctx context.Context, userID, productID uint, count int) (*model.ShoppingCart, error)
	SetCount(ctx context.Context, userID, productID uint, count int) error
	RemoveFromCart(ctx context.Context, userID, productID uint) error
	GetCart(ctx context.Context, userID uint) ([]model.ShoppingCart, decimal.Decimal, error)
	Checkout(ctx context.Context, caller model.Caller, ship ShippingInfo) (*model.OrderHeader, error)
}

type CartService struct {
	dao          *db.DbDao
	gateway      PaymentGateway // nil表示不發起收款(測試或月結專用流程)
	netTermsDays int
}

func NewCartService(dao *db.DbDao, gateway PaymentGateway, netTermsDays int) *CartService {
	return &CartService{dao: dao, gateway: gateway, netTermsDays: netTermsDays}
}

func cartItemFilter(userID, productID uint) db.Filter {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND product_id = ?", userID, productID)
	}
}

// AddToCart 加入購物車
// 同商品已在購物車時累加數量，不會長出第二列
func (s *CartService) AddToCart(ctx context.Context, userID, productID uint, count int) (*model.ShoppingCart, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be >= 1, got %d", ErrValidation, count)
	}

	uow := db.NewUnitOfWork(s.dao)

	product, err := uow.Product.Get(ctx, db.ByID("product_id", productID))
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotExist
	}

	item, err := uow.Cart.Get(ctx, cartItemFilter(userID, productID))
	if err != nil {
		return nil, err
	}

	if item != nil {
		item.Count += count
		uow.Cart.Update(item)
	} else {
		item = &model.ShoppingCart{
			UserID:    userID,
			ProductID: productID,
			Count:     count,
		}
		uow.Cart.Add(item)
	}

	if err := uow.Save(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// SetCount 直接設定數量，0以下等同移除
func (s *CartService) SetCount(ctx context.Context, userID, productID uint, count int) error {
	uow := db.NewUnitOfWork(s.dao)

	item, err := uow.Cart.Get(ctx, cartItemFilter(userID, productID))
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotExist
	}

	if count <= 0 {
		uow.Cart.HardRemoveRange([]model.ShoppingCart{*item})
	} else {
		item.Count = count
		uow.Cart.Update(item)
	}
	return uow.Save(ctx)
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uint) error {
	uow := db.NewUnitOfWork(s.dao)

	item, err := uow.Cart.Get(ctx, cartItemFilter(userID, productID))
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotExist
	}

	uow.Cart.HardRemoveRange([]model.ShoppingCart{*item})
	return uow.Save(ctx)
}

// GetCart 購物車內容與目前級距價試算的總額
func (s *CartService) GetCart(ctx context.Context, userID uint) ([]model.ShoppingCart, decimal.Decimal, error) {
	uow := db.NewUnitOfWork(s.dao)

	items, err := uow.Cart.GetAll(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	}, model.RelationProduct)
	if err != nil {
		return nil, decimal.Decimal{}, err
	}

	total := decimal.NewFromInt(0)
	for _, item := range items {
		unit := item.Product.UnitPriceFor(item.Count)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Count))))
	}
	return items, total, nil
}

// Checkout 結帳：購物車整批轉成OrderHeader+OrderDetail並清空購物車，單一交易
// 單價依數量級距結算並快照，總額之後不得由即時價格重算
// 月結(company)客戶直接進delayed_payment，其餘結帳後向閘道發起收款
func (s *CartService) Checkout(ctx context.Context, caller model.Caller, ship ShippingInfo) (*model.OrderHeader, error) {
	if ship.Name == "" || ship.PhoneNumber == "" || ship.StreetAddress == "" {
		return nil, fmt.Errorf("%w: shipping name, phone and street address are required", ErrValidation)
	}

	uow := db.NewUnitOfWork(s.dao)

	user, err := uow.User.Get(ctx, db.ByID("user_id", caller.UserID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotExist
	}

	items, err := uow.Cart.GetAll(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", caller.UserID)
	}, model.RelationProduct)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		// 購物車結帳後就被消耗，重送結帳不會長出空訂單
		return nil, ErrEmptyCart
	}

	now := time.Now().UTC()
	total := decimal.NewFromInt(0)
	details := make([]model.OrderDetail, 0, len(items))
	for _, item := range items {
		// 商品在購物車期間被下架時關聯取不回來，不可用零值商品結出總額0的訂單
		if item.Product.ProductID == 0 {
			return nil, fmt.Errorf("%w: product %d is no longer available", ErrProductNotExist, item.ProductID)
		}
		unit := item.Product.UnitPriceFor(item.Count)
		details = append(details, model.OrderDetail{
			ProductID:    item.ProductID,
			ProductTitle: item.Product.Title, // 快照，脫離之後的商品編輯
			Count:        item.Count,
			Price:        unit,
		})
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Count))))
	}

	header := model.OrderHeader{
		UserID:        user.UserID,
		OrderDate:     now,
		OrderTotal:    total,
		OrderStatus:   model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Name:          ship.Name,
		PhoneNumber:   ship.PhoneNumber,
		StreetAddress: ship.StreetAddress,
		City:          ship.City,
		State:         ship.State,
		PostalCode:    ship.PostalCode,
		Version:       1,
		OrderDetails:  details,
	}
	if user.Role == model.RoleCompany {
		due := now.AddDate(0, 0, s.netTermsDays)
		header.PaymentStatus = model.PaymentStatusDelayedPayment
		header.PaymentDueDate = &due
	}

	uow.OrderHeader.Add(&header)
	uow.Cart.HardRemoveRange(items)
	if err := uow.Save(ctx); err != nil {
		return nil, err
	}

	// 訂單已成立才發起收款，失敗時訂單留在pending，收款可以重試
	if user.Role != model.RoleCompany && s.gateway != nil {
		session, err := s.gateway.InitiateCharge(ctx, header.OrderID, total)
		if err != nil {
			return &header, fmt.Errorf("%w: %w", ErrGateway, err)
		}
		header.SessionID = session.SessionID
		header.PaymentIntentID = session.PaymentIntentID

		tokenUow := db.NewUnitOfWork(s.dao)
		tokenUow.OrderHeader.UpdatePaymentToken(header.OrderID, session.SessionID, session.PaymentIntentID)
		if err := tokenUow.Save(ctx); err != nil {
			return &header, err
		}
	}

	return &header, nil
}
