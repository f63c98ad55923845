package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"gorm.io/gorm"
)

var (
	// ErrConflict 帶版本的更新沒有命中任何列，資料已被其他操作改走
	ErrConflict = errors.New("stale write, entity was modified concurrently")
	// ErrPersistence 交易提交失敗，細節包在後面
	ErrPersistence = errors.New("persistence error")
)

// UnitOfWork 聚合所有repo共用一份暫存異動集
// Save 一次交易全部提交，全成或全不成
//
// 生命週期：一個邏輯操作配一個instance，不可跨goroutine共用
type UnitOfWork struct {
	dao         *DbDao
	pending     []func(tx *gorm.DB) error
	afterCommit []func()

	Category    *Repository[model.Category]
	Product     *Repository[model.Product]
	Company     *Repository[model.Company]
	User        *Repository[model.User]
	Cart        *Repository[model.ShoppingCart]
	OrderHeader *OrderHeaderRepository
	OrderDetail *Repository[model.OrderDetail]
}

func NewUnitOfWork(dao *DbDao) *UnitOfWork {
	u := &UnitOfWork{dao: dao}
	u.Category = newRepository[model.Category](u)
	u.Product = newRepository[model.Product](u)
	u.Company = newRepository[model.Company](u)
	u.User = newRepository[model.User](u)
	u.Cart = newRepository[model.ShoppingCart](u)
	u.OrderHeader = newOrderHeaderRepository(u)
	u.OrderDetail = newRepository[model.OrderDetail](u)
	return u
}

func (u *UnitOfWork) stage(op func(tx *gorm.DB) error) {
	u.pending = append(u.pending, op)
}

// afterSave 註冊交易提交成功後才執行的回呼，回滾時不執行
// 用在不可於交易失敗時外洩的記憶體狀態，例如樂觀鎖版本號
func (u *UnitOfWork) afterSave(fn func()) {
	u.afterCommit = append(u.afterCommit, fn)
}

// Pending 目前暫存的異動數
func (u *UnitOfWork) Pending() int {
	return len(u.pending)
}

// Save 將暫存異動依序套用在同一個交易內
// 任一步失敗整筆回滾，暫存集不論成敗都會清空，失敗後要重走讀取+暫存
func (u *UnitOfWork) Save(ctx context.Context) error {
	ops, hooks := u.pending, u.afterCommit
	u.pending, u.afterCommit = nil, nil
	if len(ops) == 0 {
		return nil
	}

	err := u.dao.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	for _, hook := range hooks {
		hook()
	}
	return nil
}
