package db

import (
	"context"
	"errors"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"gorm.io/gorm"
)

// Filter 查詢條件，讓呼叫端不用碰SQL字串
// nil 表示不過濾
type Filter func(*gorm.DB) *gorm.DB

// ByID 常用條件：主鍵相等
func ByID(column string, id uint) Filter {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where(column+" = ?", id)
	}
}

// Repository 單一實體型別的泛型CRUD
// 讀取立即執行，寫入先暫存在所屬UnitOfWork，Save時一次交易提交
type Repository[T any] struct {
	uow *UnitOfWork
}

func newRepository[T any](uow *UnitOfWork) *Repository[T] {
	return &Repository[T]{uow: uow}
}

func (r *Repository[T]) query(ctx context.Context, filter Filter, rels ...model.Relation) *gorm.DB {
	q := r.uow.dao.WithContext(ctx).Model(new(T))
	if filter != nil {
		q = q.Scopes(filter)
	}
	// 指名的關聯跟主查詢同一回合取回，避免N+1
	for _, rel := range rels {
		q = q.Preload(string(rel))
	}
	return q
}

// GetAll 回傳符合條件的全部實體，沒有資料回傳空slice不回傳nil
func (r *Repository[T]) GetAll(ctx context.Context, filter Filter, rels ...model.Relation) ([]T, error) {
	entities := make([]T, 0)
	err := r.query(ctx, filter, rels...).Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// Get 回傳第一筆符合的實體
// 查無資料回傳 (nil, nil)，要不要視為錯誤由呼叫端決定
func (r *Repository[T]) Get(ctx context.Context, filter Filter, rels ...model.Relation) (*T, error) {
	var entity T
	err := r.query(ctx, filter, rels...).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Add 暫存新增，UnitOfWork.Save 才會落庫
func (r *Repository[T]) Add(entity *T) {
	r.uow.stage(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
}

// Update 暫存整列覆寫，last-write-wins
// OrderHeader 的狀態流轉不要走這裡，要用 OrderHeaderRepository.UpdateVersioned
func (r *Repository[T]) Update(entity *T) {
	r.uow.stage(func(tx *gorm.DB) error {
		return tx.Save(entity).Error
	})
}

// 軟刪除一次更新 deleted_at 與 is_deleted，之後預設查詢scope就看不到這列
func softDelete(q *gorm.DB) error {
	return q.UpdateColumns(map[string]interface{}{
		"is_deleted": true,
		"deleted_at": time.Now(),
	}).Error
}

// Remove 暫存軟刪除
func (r *Repository[T]) Remove(entity *T) {
	r.uow.stage(func(tx *gorm.DB) error {
		return softDelete(tx.Model(entity))
	})
}

// RemoveRange 暫存批次軟刪除
func (r *Repository[T]) RemoveRange(entities []T) {
	if len(entities) == 0 {
		return
	}
	r.uow.stage(func(tx *gorm.DB) error {
		for i := range entities {
			if err := softDelete(tx.Model(&entities[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// HardRemoveRange 暫存批次硬刪除，購物車這種一次性資料用這個
// 軟刪除會卡住 (user, product) 唯一索引，之後同商品加不回購物車
func (r *Repository[T]) HardRemoveRange(entities []T) {
	if len(entities) == 0 {
		return
	}
	r.uow.stage(func(tx *gorm.DB) error {
		return tx.Unscoped().Delete(&entities).Error
	})
}
