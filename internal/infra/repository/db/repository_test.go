package db

import (
	"context"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestCategory(t *testing.T, name string, displayOrder int) *model.Category {
	t.Helper()

	uow := NewUnitOfWork(testDao)
	category := &model.Category{CategoryID: nextTestID(), Name: name, DisplayOrder: displayOrder}
	uow.Category.Add(category)
	require.NoError(t, uow.Save(context.Background()))
	require.NotZero(t, category.CategoryID)
	return category
}

func createTestProduct(t *testing.T, categoryID uint, isbn string) *model.Product {
	t.Helper()

	uow := NewUnitOfWork(testDao)
	product := &model.Product{
		ProductID:  nextTestID(),
		Title:      "test book " + isbn,
		Author:     "test author",
		ISBN:       isbn,
		ListPrice:  decimal.NewFromInt(12),
		Price:      decimal.NewFromInt(10),
		Price50:    decimal.NewFromInt(5),
		Price100:   decimal.NewFromInt(2),
		CategoryID: categoryID,
	}
	uow.Product.Add(product)
	require.NoError(t, uow.Save(context.Background()))
	require.NotZero(t, product.ProductID)
	return product
}

func TestGetAllReturnsEmptySliceNotNil(t *testing.T) {
	resetTables(t)

	uow := NewUnitOfWork(testDao)
	categories, err := uow.Category.GetAll(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, categories)
	require.Len(t, categories, 0)
}

func TestGetReturnsNilWhenMissing(t *testing.T) {
	resetTables(t)

	uow := NewUnitOfWork(testDao)
	category, err := uow.Category.Get(context.Background(), ByID("category_id", 12345))
	require.NoError(t, err)
	require.Nil(t, category)
}

func TestAddIsStagedUntilSave(t *testing.T) {
	resetTables(t)

	uow := NewUnitOfWork(testDao)
	category := &model.Category{Name: "Action", DisplayOrder: 1}
	uow.Category.Add(category)
	require.Equal(t, 1, uow.Pending())

	// 尚未Save，其他讀取端看不到
	other := NewUnitOfWork(testDao)
	got, err := other.Category.GetAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 0)

	require.NoError(t, uow.Save(context.Background()))
	require.Equal(t, 0, uow.Pending())

	saved, err := other.Category.Get(context.Background(), ByID("category_id", category.CategoryID))
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Equal(t, "Action", saved.Name)
}

func TestGetPreloadsNamedRelations(t *testing.T) {
	resetTables(t)

	category := createTestCategory(t, "SciFi", 2)
	product := createTestProduct(t, category.CategoryID, "978-0000000001")
	// 前提：主鍵沒有對齊，preload必須走外鍵欄位才找得到
	require.NotEqual(t, category.CategoryID, product.ProductID)

	uow := NewUnitOfWork(testDao)

	// 沒指名關聯就不取
	bare, err := uow.Product.Get(context.Background(), ByID("product_id", product.ProductID))
	require.NoError(t, err)
	require.NotNil(t, bare)
	require.Empty(t, bare.Category.Name)

	loaded, err := uow.Product.Get(context.Background(), ByID("product_id", product.ProductID), model.RelationCategory)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, category.CategoryID, loaded.Category.CategoryID)
	require.Equal(t, "SciFi", loaded.Category.Name)
}

func TestUpdateOverwritesRow(t *testing.T) {
	resetTables(t)

	category := createTestCategory(t, "Old", 3)

	uow := NewUnitOfWork(testDao)
	category.Name = "New"
	uow.Category.Update(category)
	require.NoError(t, uow.Save(context.Background()))

	saved, err := uow.Category.Get(context.Background(), ByID("category_id", category.CategoryID))
	require.NoError(t, err)
	require.Equal(t, "New", saved.Name)
}

func TestRemoveSoftDeletes(t *testing.T) {
	resetTables(t)

	category := createTestCategory(t, "Gone", 4)

	uow := NewUnitOfWork(testDao)
	uow.Category.Remove(category)
	require.NoError(t, uow.Save(context.Background()))

	// 預設查詢排除已刪除列
	got, err := uow.Category.Get(context.Background(), ByID("category_id", category.CategoryID))
	require.NoError(t, err)
	require.Nil(t, got)

	// 實體列還在，is_deleted被hook標記
	var raw model.Category
	require.NoError(t, testDao.Unscoped().Where("category_id = ?", category.CategoryID).First(&raw).Error)
	require.True(t, raw.IsDeleted)
}

func TestHardRemoveRangeFreesUniqueIndex(t *testing.T) {
	resetTables(t)

	uow := NewUnitOfWork(testDao)
	item := &model.ShoppingCart{UserID: 1, ProductID: 1, Count: 2}
	uow.Cart.Add(item)
	require.NoError(t, uow.Save(context.Background()))

	uow.Cart.HardRemoveRange([]model.ShoppingCart{*item})
	require.NoError(t, uow.Save(context.Background()))

	var count int64
	require.NoError(t, testDao.Unscoped().Model(&model.ShoppingCart{}).Count(&count).Error)
	require.EqualValues(t, 0, count)

	// 同 (user, product) 再次加入不能被殘留列卡住
	again := NewUnitOfWork(testDao)
	again.Cart.Add(&model.ShoppingCart{UserID: 1, ProductID: 1, Count: 1})
	require.NoError(t, again.Save(context.Background()))
}

func TestOrderRemoveDeletesDetails(t *testing.T) {
	resetTables(t)

	uow := NewUnitOfWork(testDao)
	header := &model.OrderHeader{
		UserID:        1,
		OrderDate:     time.Now().UTC(),
		OrderTotal:    decimal.NewFromInt(30),
		OrderStatus:   model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Version:       1,
		OrderDetails: []model.OrderDetail{
			{ProductID: 1, ProductTitle: "book a", Count: 1, Price: decimal.NewFromInt(10)},
			{ProductID: 2, ProductTitle: "book b", Count: 2, Price: decimal.NewFromInt(10)},
		},
	}
	uow.OrderHeader.Add(header)
	require.NoError(t, uow.Save(context.Background()))
	require.NotZero(t, header.OrderID)

	uow.OrderHeader.Remove(header)
	require.NoError(t, uow.Save(context.Background()))

	got, err := uow.OrderHeader.Get(context.Background(), ByID("order_id", header.OrderID))
	require.NoError(t, err)
	require.Nil(t, got)

	details, err := uow.OrderDetail.GetAll(context.Background(), func(q *gorm.DB) *gorm.DB {
		return q.Where("order_header_id = ?", header.OrderID)
	})
	require.NoError(t, err)
	require.Len(t, details, 0)

	// 明細列還在，只是標記刪除
	var rawCount int64
	require.NoError(t, testDao.Unscoped().Model(&model.OrderDetail{}).
		Where("order_header_id = ? AND is_deleted = ?", header.OrderID, true).
		Count(&rawCount).Error)
	require.EqualValues(t, 2, rawCount)
}
