package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/repository/db"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrProductNotExist  = errors.New("product is not exist")
	ErrCategoryNotExist = errors.New("category is not exist")
	ErrCategoryInUse    = errors.New("category is referenced by products")
	ErrCompanyNotExist  = errors.New("company is not exist")
)

// IProductCache 商品讀取快取，cache aside
type IProductCache interface {
	GetProduct(ctx context.Context, productID uint) (*model.Product, error)
	SetProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, productID uint) error
}

// CatalogService 後台類別/商品/公司維護
type CatalogService struct {
	dao             *db.DbDao
	cache           IProductCache // nil表示不用快取
	displayOrderMin int
	displayOrderMax int
}

func NewCatalogService(dao *db.DbDao, cache IProductCache, displayOrderMin, displayOrderMax int) *CatalogService {
	return &CatalogService{
		dao:             dao,
		cache:           cache,
		displayOrderMin: displayOrderMin,
		displayOrderMax: displayOrderMax,
	}
}

func (s *CatalogService) validateCategory(category *model.Category) error {
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	if category.DisplayOrder < s.displayOrderMin || category.DisplayOrder > s.displayOrderMax {
		return fmt.Errorf("%w: display order must be within [%d, %d], got %d",
			ErrValidation, s.displayOrderMin, s.displayOrderMax, category.DisplayOrder)
	}
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := s.validateCategory(category); err != nil {
		return err
	}
	uow := db.NewUnitOfWork(s.dao)
	uow.Category.Add(category)
	return uow.Save(ctx)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := s.validateCategory(category); err != nil {
		return err
	}
	uow := db.NewUnitOfWork(s.dao)
	existing, err := uow.Category.Get(ctx, db.ByID("category_id", category.CategoryID))
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCategoryNotExist
	}
	uow.Category.Update(category)
	return uow.Save(ctx)
}

// DeleteCategory 還有商品掛在該類別時不可刪除
func (s *CatalogService) DeleteCategory(ctx context.Context, categoryID uint) error {
	uow := db.NewUnitOfWork(s.dao)
	category, err := uow.Category.Get(ctx, db.ByID("category_id", categoryID))
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotExist
	}

	products, err := uow.Product.GetAll(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("category_id = ?", categoryID)
	})
	if err != nil {
		return err
	}
	if len(products) > 0 {
		return fmt.Errorf("%w: category %d has %d products", ErrCategoryInUse, categoryID, len(products))
	}

	uow.Category.Remove(category)
	return uow.Save(ctx)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	uow := db.NewUnitOfWork(s.dao)
	return uow.Category.GetAll(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Order("display_order")
	})
}

// 價格級距必須單調遞減：Price100 <= Price50 <= Price <= ListPrice，且都為正數
func (s *CatalogService) validateProduct(ctx context.Context, uow *db.UnitOfWork, product *model.Product) error {
	if product.Title == "" || product.Author == "" || product.ISBN == "" {
		return fmt.Errorf("%w: product title, author and isbn are required", ErrValidation)
	}
	if !product.Price100.IsPositive() || !product.Price50.IsPositive() ||
		!product.Price.IsPositive() || !product.ListPrice.IsPositive() {
		return fmt.Errorf("%w: all prices must be positive", ErrValidation)
	}
	if product.Price100.GreaterThan(product.Price50) ||
		product.Price50.GreaterThan(product.Price) ||
		product.Price.GreaterThan(product.ListPrice) {
		return fmt.Errorf("%w: price tiers must satisfy Price100 <= Price50 <= Price <= ListPrice", ErrValidation)
	}

	category, err := uow.Category.Get(ctx, db.ByID("category_id", product.CategoryID))
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotExist
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, product *model.Product) error {
	uow := db.NewUnitOfWork(s.dao)
	if err := s.validateProduct(ctx, uow, product); err != nil {
		return err
	}
	uow.Product.Add(product)
	return uow.Save(ctx)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, product *model.Product) error {
	uow := db.NewUnitOfWork(s.dao)
	existing, err := uow.Product.Get(ctx, db.ByID("product_id", product.ProductID))
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrProductNotExist
	}
	if err := s.validateProduct(ctx, uow, product); err != nil {
		return err
	}

	uow.Product.Update(product)
	if err := uow.Save(ctx); err != nil {
		return err
	}
	s.invalidateProduct(ctx, product.ProductID)
	return nil
}

// GetProduct 先看快取，未命中回源db並回填
func (s *CatalogService) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, productID)
		if err != nil {
			log.Error().Err(err).Uint("product_id", productID).Msg("read product cache failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	uow := db.NewUnitOfWork(s.dao)
	product, err := uow.Product.Get(ctx, db.ByID("product_id", productID), model.RelationCategory)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotExist
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			log.Error().Err(err).Uint("product_id", productID).Msg("backfill product cache failed")
		}
	}
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	uow := db.NewUnitOfWork(s.dao)
	return uow.Product.GetAll(ctx, nil, model.RelationCategory)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, productID uint) error {
	uow := db.NewUnitOfWork(s.dao)
	product, err := uow.Product.Get(ctx, db.ByID("product_id", productID))
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotExist
	}

	uow.Product.Remove(product)
	if err := uow.Save(ctx); err != nil {
		return err
	}
	s.invalidateProduct(ctx, productID)
	return nil
}

func (s *CatalogService) invalidateProduct(ctx context.Context, productID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteProduct(ctx, productID); err != nil {
		log.Error().Err(err).Uint("product_id", productID).Msg("invalidate product cache failed")
	}
}

func (s *CatalogService) CreateCompany(ctx context.Context, company *model.Company) error {
	if company.Name == "" {
		return fmt.Errorf("%w: company name is required", ErrValidation)
	}
	uow := db.NewUnitOfWork(s.dao)
	uow.Company.Add(company)
	return uow.Save(ctx)
}

func (s *CatalogService) UpdateCompany(ctx context.Context, company *model.Company) error {
	if company.Name == "" {
		return fmt.Errorf("%w: company name is required", ErrValidation)
	}
	uow := db.NewUnitOfWork(s.dao)
	existing, err := uow.Company.Get(ctx, db.ByID("company_id", company.CompanyID))
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCompanyNotExist
	}
	uow.Company.Update(company)
	return uow.Save(ctx)
}

func (s *CatalogService) DeleteCompany(ctx context.Context, companyID uint) error {
	uow := db.NewUnitOfWork(s.dao)
	company, err := uow.Company.Get(ctx, db.ByID("company_id", companyID))
	if err != nil {
		return err
	}
	if company == nil {
		return ErrCompanyNotExist
	}
	uow.Company.Remove(company)
	return uow.Save(ctx)
}

func (s *CatalogService) ListCompanies(ctx context.Context) ([]model.Company, error) {
	uow := db.NewUnitOfWork(s.dao)
	return uow.Company.GetAll(ctx, nil)
}
