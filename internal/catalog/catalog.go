package catalog

import (
	"context"
	"errors"

	"glacier_catalog/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrProductNotFound 商品不存在或已下架。
var ErrProductNotFound = errors.New("product not found")

// ProductView 对外的商品视图：分类以名称展示。
type ProductView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Stock       int64           `json:"stock"`
}

// Catalog 目录读服务：商品/分类/搜索，只读不改。
type Catalog struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// ListProducts 查询在架商品，category 非空时按分类名过滤。
func (c *Catalog) ListProducts(ctx context.Context, category string) ([]ProductView, error) {
	q := c.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = ?", true)
	if category != "" {
		var cat model.Category
		err := c.db.WithContext(ctx).
			Where("name = ? AND is_active = ?", category, true).
			First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []ProductView{}, nil
		}
		if err != nil {
			return nil, err
		}
		q = q.Where("category_id = ?", cat.ID)
	}

	var products []model.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return c.toViews(ctx, products)
}

// GetProduct 按 ID 查询单个在架商品。
func (c *Catalog) GetProduct(ctx context.Context, productID string) (ProductView, error) {
	var p model.Product
	err := c.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", productID, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductView{}, ErrProductNotFound
	}
	if err != nil {
		return ProductView{}, err
	}
	views, err := c.toViews(ctx, []model.Product{p})
	if err != nil {
		return ProductView{}, err
	}
	return views[0], nil
}

// GetStock 查询商品当前库存（含下架商品，供管理侧核对）。
func (c *Catalog) GetStock(ctx context.Context, productID string) (int64, error) {
	var p model.Product
	err := c.db.WithContext(ctx).
		Select("stock").
		Where("id = ?", productID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// ListCategories 查询启用的分类。
func (c *Catalog) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.db.WithContext(ctx).Where("is_active = ?", true).Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// Search 按名称/描述做 LIKE 匹配（不做排序打分）。
func (c *Catalog) Search(ctx context.Context, query string) ([]ProductView, error) {
	term := "%" + query + "%"
	var products []model.Product
	err := c.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("name LIKE ? OR description LIKE ?", term, term).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return c.toViews(ctx, products)
}

// toViews 批量解析分类名，组装商品视图。
func (c *Catalog) toViews(ctx context.Context, products []model.Product) ([]ProductView, error) {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.CategoryID)
	}

	categoryNames := map[string]string{}
	if len(ids) > 0 {
		var cats []model.Category
		if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&cats).Error; err != nil {
			return nil, err
		}
		for _, cat := range cats {
			categoryNames[cat.ID] = cat.Name
		}
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		name, ok := categoryNames[p.CategoryID]
		if !ok {
			name = "Unknown"
		}
		views = append(views, ProductView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    name,
			ImageURL:    p.ImageURL,
			Stock:       p.Stock,
		})
	}
	return views, nil
}
