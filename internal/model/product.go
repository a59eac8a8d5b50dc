package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品：名称、单价、库存、上架状态。
// 一旦被订单引用，库存只能通过 inventory.Ledger 的原子操作变更。
type Product struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:255;not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// Price 用 decimal(10,2) 精确表示金额，下单时快照进订单明细。
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID string          `gorm:"size:36;not null;index" json:"category_id"`
	ImageURL   string          `gorm:"size:500" json:"image_url"`
	Stock      int64           `gorm:"not null;default:0" json:"stock"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
}

func (Product) TableName() string { return "products" }

// BeforeCreate 未指定主键时生成 UUID。
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
