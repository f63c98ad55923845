package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 共用欄位
// 軟刪除由repository層一次更新 deleted_at 與 is_deleted，不走gorm hook
type BaseModel struct {
	IsDeleted bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
