package model

type Category struct {
	CategoryID   uint      `gorm:"primaryKey"`
	Name         string    `gorm:"not null;type:varchar(100)"`
	DisplayOrder int       `gorm:"not null"`
	Products     []Product `gorm:"foreignKey:CategoryID;references:CategoryID"` // 一對多
	BaseModel
}
