package model

// ShoppingCart 購物車明細，一個 (user, product) 只會有一列
// 重複加入同商品時累加 Count，結帳時整批刪除
type ShoppingCart struct {
	CartID    uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_cart_user_product"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_user_product"`
	Count     int     `gorm:"not null"`
	User      User    `gorm:"foreignKey:UserID;references:UserID"`
	Product   Product `gorm:"foreignKey:ProductID;references:ProductID"`
	BaseModel
}
