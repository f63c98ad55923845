package model

// Relation 可供eager load的關聯名稱
// 只能使用以下常數，避免字串打錯只有在執行期才發現
type Relation string

const (
	// Product.Category
	RelationCategory Relation = "Category"
	// User.Company
	RelationCompany Relation = "Company"
	// ShoppingCart.Product / OrderDetail.Product
	RelationProduct Relation = "Product"
	// OrderHeader.OrderDetails
	RelationOrderDetails Relation = "OrderDetails"
	// OrderHeader.User / ShoppingCart.User
	RelationUser Relation = "User"
)
