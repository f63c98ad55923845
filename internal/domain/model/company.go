package model

// Company 月結客戶所屬公司
type Company struct {
	CompanyID     uint   `gorm:"primaryKey"`
	Name          string `gorm:"not null;type:varchar(100)"`
	StreetAddress string `gorm:"type:varchar(255)"`
	City          string `gorm:"type:varchar(50)"`
	State         string `gorm:"type:varchar(50)"`
	PostalCode    string `gorm:"type:varchar(20)"`
	PhoneNumber   string `gorm:"type:varchar(50)"`
	BaseModel
}
