package model

type User struct {
	UserID        uint   `gorm:"primaryKey"`
	UserName      string `gorm:"not null;type:varchar(50)"`
	UserEmail     string `gorm:"unique;not null;type:varchar(100)"`
	PhoneNumber   string `gorm:"type:varchar(50)"`
	StreetAddress string `gorm:"type:varchar(255)"`
	City          string `gorm:"type:varchar(50)"`
	State         string `gorm:"type:varchar(50)"`
	PostalCode    string `gorm:"type:varchar(20)"`
	Role          Role   `gorm:"not null;type:varchar(20)"`
	// 月結客戶才有所屬公司
	CompanyID *uint         `gorm:"null"`
	Company   *Company      `gorm:"foreignKey:CompanyID;references:CompanyID"`
	Orders    []OrderHeader `gorm:"foreignKey:UserID;references:UserID"`
	BaseModel
}
