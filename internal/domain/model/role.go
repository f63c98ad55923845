package model

// Role 使用者角色，封閉集合
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEmployee   Role = "employee"
	RoleCompany    Role = "company"
	RoleIndividual Role = "individual"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleCompany, RoleIndividual:
		return true
	}
	return false
}

// Caller 代表發起操作的使用者能力，由外部認證層填入
// 本核心只做角色檢查，不處理認證細節
type Caller struct {
	UserID uint
	Role   Role
}

func (c Caller) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
