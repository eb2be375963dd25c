package db_models

// Account is an operator login. Only operators with the admin role may
// trigger index rebuilds.
type Account struct {
	BaseModel
	Name         string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string `gorm:"default:operator"`
}

func (Account) TableName() string { return "accounts" }
