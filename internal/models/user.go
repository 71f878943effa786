package models

// User represents a registered customer or store administrator.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
}
