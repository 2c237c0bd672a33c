package models

import "time"

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет пользователя
type User struct {
	ID          string // UUID, совпадает с идентификатором из токена
	Email       string
	PassHash    []byte
	DisplayName string
	PhoneNumber string
	Address     string
	Role        string // "user" или "admin"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
