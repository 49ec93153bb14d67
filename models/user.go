package models

import "time"

// User backs login and the auth middleware existence check. UserID is the
// string identity that appears as owner/reviewer/actor on baseline records.
type User struct {
	ID        int        `gorm:"primaryKey;column:id" json:"id"`
	UserID    string     `gorm:"column:user_id;size:64;uniqueIndex" json:"user_id"`
	Name      string     `gorm:"column:name;size:128" json:"name"`
	Email     string     `gorm:"column:email;size:128;uniqueIndex" json:"email"`
	Password  string     `gorm:"column:password;size:128" json:"-"`
	Role      string     `gorm:"column:role;size:32" json:"role"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// TableName specifies the table name for User.
func (User) TableName() string {
	return "users"
}
