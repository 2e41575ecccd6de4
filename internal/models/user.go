package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User identity is owned by Casdoor; rows here mirror what the service needs
// for ownership checks and dashboards. Role is resolved from Casdoor claims
// and never stored.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	// Required for students, must stay empty for every other role so the
	// unique index never collides on shared placeholder values.
	StudentID *string `json:"student_id" gorm:"uniqueIndex;size:50"`

	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user may act on sessions they do not own.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin
}
