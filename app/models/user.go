package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a shop customer or administrator.
type User struct {
	ID              string    `gorm:"primaryKey;size:24"                  bson:"_id"             json:"_id"`
	Name            string    `gorm:"size:255;not null"                   bson:"name"            json:"name"`
	Email           string    `gorm:"uniqueIndex;size:255;not null"       bson:"email"           json:"email"`
	Password        string    `gorm:"size:255;not null"                   bson:"password"        json:"-"` // bcrypt hash
	Phone           string    `gorm:"size:20"                             bson:"phone,omitempty" json:"phone,omitempty"`
	Address         string    `gorm:"type:text"                           bson:"address,omitempty" json:"address,omitempty"`
	Role            string    `gorm:"size:20;not null;default:user;index" bson:"role"            json:"role"`
	IsEmailVerified bool      `gorm:"not null;default:false"              bson:"isEmailVerified" json:"isEmailVerified"`
	CreatedAt       time.Time `gorm:"index"                               bson:"createdAt"       json:"createdAt"`
	UpdatedAt       time.Time `                                           bson:"updatedAt"       json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
