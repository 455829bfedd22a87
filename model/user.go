package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// UserRole 用户角色
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// JSONMap 以 JSON 存储的键值字段（social_links / address）
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported type for JSONMap")
	}
}

// User 用户表
type User struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Username string  `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Email    string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name     string  `json:"name" gorm:"type:varchar(100);not null"`
	Age      *int    `json:"age,omitempty"`
	Bio      *string `json:"bio,omitempty"`

	HashedPassword string   `json:"-" gorm:"type:varchar(255);not null"`
	Role           UserRole `json:"role" gorm:"type:varchar(10);not null;default:user"`

	IsActive               bool    `json:"is_active" gorm:"not null;default:true"`
	IsEmailVerified        bool    `json:"is_email_verified" gorm:"not null;default:false"`
	EmailVerificationToken *string `json:"-" gorm:"type:varchar(64)"`

	SocialLinks JSONMap `json:"social_links,omitempty" gorm:"type:jsonb"`
	Address     JSONMap `json:"address,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt *time.Time `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// UserCreate 注册请求
type UserCreate struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Name     string  `json:"name" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Age      *int    `json:"age"`
	Bio      *string `json:"bio"`
}

// UserUpdate 资料更新请求（只允许白名单字段）
type UserUpdate struct {
	Name        *string `json:"name"`
	Age         *int    `json:"age"`
	Bio         *string `json:"bio"`
	Email       *string `json:"email"`
	Username    *string `json:"username"`
	SocialLinks JSONMap `json:"social_links"`
	Address     JSONMap `json:"address"`
}

// RoleUpdate 角色变更请求
type RoleUpdate struct {
	Role UserRole `json:"role" binding:"required"`
}

// TokenResponse 登录/刷新返回的令牌对
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenRefresh 刷新令牌请求
type TokenRefresh struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
