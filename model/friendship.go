package model

import (
	"time"
)

// FriendshipStatus 好友关系状态
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipBlocked  FriendshipStatus = "blocked"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship 好友关系表
// 每对用户（不分方向）最多一条记录，唯一索引见 utils.InitDB
type Friendship struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	RequesterID uint             `json:"requester_id" gorm:"not null;index"`
	AddresseeID uint             `json:"addressee_id" gorm:"not null;index"`
	Status      FriendshipStatus `json:"status" gorm:"type:varchar(10);not null;default:pending"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Friendship) TableName() string {
	return "friendships"
}

// FriendRequestCreate 发送好友请求
type FriendRequestCreate struct {
	AddresseeID uint `json:"addressee_id" binding:"required"`
}

// FriendRequestRespond 响应好友请求（accept / reject / block）
type FriendRequestRespond struct {
	Action string `json:"action" binding:"required"`
}

// FriendRead 好友列表条目（对方用户的公开字段 + 关系信息）
type FriendRead struct {
	ID               uint             `json:"id"`
	Username         string           `json:"username"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	IsActive         bool             `json:"is_active"`
	FriendshipStatus FriendshipStatus `json:"friendship_status"`
	FriendshipSince  time.Time        `json:"friendship_since"`
}

// FriendsList 好友分页列表
type FriendsList struct {
	Friends []FriendRead `json:"friends"`
	Total   int64        `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	HasNext bool         `json:"has_next"`
	HasPrev bool         `json:"has_prev"`
}
