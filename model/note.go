package model

import (
	"time"
)

// NotePrivacy 笔记可见性
type NotePrivacy string

const (
	NotePrivate NotePrivacy = "private"
	NotePublic  NotePrivacy = "public"
)

// Note 笔记表
type Note struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	Title           string      `json:"title" gorm:"type:varchar(255);not null"`
	Content         string      `json:"content" gorm:"type:text;not null"`
	Privacy         NotePrivacy `json:"privacy" gorm:"type:varchar(10);not null;default:private"`
	CreatedByUserID uint        `json:"created_by_user_id" gorm:"not null;index"`
	CreatedAt       time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt       *time.Time  `json:"-" gorm:"index"`
}

func (Note) TableName() string {
	return "notes"
}

// NoteAuthor 笔记-作者关联表，复合主键保证同一用户不会重复成为作者
type NoteAuthor struct {
	NoteID        uint      `json:"note_id" gorm:"primaryKey"`
	UserID        uint      `json:"user_id" gorm:"primaryKey"`
	AddedByUserID uint      `json:"added_by_user_id" gorm:"not null"`
	AddedAt       time.Time `json:"added_at" gorm:"autoCreateTime"`
}

func (NoteAuthor) TableName() string {
	return "note_authors"
}

// NoteCreate 创建笔记请求
type NoteCreate struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Privacy NotePrivacy `json:"privacy"`
}

// NoteUpdate 更新笔记请求（部分更新）
type NoteUpdate struct {
	Title   *string      `json:"title"`
	Content *string      `json:"content"`
	Privacy *NotePrivacy `json:"privacy"`
}

// AuthorInfo 笔记作者信息
type AuthorInfo struct {
	ID       uint      `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	AddedAt  time.Time `json:"added_at"`
}

// NoteRead 笔记详情（含完整内容和按加入时间排序的作者列表）
type NoteRead struct {
	ID              uint         `json:"id"`
	Title           string       `json:"title"`
	Content         string       `json:"content"`
	Privacy         NotePrivacy  `json:"privacy"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	CreatedByUserID uint         `json:"created_by_user_id"`
	Authors         []AuthorInfo `json:"authors"`
}

// NoteListItem 列表条目：不带完整内容，只带 100 字符预览
type NoteListItem struct {
	ID              uint        `json:"id"`
	Title           string      `json:"title"`
	Privacy         NotePrivacy `json:"privacy"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CreatedByUserID uint        `json:"created_by_user_id"`
	AuthorsCount    int64       `json:"authors_count"`
	ContentPreview  string      `json:"content_preview"`
}

// NotesListResponse 笔记分页列表
type NotesListResponse struct {
	Notes   []NoteListItem `json:"notes"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	HasNext bool           `json:"has_next"`
	HasPrev bool           `json:"has_prev"`
}

// AddAuthorRequest 添加作者请求
type AddAuthorRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// RemoveAuthorRequest 移除作者请求
type RemoveAuthorRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// TransferOwnershipRequest 转移所有权请求
type TransferOwnershipRequest struct {
	NewCreatorID uint `json:"new_creator_id" binding:"required"`
}
