package service

import (
	"errors"
	"strings"
	"time"

	"notes_nest/model"

	"gorm.io/gorm"
)

type FriendshipService struct {
	db *gorm.DB
}

func NewFriendshipService(db *gorm.DB) *FriendshipService {
	return &FriendshipService{db: db}
}

// SendRequest 发送好友请求
// 校验和插入放在同一事务里，配合数据库的无序对唯一索引防止并发重复插入
func (s *FriendshipService) SendRequest(requesterID, addresseeID uint) (*model.Friendship, error) {
	if requesterID == addresseeID {
		return nil, NewValidationError("Cannot send friend request to yourself")
	}

	if err := s.ensureUserExists(requesterID, "Requester user not found"); err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(addresseeID, "Addressee user not found"); err != nil {
		return nil, err
	}

	var friendship *model.Friendship
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := findBetween(tx, requesterID, addresseeID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case model.FriendshipPending:
				return NewValidationError("Friend request already pending")
			case model.FriendshipAccepted:
				return NewValidationError("Users are already friends")
			case model.FriendshipBlocked:
				return NewValidationError("Cannot send friend request to blocked user")
			case model.FriendshipRejected:
				return NewValidationError("Friend request was previously rejected")
			}
		}

		friendship = &model.Friendship{
			RequesterID: requesterID,
			AddresseeID: addresseeID,
			Status:      model.FriendshipPending,
		}
		if err := tx.Create(friendship).Error; err != nil {
			// 并发重复插入会撞上唯一索引，归并为同一个校验错误
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return NewValidationError("Friend request already pending")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return friendship, nil
}

// Respond 响应好友请求，只有 addressee 可以操作 pending 状态的请求
func (s *FriendshipService) Respond(friendshipID uint, action string, actorID uint) (*model.Friendship, error) {
	var friendship model.Friendship
	err := s.db.First(&friendship, friendshipID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Friendship not found")
	}
	if err != nil {
		return nil, err
	}

	if friendship.AddresseeID != actorID {
		return nil, NewPermissionError("You can only respond to friend requests sent to you")
	}
	if friendship.Status != model.FriendshipPending {
		return nil, NewValidationError("Can only respond to pending friend requests")
	}

	switch strings.ToLower(action) {
	case "accept":
		friendship.Status = model.FriendshipAccepted
	case "reject":
		friendship.Status = model.FriendshipRejected
	case "block":
		friendship.Status = model.FriendshipBlocked
	default:
		return nil, NewValidationError("Invalid action. Must be 'accept', 'reject', or 'block'")
	}

	friendship.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(&friendship).Error; err != nil {
		return nil, err
	}
	return &friendship, nil
}

// Remove 删除好友关系（只允许 accepted 状态，方向不限）
func (s *FriendshipService) Remove(userID, friendID uint) error {
	friendship, err := findBetween(s.db, userID, friendID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return NewNotFoundError("Friendship not found")
	}
	if friendship.Status != model.FriendshipAccepted {
		return NewValidationError("Users are not friends")
	}
	return s.db.Delete(friendship).Error
}

// Cancel 取消自己发出的 pending 请求（方向必须完全匹配）
func (s *FriendshipService) Cancel(requesterID, addresseeID uint) error {
	result := s.db.Where(
		"requester_id = ? AND addressee_id = ? AND status = ?",
		requesterID, addresseeID, model.FriendshipPending,
	).Delete(&model.Friendship{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("No pending friend request found")
	}
	return nil
}

// ListFriends 分页返回 accepted 关系（方向不限）及对方用户的公开字段
func (s *FriendshipService) ListFriends(userID uint, page, perPage int) (*model.FriendsList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage

	var total int64
	err := s.db.Model(&model.Friendship{}).
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
			model.FriendshipAccepted, userID, userID).
		Count(&total).Error
	if err != nil {
		return nil, err
	}

	var friendships []model.Friendship
	err = s.db.Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
		model.FriendshipAccepted, userID, userID).
		Order("created_at DESC").
		Offset(offset).Limit(perPage).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	friends := make([]model.FriendRead, 0, len(friendships))
	for _, f := range friendships {
		otherID := f.RequesterID
		if otherID == userID {
			otherID = f.AddresseeID
		}

		var other model.User
		if err := s.db.First(&other, otherID).Error; err != nil {
			return nil, err
		}

		friends = append(friends, model.FriendRead{
			ID:               other.ID,
			Username:         other.Username,
			Name:             other.Name,
			Email:            other.Email,
			IsActive:         other.IsActive,
			FriendshipStatus: f.Status,
			FriendshipSince:  f.CreatedAt,
		})
	}

	return &model.FriendsList{
		Friends: friends,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		HasNext: int64(page*perPage) < total,
		HasPrev: page > 1,
	}, nil
}

// PendingRequests 收到的 pending 请求
func (s *FriendshipService) PendingRequests(userID uint) ([]model.Friendship, error) {
	var friendships []model.Friendship
	err := s.db.Where("addressee_id = ? AND status = ?", userID, model.FriendshipPending).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// SentRequests 发出的 pending 请求
func (s *FriendshipService) SentRequests(userID uint) ([]model.Friendship, error) {
	var friendships []model.Friendship
	err := s.db.Where("requester_id = ? AND status = ?", userID, model.FriendshipPending).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// Status 两个用户之间的关系状态，没有记录返回 "none"
func (s *FriendshipService) Status(userA, userB uint) (string, error) {
	friendship, err := findBetween(s.db, userA, userB)
	if err != nil {
		return "", err
	}
	if friendship == nil {
		return "none", nil
	}
	return string(friendship.Status), nil
}

// findBetween 查找两个用户之间的关系记录（方向不限），没有返回 nil
func findBetween(db *gorm.DB, userA, userB uint) (*model.Friendship, error) {
	var friendship model.Friendship
	err := db.Where(
		"(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
		userA, userB, userB, userA,
	).First(&friendship).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (s *FriendshipService) ensureUserExists(userID uint, message string) error {
	var count int64
	err := s.db.Model(&model.User{}).
		Where("id = ? AND deleted_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return NewNotFoundError(message)
	}
	return nil
}
