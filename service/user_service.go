package service

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"notes_nest/model"
	"notes_nest/utils"

	"gorm.io/gorm"
)

const passwordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Create 注册用户，创建时生成一次性邮箱验证令牌
func (s *UserService) Create(req *model.UserCreate) (*model.User, error) {
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.validateUniqueEmail(req.Email, 0); err != nil {
		return nil, err
	}
	if err := s.validateUniqueUsername(req.Username, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	verificationToken := utils.NewVerificationToken()
	user := &model.User{
		Username:               req.Username,
		Email:                  req.Email,
		Name:                   req.Name,
		Age:                    req.Age,
		Bio:                    req.Bio,
		HashedPassword:         hashed,
		Role:                   model.RoleUser,
		IsActive:               true,
		EmailVerificationToken: &verificationToken,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID 查询用户，默认排除软删除
func (s *UserService) GetByID(userID uint) (*model.User, error) {
	return s.getUser(userID, false)
}

// Get 查询用户并做访问控制：非管理员只能看自己
func (s *UserService) Get(userID uint, actor *model.User) (*model.User, error) {
	if err := checkUserAccess(userID, actor, false); err != nil {
		return nil, err
	}
	return s.getUser(userID, false)
}

func (s *UserService) getUser(userID uint, includeDeleted bool) (*model.User, error) {
	query := s.db.Where("id = ?", userID)
	if !includeDeleted {
		query = query.Where("deleted_at IS NULL")
	}

	var user model.User
	err := query.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List 分页列出用户
func (s *UserService) List(skip, limit int) ([]model.User, error) {
	var users []model.User
	err := s.db.Where("deleted_at IS NULL").
		Order("id").
		Offset(skip).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Update 更新资料，只应用白名单字段；非管理员只能改自己
func (s *UserService) Update(userID uint, req *model.UserUpdate, actor *model.User) (*model.User, error) {
	if err := checkUserAccess(userID, actor, false); err != nil {
		return nil, err
	}

	user, err := s.getUser(userID, false)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		if err := s.validateUniqueEmail(*req.Email, userID); err != nil {
			return nil, err
		}
		user.Email = *req.Email
	}
	if req.Username != nil && *req.Username != user.Username {
		if err := s.validateUniqueUsername(*req.Username, userID); err != nil {
			return nil, err
		}
		user.Username = *req.Username
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Age != nil {
		user.Age = req.Age
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.SocialLinks != nil {
		user.SocialLinks = req.SocialLinks
	}
	if req.Address != nil {
		user.Address = req.Address
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Delete 删除用户（管理员限定）
// 软删除：打标记并停用账号。永久删除：连带删除好友关系，
// 仍是笔记作者时拒绝删除（外键策略，见 DESIGN.md）
func (s *UserService) Delete(userID uint, actor *model.User, permanent bool) error {
	if err := checkUserAccess(userID, actor, true); err != nil {
		return err
	}

	user, err := s.getUser(userID, true)
	if err != nil {
		return err
	}

	if !permanent {
		now := time.Now().UTC()
		user.DeletedAt = &now
		user.IsActive = false
		return s.db.Save(user).Error
	}

	var authorCount int64
	if err := s.db.Model(&model.NoteAuthor{}).Where("user_id = ?", userID).Count(&authorCount).Error; err != nil {
		return err
	}
	if authorCount > 0 {
		return NewValidationError("Cannot permanently delete a user who still authors notes")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("requester_id = ? OR addressee_id = ?", userID, userID).
			Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

// ChangeRole 变更角色（管理员限定）
func (s *UserService) ChangeRole(userID uint, role model.UserRole, actor *model.User) (*model.User, error) {
	if err := checkUserAccess(userID, actor, true); err != nil {
		return nil, err
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, NewValidationError("Invalid role")
	}

	user, err := s.getUser(userID, false)
	if err != nil {
		return nil, err
	}

	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail 一次性令牌验证邮箱，验证后清空令牌
func (s *UserService) VerifyEmail(token string) error {
	var user model.User
	err := s.db.Where("email_verification_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewValidationError("Invalid verification token")
	}
	if err != nil {
		return err
	}

	user.IsEmailVerified = true
	user.EmailVerificationToken = nil
	return s.db.Save(&user).Error
}

// checkUserAccess 访问控制：requireAdmin 时必须是管理员，
// 否则本人或管理员均可
func checkUserAccess(targetUserID uint, actor *model.User, requireAdmin bool) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if requireAdmin {
		return NewPermissionError("Admin access required")
	}
	if targetUserID != actor.ID {
		return NewPermissionError("You can only access your own profile")
	}
	return nil
}

func (s *UserService) validateUniqueEmail(email string, excludeUserID uint) error {
	query := s.db.Model(&model.User{}).Where("email = ?", email)
	if excludeUserID != 0 {
		query = query.Where("id <> ?", excludeUserID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("Email already registered")
	}
	return nil
}

func (s *UserService) validateUniqueUsername(username string, excludeUserID uint) error {
	query := s.db.Model(&model.User{}).Where("username = ?", username)
	if excludeUserID != 0 {
		query = query.Where("id <> ?", excludeUserID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("Username already taken")
	}
	return nil
}

// validatePassword 密码策略：至少 8 位，必须含大写、小写、数字和特殊字符
func validatePassword(password string) error {
	if len(password) < 8 {
		return NewValidationError("Password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
		if strings.ContainsRune(passwordSymbols, c) {
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return NewValidationError("Password must contain at least one uppercase letter")
	case !hasLower:
		return NewValidationError("Password must contain at least one lowercase letter")
	case !hasDigit:
		return NewValidationError("Password must contain at least one number")
	case !hasSymbol:
		return NewValidationError("Password must contain at least one special character")
	}
	return nil
}
