package service

import (
	"context"
	"errors"
	"time"

	"notes_nest/model"
	"notes_nest/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type AuthService struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// NewAuthServiceWithRedis rdb 用于登出黑名单，可为 nil（黑名单功能关闭）
func NewAuthServiceWithRedis(db *gorm.DB, rdb *redis.Client) *AuthService {
	return &AuthService{db: db, rdb: rdb}
}

// Login 邮箱+密码登录，返回令牌对
func (s *AuthService) Login(email, password string) (*model.TokenResponse, error) {
	var user model.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewAuthenticationError("Incorrect email or password")
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(password, user.HashedPassword) {
		return nil, NewAuthenticationError("Incorrect email or password")
	}

	if !user.IsActive {
		return nil, NewAuthenticationError("User account is disabled")
	}

	return s.createTokens(user.ID)
}

// Refresh 用 refresh token 换新令牌对
func (s *AuthService) Refresh(refreshToken string) (*model.TokenResponse, error) {
	claims, err := utils.VerifyToken(refreshToken, utils.TokenTypeRefresh)
	if err != nil {
		return nil, NewAuthenticationError("Invalid refresh token")
	}

	var user model.User
	err = s.db.Where("id = ? AND deleted_at IS NULL", claims.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.IsActive) {
		return nil, NewAuthenticationError("User is inactive or deleted")
	}
	if err != nil {
		return nil, err
	}

	return s.createTokens(user.ID)
}

// Logout 将 access token 的 jti 加入黑名单，到自然过期为止
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if s.rdb == nil {
		return nil
	}

	claims, err := utils.VerifyToken(accessToken, utils.TokenTypeAccess)
	if err != nil {
		return NewAuthenticationError("Invalid token")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, "blacklist:"+claims.ID, "1", ttl).Err()
}

func (s *AuthService) createTokens(userID uint) (*model.TokenResponse, error) {
	accessToken, err := utils.CreateAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := utils.CreateRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
