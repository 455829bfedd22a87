package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
)

var ErrInvalidToken = errors.New("invalid token")

// InitTokens 初始化签名密钥和有效期
func InitTokens(secret string, accessMinutes, refreshDays int) {
	jwtSecret = []byte(secret)
	accessTTL = time.Duration(accessMinutes) * time.Minute
	refreshTTL = time.Duration(refreshDays) * 24 * time.Hour
}

// TokenClaims JWT 声明，type 区分 access / refresh
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// CreateAccessToken 签发 access token，jti 用于登出黑名单
func CreateAccessToken(userID uint) (string, error) {
	return createToken(userID, TokenTypeAccess, accessTTL)
}

// CreateRefreshToken 签发 refresh token
func CreateRefreshToken(userID uint) (string, error) {
	return createToken(userID, TokenTypeRefresh, refreshTTL)
}

func createToken(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// VerifyToken 验证签名、有效期和类型，任何失败都返回错误（fail-closed）
func VerifyToken(tokenString, tokenType string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessTokenTTL access token 有效期（黑名单用）
func AccessTokenTTL() time.Duration {
	return accessTTL
}

// HashPassword bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验明文密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewVerificationToken 生成邮箱验证令牌
func NewVerificationToken() string {
	return uuid.NewString()
}
