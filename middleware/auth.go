package middleware

import (
	"context"
	"strings"

	"notes_nest/model"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type routeKey struct {
	Method  string
	Pattern string
}

// 公开路由白名单：完全跳过认证
var publicRoutes = []routeKey{
	{"POST", "/api/v1/users"},
	{"POST", "/api/v1/token"},
	{"POST", "/api/v1/token/refresh"},
	{"POST", "/api/v1/users/verify-email/{token}"},
}

// 可选认证路由：带有效 token 则解析身份，否则按匿名处理
// 公开笔记允许匿名读取，但已登录用户要能看到自己的私有笔记
var optionalAuthRoutes = []routeKey{
	{"GET", "/api/v1/notes"},
	{"GET", "/api/v1/notes/{id}"},
}

// AuthMiddleware 认证中间件
// 白名单之外的请求必须携带有效的 access token，且对应用户处于激活状态。
// 任何校验失败一律 401，绝不默认放行
func AuthMiddleware(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		if matchRoutes(publicRoutes, method, path) {
			c.Next()
			return
		}

		if matchRoutes(optionalAuthRoutes, method, path) {
			// 尽力解析身份，失败按匿名处理
			if user, err := resolveUser(c, db, rdb); err == nil {
				c.Set("user", user)
				c.Set("user_id", user.ID)
			}
			c.Next()
			return
		}

		user, err := resolveUser(c, db, rdb)
		if err != nil {
			utils.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件，必须在 AuthMiddleware 之后
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetCurrentUser(c)
		if !exists {
			utils.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}
		if user.Role != model.RoleAdmin {
			utils.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCurrentUser 从上下文获取当前用户
func GetCurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

type authError string

func (e authError) Error() string { return string(e) }

// resolveUser 提取并校验 bearer token，返回对应的激活用户
func resolveUser(c *gin.Context, db *gorm.DB, rdb *redis.Client) (*model.User, error) {
	tokenString, err := extractBearer(c)
	if err != nil {
		return nil, err
	}

	claims, err := utils.VerifyToken(tokenString, utils.TokenTypeAccess)
	if err != nil {
		return nil, authError("Invalid or expired token")
	}

	// 登出过的 token 在黑名单里。Redis 故障时降级放行，只记日志
	if rdb != nil {
		blacklisted, err := rdb.Exists(context.Background(), "blacklist:"+claims.ID).Result()
		if err != nil {
			zap.L().Warn("blacklist check failed", zap.Error(err))
		} else if blacklisted > 0 {
			return nil, authError("Invalid or expired token")
		}
	}

	var user model.User
	err = db.Where("id = ? AND deleted_at IS NULL", claims.UserID).First(&user).Error
	if err != nil || !user.IsActive {
		return nil, authError("User account inactive or not found")
	}
	return &user, nil
}

func extractBearer(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", authError("Missing authentication token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", authError("Invalid authorization header")
	}
	return parts[1], nil
}

func matchRoutes(routes []routeKey, method, path string) bool {
	for _, route := range routes {
		if route.Method == method && matchPattern(path, route.Pattern) {
			return true
		}
	}
	return false
}

// matchPattern 逐段匹配路径，{param} 段匹配任意非空段
func matchPattern(path, pattern string) bool {
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	patternSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(pathSegs) != len(patternSegs) {
		return false
	}
	for i, seg := range patternSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if pathSegs[i] == "" {
				return false
			}
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}
	return true
}
