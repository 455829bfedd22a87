package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"notes_nest/model"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitTokens("test-secret-key", 30, 7)
	os.Exit(m.Run())
}

// newTestRouter 完整路由 + 内存数据库，不接 Redis
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, utils.Migrate(db))

	r := gin.New()
	RegisterRoutes(r, db, nil, 10)
	return r, db
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func jsonRequest(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// registerAndLogin 注册一个用户并登录，返回 access token 和用户 ID
func registerAndLogin(t *testing.T, r *gin.Engine, username string) (string, uint) {
	t.Helper()

	w := jsonRequest(r, "POST", "/api/v1/users", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"name":     username,
		"password": "Str0ng!Pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user model.User
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &user))

	form := url.Values{}
	form.Set("username", username+"@example.com")
	form.Set("password", "Str0ng!Pass")
	req := httptest.NewRequest("POST", "/api/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	lw := httptest.NewRecorder()
	r.ServeHTTP(lw, req)
	require.Equal(t, http.StatusOK, lw.Code, lw.Body.String())

	var tokens model.TokenResponse
	env = decodeEnvelope(t, lw)
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	require.NotEmpty(t, tokens.AccessToken)

	return tokens.AccessToken, user.ID
}

func makeAdmin(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", userID).
		Update("role", model.RoleAdmin).Error)
}

// ============================================
// 注册 / 登录全链路
// ============================================

// TestRegisterLoginFlow 注册 → 登录 → 携 token 访问自己的资料
func TestRegisterLoginFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	token, userID := registerAndLogin(t, r, "alice")

	w := jsonRequest(r, "GET", "/api/v1/users/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user model.User
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "alice", user.Username)
	// 密码散列绝不外泄
	assert.NotContains(t, w.Body.String(), "hashed_password")
}

// TestLogin_WrongPassword 错误凭据 401
func TestLogin_WrongPassword(t *testing.T) {
	r, _ := newTestRouter(t)
	registerAndLogin(t, r, "alice")

	form := url.Values{}
	form.Set("username", "alice@example.com")
	form.Set("password", "wrong")
	req := httptest.NewRequest("POST", "/api/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect email or password")
}

// TestRegister_WeakPassword 弱密码 422
func TestRegister_WeakPassword(t *testing.T) {
	r, _ := newTestRouter(t)

	w := jsonRequest(r, "POST", "/api/v1/users", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"name":     "alice",
		"password": "weak",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// ============================================
// 好友关系全链路
// ============================================

// TestFriendshipFlow 请求 → 接受 → 状态查询
//
// 验证闭环：
// 1. friendship-status 返回 {user_id, friendship_status, are_friends}
// 2. 接受后双方查询结果一致
func TestFriendshipFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	tokenA, idA := registerAndLogin(t, r, "alice")
	tokenB, idB := registerAndLogin(t, r, "bob")

	// 初始状态 none
	w := jsonRequest(r, "GET", "/api/v1/friendship-status/2", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		UserID           uint   `json:"user_id"`
		FriendshipStatus string `json:"friendship_status"`
		AreFriends       bool   `json:"are_friends"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, idB, status.UserID)
	assert.Equal(t, "none", status.FriendshipStatus)
	assert.False(t, status.AreFriends)

	// A → B 发请求
	w = jsonRequest(r, "POST", "/api/v1/friend-requests", tokenA, gin.H{"addressee_id": idB})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var friendship model.Friendship
	env = decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &friendship))
	assert.Equal(t, model.FriendshipPending, friendship.Status)

	// B 接受
	w = jsonRequest(r, "POST", "/api/v1/friend-requests/1/respond", tokenB, gin.H{"action": "accept"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 双向状态 accepted
	for _, probe := range []struct {
		token string
		other uint
	}{{tokenA, idB}, {tokenB, idA}} {
		w = jsonRequest(r, "GET", "/api/v1/friendship-status/"+itoa(probe.other), probe.token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		env = decodeEnvelope(t, w)
		require.NoError(t, json.Unmarshal(env.Data, &status))
		assert.Equal(t, "accepted", status.FriendshipStatus)
		assert.True(t, status.AreFriends)
	}
}

// TestFriendRequest_DuplicatePending 重复请求 422
func TestFriendRequest_DuplicatePending(t *testing.T) {
	r, _ := newTestRouter(t)

	tokenA, _ := registerAndLogin(t, r, "alice")
	_, idB := registerAndLogin(t, r, "bob")

	w := jsonRequest(r, "POST", "/api/v1/friend-requests", tokenA, gin.H{"addressee_id": idB})
	require.Equal(t, http.StatusCreated, w.Code)

	w = jsonRequest(r, "POST", "/api/v1/friend-requests", tokenA, gin.H{"addressee_id": idB})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Friend request already pending")
}

// ============================================
// 笔记全链路
// ============================================

// TestNoteFlow 创建时去空白，详情带作者列表
func TestNoteFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	token, userID := registerAndLogin(t, r, "alice")

	w := jsonRequest(r, "POST", "/api/v1/notes", token, gin.H{
		"title":   "  Hi  ",
		"content": "first note body",
		"privacy": "private",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var note model.NoteRead
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &note))
	assert.Equal(t, "Hi", note.Title)

	w = jsonRequest(r, "GET", "/api/v1/notes/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &note))
	require.Len(t, note.Authors, 1)
	assert.Equal(t, userID, note.Authors[0].ID)
}

// TestCreateNote_EmptyTitle 空标题 422
func TestCreateNote_EmptyTitle(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := registerAndLogin(t, r, "alice")

	w := jsonRequest(r, "POST", "/api/v1/notes", token, gin.H{
		"title":   "   ",
		"content": "body",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// TestPrivateNote_Visibility 私有笔记对陌生人和匿名 403，对管理员可见
func TestPrivateNote_Visibility(t *testing.T) {
	r, db := newTestRouter(t)

	tokenA, _ := registerAndLogin(t, r, "alice")
	tokenB, _ := registerAndLogin(t, r, "bob")
	tokenAdmin, adminID := registerAndLogin(t, r, "root")
	makeAdmin(t, db, adminID)

	w := jsonRequest(r, "POST", "/api/v1/notes", tokenA, gin.H{
		"title":   "secret",
		"content": "body",
		"privacy": "private",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// 作者可见
	w = jsonRequest(r, "GET", "/api/v1/notes/1", tokenA, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 陌生人 403
	w = jsonRequest(r, "GET", "/api/v1/notes/1", tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 匿名 403
	w = jsonRequest(r, "GET", "/api/v1/notes/1", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 管理员可见
	w = jsonRequest(r, "GET", "/api/v1/notes/1", tokenAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestListNotes_Anonymous 匿名列表只返回公开笔记且 total 一致
func TestListNotes_Anonymous(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := registerAndLogin(t, r, "alice")

	for _, n := range []gin.H{
		{"title": "pub", "content": "body", "privacy": "public"},
		{"title": "priv", "content": "body", "privacy": "private"},
	} {
		w := jsonRequest(r, "POST", "/api/v1/notes", token, n)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := jsonRequest(r, "GET", "/api/v1/notes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list model.NotesListResponse
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Notes, 1)
	assert.Equal(t, "pub", list.Notes[0].Title)
}

// TestAddAuthor_HTTP 添加作者后对方可编辑；重复添加 409
func TestAddAuthor_HTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	tokenA, _ := registerAndLogin(t, r, "alice")
	tokenB, idB := registerAndLogin(t, r, "bob")

	w := jsonRequest(r, "POST", "/api/v1/notes", tokenA, gin.H{
		"title":   "shared",
		"content": "body",
		"privacy": "private",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// B 还不是作者，改不了
	w = jsonRequest(r, "PUT", "/api/v1/notes/1", tokenB, gin.H{"title": "hacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = jsonRequest(r, "POST", "/api/v1/notes/1/authors", tokenA, gin.H{"user_id": idB})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = jsonRequest(r, "POST", "/api/v1/notes/1/authors", tokenA, gin.H{"user_id": idB})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = jsonRequest(r, "PUT", "/api/v1/notes/1", tokenB, gin.H{"title": "revised"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestDeleteUser_RequiresAdmin 普通用户删用户 403
func TestDeleteUser_RequiresAdmin(t *testing.T) {
	r, db := newTestRouter(t)

	tokenA, _ := registerAndLogin(t, r, "alice")
	tokenAdmin, adminID := registerAndLogin(t, r, "root")
	makeAdmin(t, db, adminID)

	w := jsonRequest(r, "DELETE", "/api/v1/users/1", tokenA, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = jsonRequest(r, "DELETE", "/api/v1/users/1", tokenAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestRefreshFlow refresh token 换新令牌，access token 顶替被拒
func TestRefreshFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	registerAndLogin(t, r, "alice")

	form := url.Values{}
	form.Set("username", "alice@example.com")
	form.Set("password", "Str0ng!Pass")
	req := httptest.NewRequest("POST", "/api/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	lw := httptest.NewRecorder()
	r.ServeHTTP(lw, req)
	require.Equal(t, http.StatusOK, lw.Code)

	var tokens model.TokenResponse
	env := decodeEnvelope(t, lw)
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	w := jsonRequest(r, "POST", "/api/v1/token/refresh", "", gin.H{"refresh_token": tokens.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = jsonRequest(r, "POST", "/api/v1/token/refresh", "", gin.H{"refresh_token": tokens.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
