package service

import (
	"testing"

	"notes_nest/model"
	"notes_nest/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// 用户 - 注册 / 密码策略
// ============================================

// TestCreateUser 注册成功，返回完整资料并生成验证令牌
func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	user, err := svc.Create(&model.UserCreate{
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "Str0ng!Pass",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsEmailVerified)
	require.NotNil(t, user.EmailVerificationToken)
	assert.NotEmpty(t, *user.EmailVerificationToken)
	// 密码不落原文
	assert.NotEqual(t, "Str0ng!Pass", user.HashedPassword)
	assert.True(t, utils.CheckPassword("Str0ng!Pass", user.HashedPassword))
}

// TestCreateUser_PasswordPolicy 逐项检查密码策略
func TestCreateUser_PasswordPolicy(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	cases := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"too short", "Ab1!", "at least 8 characters"},
		{"no uppercase", "abcdef1!", "uppercase"},
		{"no lowercase", "ABCDEF1!", "lowercase"},
		{"no digit", "Abcdefg!", "number"},
		{"no symbol", "Abcdefg1", "special character"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(&model.UserCreate{
				Username: "u_" + tc.name,
				Email:    tc.name + "@example.com",
				Name:     "u",
				Password: tc.password,
			})
			require.Error(t, err)
			assert.IsType(t, &ValidationError{}, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}

	_, err := svc.Create(&model.UserCreate{
		Username: "ok",
		Email:    "ok@example.com",
		Name:     "ok",
		Password: "Abcdef1!",
	})
	assert.NoError(t, err)
}

// TestCreateUser_Duplicates 邮箱和用户名唯一
func TestCreateUser_Duplicates(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	createTestUser(t, db, "alice", model.RoleUser)

	_, err := svc.Create(&model.UserCreate{
		Username: "alice2",
		Email:    "alice@example.com",
		Name:     "a",
		Password: "Str0ng!Pass",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already registered")

	_, err = svc.Create(&model.UserCreate{
		Username: "alice",
		Email:    "other@example.com",
		Name:     "a",
		Password: "Str0ng!Pass",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Username already taken")
}

// ============================================
// 用户 - 查询 / 更新
// ============================================

// TestGetUser_AccessControl 非管理员只能看自己
func TestGetUser_AccessControl(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	bob := createTestUser(t, db, "bob", model.RoleUser)
	admin := createTestUser(t, db, "root", model.RoleAdmin)

	got, err := svc.Get(alice.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = svc.Get(alice.ID, bob)
	assert.IsType(t, &PermissionError{}, err)

	_, err = svc.Get(alice.ID, admin)
	assert.NoError(t, err)
}

// TestUpdateUser 白名单字段更新，唯一性校验排除自己
func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	createTestUser(t, db, "bob", model.RoleUser)

	// 改回自己当前的 email 不应触发唯一性冲突
	sameEmail := "alice@example.com"
	newName := "Alice Liddell"
	updated, err := svc.Update(alice.ID, &model.UserUpdate{Email: &sameEmail, Name: &newName}, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.Name)

	// 改成别人的 email 冲突
	taken := "bob@example.com"
	_, err = svc.Update(alice.ID, &model.UserUpdate{Email: &taken}, alice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already registered")

	// 改别人的资料被拒
	_, err = svc.Update(alice.ID, &model.UserUpdate{Name: &newName}, createTestUser(t, db, "carol", model.RoleUser))
	assert.IsType(t, &PermissionError{}, err)

	// JSON 字段
	links := model.JSONMap{"github": "https://github.com/alice"}
	updated, err = svc.Update(alice.ID, &model.UserUpdate{SocialLinks: links}, alice)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/alice", updated.SocialLinks["github"])
}

// ============================================
// 用户 - 删除 / 角色 / 邮箱验证
// ============================================

// TestDeleteUser_Soft 软删除打标记并停用，之后查不到
func TestDeleteUser_Soft(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	admin := createTestUser(t, db, "root", model.RoleAdmin)

	// 非管理员不能删
	err := svc.Delete(alice.ID, alice, false)
	assert.IsType(t, &PermissionError{}, err)

	require.NoError(t, svc.Delete(alice.ID, admin, false))

	_, err = svc.GetByID(alice.ID)
	assert.IsType(t, &NotFoundError{}, err)

	var raw model.User
	require.NoError(t, db.Where("id = ?", alice.ID).First(&raw).Error)
	assert.NotNil(t, raw.DeletedAt)
	assert.False(t, raw.IsActive)
}

// TestDeleteUser_Permanent 永久删除连带清理好友关系；仍有笔记时拒绝
func TestDeleteUser_Permanent(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	noteSvc := NewNoteService(db)
	friendSvc := NewFriendshipService(db)

	alice := createTestUser(t, db, "alice", model.RoleUser)
	bob := createTestUser(t, db, "bob", model.RoleUser)
	admin := createTestUser(t, db, "root", model.RoleAdmin)

	_, err := friendSvc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	note := createTestNote(t, noteSvc, alice, "keepsake", model.NotePrivate)

	// 还是作者，拒绝永久删除
	err = svc.Delete(alice.ID, admin, true)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)

	require.NoError(t, noteSvc.Delete(note.ID, true))
	require.NoError(t, svc.Delete(alice.ID, admin, true))

	var userCount, friendCount int64
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", alice.ID).Count(&userCount).Error)
	require.NoError(t, db.Model(&model.Friendship{}).Count(&friendCount).Error)
	assert.Equal(t, int64(0), userCount)
	assert.Equal(t, int64(0), friendCount)
}

// TestChangeRole 角色变更仅限管理员，且只接受合法角色
func TestChangeRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	alice := createTestUser(t, db, "alice", model.RoleUser)
	admin := createTestUser(t, db, "root", model.RoleAdmin)

	_, err := svc.ChangeRole(alice.ID, model.RoleAdmin, alice)
	assert.IsType(t, &PermissionError{}, err)

	_, err = svc.ChangeRole(alice.ID, model.UserRole("owner"), admin)
	assert.IsType(t, &ValidationError{}, err)

	updated, err := svc.ChangeRole(alice.ID, model.RoleAdmin, admin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
}

// TestVerifyEmail 令牌一次性有效
//
// 验证闭环：
// 1. 验证成功后 is_email_verified=true
// 2. 同一令牌再用一次失败
func TestVerifyEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	user, err := svc.Create(&model.UserCreate{
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "Str0ng!Pass",
	})
	require.NoError(t, err)
	token := *user.EmailVerificationToken

	require.NoError(t, svc.VerifyEmail(token))

	verified, err := svc.GetByID(user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)
	assert.Nil(t, verified.EmailVerificationToken)

	err = svc.VerifyEmail(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid verification token")
}
