package service

import (
	"testing"

	"report-go/internal/config"
	"report-go/internal/models"
	"report-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserService(t *testing.T) *UserService {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{}
	cfg.Admin.Name = "admin"
	cfg.Admin.Email = "admin@localhost"
	cfg.Admin.Password = "admin-secret"
	return NewUserService(repository.NewUserRepository(db), cfg)
}

func TestUserRegister(t *testing.T) {
	svc := setupUserService(t)

	user, err := svc.Register("张三", "zhangsan@example.com", "secret123")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.False(t, user.RegisteredAt.IsZero())
}

func TestUserRegisterDuplicateEmail(t *testing.T) {
	svc := setupUserService(t)

	_, err := svc.Register("张三", "dup@example.com", "secret123")
	require.NoError(t, err)

	// 第二次注册同一邮箱冲突
	_, err = svc.Register("李四", "dup@example.com", "other456")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRegisterValidation(t *testing.T) {
	svc := setupUserService(t)

	_, err := svc.Register("", "a@b.com", "secret123")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register("名字", "a@b.com", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserAuthenticate(t *testing.T) {
	svc := setupUserService(t)

	registered, err := svc.Register("张三", "auth@example.com", "secret123")
	require.NoError(t, err)

	// 正确凭据返回用户
	user, err := svc.Authenticate("auth@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, registered.ID, user.ID)

	// 密码错误返回nil,不返回错误
	user, err = svc.Authenticate("auth@example.com", "wrong")
	require.NoError(t, err)
	assert.Nil(t, user)

	// 邮箱不存在同样返回nil,不暴露哪个因素错了
	user, err = svc.Authenticate("nobody@example.com", "secret123")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserUpdate(t *testing.T) {
	svc := setupUserService(t)

	user, err := svc.Register("张三", "upd@example.com", "secret123")
	require.NoError(t, err)
	oldHash := user.PasswordHash

	// 不提供新密码时哈希不变
	updated, err := svc.Update(user.ID, "张三丰", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "张三丰", updated.Name)
	assert.Equal(t, oldHash, updated.PasswordHash)

	// 提供新密码时重新哈希
	updated, err = svc.Update(user.ID, "", "", "", "newsecret")
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, updated.PasswordHash)

	authed, err := svc.Authenticate("upd@example.com", "newsecret")
	require.NoError(t, err)
	require.NotNil(t, authed)
}

func TestUserUpdateNotFound(t *testing.T) {
	svc := setupUserService(t)

	_, err := svc.Update(9999, "名字", "", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInitAdmin(t *testing.T) {
	svc := setupUserService(t)

	require.NoError(t, svc.InitAdmin())

	admin, err := svc.Authenticate("admin@localhost", "admin-secret")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin())

	// 重复初始化是幂等的
	require.NoError(t, svc.InitAdmin())
}
