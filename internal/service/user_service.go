package service

import (
	"fmt"
	"strings"
	"time"

	"report-go/internal/config"
	"report-go/internal/models"
	"report-go/internal/repository"
	"report-go/internal/utils"
)

// UserService 用户服务
type UserService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

// NewUserService 创建用户服务
func NewUserService(userRepo *repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register 用户注册,Email重复返回ErrConflict
func (s *UserService) Register(name, email, password string) (*models.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: 姓名/邮箱/密码均为必填", ErrValidation)
	}

	// 插入前检查,唯一索引兜底并发注册
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("检查邮箱失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: 邮箱已被注册", ErrConflict)
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	return user, nil
}

// Authenticate 验证凭据
// 邮箱不存在或密码错误都返回(nil, nil),不暴露是哪个因素失败
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if err := utils.CheckPassword(password, user.PasswordHash); err != nil {
		return nil, nil
	}

	return user, nil
}

// GetByID 获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: 用户 %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return user, nil
}

// List 返回全部用户(管理员用)
func (s *UserService) List() ([]models.User, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("查询用户列表失败: %w", err)
	}
	return users, nil
}

// Update 更新用户,仅提供了新密码时才重新哈希
func (s *UserService) Update(id uint, name, email, role, newPassword string) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" && email != user.Email {
		exists, err := s.userRepo.ExistsByEmail(email)
		if err != nil {
			return nil, fmt.Errorf("检查邮箱失败: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: 邮箱已被注册", ErrConflict)
		}
		user.Email = email
	}
	if role != "" {
		user.Role = role
	}
	if newPassword != "" {
		hashedPassword, err := utils.HashPassword(newPassword)
		if err != nil {
			return nil, fmt.Errorf("密码哈希失败: %w", err)
		}
		user.PasswordHash = hashedPassword
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}

	return user, nil
}

// InitAdmin 初始化管理员账户
func (s *UserService) InitAdmin() error {
	admin, err := s.userRepo.GetAdmin()
	if err == nil && admin != nil {
		return nil // 已存在管理员
	}

	hashedPassword, err := utils.HashPassword(s.cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Name:         s.cfg.Admin.Name,
		Email:        s.cfg.Admin.Email,
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("创建管理员失败: %w", err)
	}

	return nil
}
