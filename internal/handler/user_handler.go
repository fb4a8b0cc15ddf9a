package handler

import (
	"report-go/internal/dto"
	"report-go/internal/middleware"
	"report-go/internal/service"
	"report-go/internal/utils"
	"report-go/pkg/redis_limiter"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService  *service.UserService
	jwtManager   *utils.JWTManager
	loginLimiter *redis_limiter.WindowLimiter
}

// NewUserHandler 创建用户处理器
// loginLimiter 可为nil,此时登录不做频率限制
func NewUserHandler(userService *service.UserService, jwtManager *utils.JWTManager, loginLimiter *redis_limiter.WindowLimiter) *UserHandler {
	return &UserHandler{
		userService:  userService,
		jwtManager:   jwtManager,
		loginLimiter: loginLimiter,
	}
}

// Register 注册新用户
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.CreatedResponse(c, dto.NewUserInfo(user))
}

// Login 登录,成功后写入会话Cookie并返回访问令牌
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	// 按客户端IP限制登录尝试频率,防止口令爆破
	limiterKey := c.ClientIP()
	if h.loginLimiter != nil {
		allowed, err := h.loginLimiter.Allow(c.Request.Context(), limiterKey)
		if err == nil && !allowed {
			utils.TooManyRequests(c, "登录尝试过于频繁,请稍后重试")
			return
		}
	}

	user, err := h.userService.Authenticate(req.Email, req.Password)
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}
	if user == nil {
		utils.Unauthorized(c, "邮箱或密码错误")
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(c.Request.Context(), limiterKey)
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionKeyUserID, user.ID)
	session.Set(middleware.SessionKeyEmail, user.Email)
	session.Set(middleware.SessionKeyIsAdmin, user.IsAdmin())
	if err := session.Save(); err != nil {
		utils.InternalError(c, "保存会话失败: "+err.Error())
		return
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Email, user.IsAdmin())
	if err != nil {
		utils.InternalError(c, "生成令牌失败: "+err.Error())
		return
	}

	utils.SuccessResponse(c, dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        dto.NewUserInfo(user),
	})
}

// Logout 登出,清除会话
func (h *UserHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	if err := session.Save(); err != nil {
		utils.InternalError(c, "清除会话失败: "+err.Error())
		return
	}
	utils.SuccessWithMessage(c, "已登出", nil)
}

// ListUsers 获取全部用户(仅管理员)
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	infos := make([]dto.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, dto.NewUserInfo(&users[i]))
	}
	utils.SuccessResponse(c, infos)
}

// GetUser 获取用户信息
// 普通用户只能查看自己,管理员可查看任意用户
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	currentID, _ := middleware.GetUserID(c)
	if id != currentID && !middleware.IsAdmin(c) {
		utils.Forbidden(c, "无权查看其他用户")
		return
	}

	user, err := h.userService.GetByID(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.NewUserInfo(user))
}

// UpdateUser 更新用户信息
// 普通用户只能修改自己且不能改角色,管理员可修改任意用户
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	currentID, _ := middleware.GetUserID(c)
	isAdmin := middleware.IsAdmin(c)
	if id != currentID && !isAdmin {
		utils.Forbidden(c, "无权修改其他用户")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if req.Role != "" && !isAdmin {
		utils.Forbidden(c, "无权修改角色")
		return
	}

	user, err := h.userService.Update(id, req.Name, req.Email, req.Role, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.NewUserInfo(user))
}
