package router

import (
	"time"

	"report-go/internal/config"
	"report-go/internal/handler"
	"report-go/internal/middleware"
	"report-go/internal/repository"
	"report-go/internal/service"
	"report-go/internal/storage"
	"report-go/internal/utils"
	"report-go/pkg/docconv"
	"report-go/pkg/redis_limiter"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRouter 设置路由
// redisClient 可为nil,此时限流中间件全部退化为不限制
func SetupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	logger *logrus.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	blobStore *storage.BlobStorage,
) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))

	// 会话Cookie
	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.GetMaxAge(),
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
	})
	r.Use(sessions.Sessions(cfg.Session.CookieName, store))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "报表管理系统 API",
			"version": "1.0.0",
		})
	})

	// 初始化Repository
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// 转换引擎: native为进程内转换,soffice走外部进程
	previewer := docconv.NewConverter(docconv.Options{
		MaxRows: cfg.Converter.MaxRows,
		MaxCols: cfg.Converter.MaxCols,
	})
	var converter docconv.Engine = previewer
	if cfg.Converter.Engine == "soffice" {
		converter = docconv.NewExternalConverter(cfg.Converter.SofficeBin, cfg.Converter.GetTimeout())
	}

	// 初始化Service
	userService := service.NewUserService(userRepo, cfg)
	reportService := service.NewReportService(reportRepo, blobStore, converter, previewer, logger)

	// Redis限流(未配置Redis时为nil)
	// convLimiter声明为接口类型,只在Redis可用时赋值,避免带类型的nil指针
	var loginLimiter *redis_limiter.WindowLimiter
	var convLimiter handler.ConvertLimiter
	if redisClient != nil {
		loginLimiter = redis_limiter.NewWindowLimiter(
			redisClient, cfg.Redis.LoginAttempts, "login_attempts", cfg.Redis.GetLoginWindow())
		convLimiter = redis_limiter.NewConcurrencyLimiter(
			redisClient, cfg.Converter.MaxConcurrency, "convert_slots", 10*time.Minute)
	}

	// 初始化Handler
	userHandler := handler.NewUserHandler(userService, jwtManager, loginLimiter)
	reportHandler := handler.NewReportHandler(reportService, convLimiter, cfg.Storage.MaxFileSize)

	// API路由组
	api := r.Group("/api")
	{
		// 公开路由
		api.POST("/user/register", userHandler.Register)
		api.POST("/user/login", userHandler.Login)

		// 认证路由
		authorized := api.Group("")
		authorized.Use(middleware.AuthMiddleware(jwtManager))
		{
			authorized.POST("/user/logout", userHandler.Logout)
			authorized.GET("/user", middleware.AdminMiddleware(), userHandler.ListUsers)
			authorized.GET("/user/:id", userHandler.GetUser)
			authorized.PUT("/user/:id", userHandler.UpdateUser)

			authorized.GET("/reports", reportHandler.ListReports)
			authorized.POST("/reports", reportHandler.CreateReport)
			authorized.GET("/reports/:id", reportHandler.GetReport)
			authorized.PUT("/reports/:id", reportHandler.UpdateReport)
			authorized.DELETE("/reports/:id", reportHandler.DeleteReport)
			authorized.GET("/reports/:id/download", reportHandler.DownloadReport)
			authorized.GET("/reports/:id/preview", reportHandler.PreviewReport)
			authorized.GET("/reports/:id/convert-to-word", reportHandler.ConvertToWord)
		}
	}

	return r
}
