package main

import (
	"log"
	"os"

	"report-go/internal/config"
	"report-go/internal/models"
	"report-go/internal/repository"
	"report-go/internal/router"
	"report-go/internal/service"
	"report-go/internal/storage"
	"report-go/internal/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	// 加载配置（从项目根目录读取）
	cfg, err := config.LoadConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// 初始化数据库
	if err := models.InitDB(cfg); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	db := models.GetDB()

	// 初始化Redis(可选,未配置时跳过限流)
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddress(),
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
	} else {
		logger.Info("未配置Redis,登录限流和转换并发控制已禁用")
	}

	// 初始化文件存储
	blobStore, err := storage.NewBlobStorage(cfg.Storage.UploadsDir)
	if err != nil {
		log.Fatalf("初始化文件存储失败: %v", err)
	}

	// 初始化工具
	jwtManager := utils.NewJWTManager(
		cfg.JWT.SecretKey,
		cfg.JWT.Algorithm,
		cfg.JWT.GetExpireDuration(),
	)

	// 初始化管理员账户
	userService := service.NewUserService(repository.NewUserRepository(db), cfg)
	if err := userService.InitAdmin(); err != nil {
		logger.Warnf("初始化管理员失败: %v", err)
	}

	// 设置路由
	r := router.SetupRouter(cfg, jwtManager, logger, db, redisClient, blobStore)

	// 启动服务器
	addr := cfg.Server.GetAddress()
	logger.Infof("服务器启动在 %s", addr)
	logger.Infof("文件存储目录: %s", cfg.Storage.UploadsDir)
	logger.Infof("转换引擎: %s", cfg.Converter.Engine)

	if !cfg.Server.ProductionMode {
		logger.Infof("管理员账号: %s", cfg.Admin.Email)
	}

	if err := r.Run(addr); err != nil {
		log.Fatalf("启动服务器失败: %v", err)
	}
}
