package main

import (
	"log"
	"os"

	"report-go/internal/config"
	"report-go/internal/webclient"

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

	r := webclient.SetupRouter(cfg, logger)

	if err := r.Run(cfg.Client.ListenAddr); err != nil {
		log.Fatalf("启动客户端失败: %v", err)
	}
}
