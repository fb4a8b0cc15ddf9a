package webclient

import (
	"path/filepath"

	"report-go/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter 设置客户端路由
func SetupRouter(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.LoadHTMLGlob(filepath.Join(cfg.Client.TemplatesDir, "*.html"))

	api := NewAPIClient(cfg.Client.APIBaseURL, cfg.Session.CookieName)
	h := NewPageHandler(api, cfg.Session.CookieName)

	r.GET("/", h.Index)

	reports := r.Group("/reports")
	{
		reports.GET("", h.ListPage)
		reports.GET("/create", h.CreatePage)
		reports.POST("/create", h.CreateSubmit)
		reports.GET("/:id", h.DetailPage)
		reports.GET("/:id/edit", h.EditPage)
		reports.POST("/:id/edit", h.EditSubmit)
		reports.POST("/:id/delete", h.DeleteSubmit)
		reports.GET("/:id/download", h.DownloadPage)
		reports.GET("/:id/convert-to-word", h.ConvertPage)
	}

	auth := r.Group("/auth")
	{
		auth.GET("/login", h.LoginPage)
		auth.POST("/login", h.LoginSubmit)
		auth.GET("/register", h.RegisterPage)
		auth.POST("/register", h.RegisterSubmit)
		auth.GET("/logout", h.Logout)
	}

	logger.Infof("客户端页面服务于 %s", cfg.Client.ListenAddr)
	return r
}
