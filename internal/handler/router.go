package handler

import (
	"balancehub/internal/catalog"
	"balancehub/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, cat *catalog.Catalog, templateGlob string) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	r.LoadHTMLGlob(templateGlob)

	// 创建处理器
	h := NewHandler(db, rdb, cfg, cat)

	// 页面与表单操作，路径与表单字段保持与老版本一致
	r.GET("/", h.Index)
	r.POST("/buy_balance", h.BuyBalance)
	r.POST("/use_balance", h.UseBalance)
	r.POST("/access_existing_balance", h.AccessExisting)
	r.POST("/clear_balance", h.ClearBalance)
	r.POST("/delete_user_record", h.DeleteUserRecord)

	// 管理接口（JSON）
	if cfg.Business.AdminEnabled {
		admin := r.Group("/admin")
		{
			admin.POST("/clear_all_balances", h.AdminClearAllBalances)
			admin.POST("/delete_all_user_records", h.AdminDeleteAllUserRecords)
			admin.GET("/users/transactions", h.AdminListTransactions)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.NoRoute(h.NotFound)

	return r
}
