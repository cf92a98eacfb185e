package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"planning_poker/internal/api/handlers"
	"planning_poker/internal/middleware"
	"planning_poker/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.UserService)
	roomHandler := handlers.NewRoomHandler(services.RoomService, services.Sessions)
	wsHandler := handlers.NewWebSocketHandler(services.Sessions)
	logHandler := handlers.NewSessionLogHandler(services.RoomService)

	r.Use(cors.Default())

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 房間相關路由
	rooms := api.Group("/rooms")
	{
		// 建立房間需要登入
		rooms.POST("", middleware.AuthMiddleware(), roomHandler.CreateRoom)

		// 查詢房間開放匿名，未認證只看得到參與者人數
		rooms.GET("/:identifier", middleware.OptionalAuthMiddleware(), roomHandler.GetRoom)
		rooms.GET("/:identifier/logs", middleware.OptionalAuthMiddleware(), roomHandler.GetSessionLogs)

		// WebSocket 即時通道，匿名訪客也能連
		rooms.GET("/:identifier/ws", middleware.OptionalAuthMiddleware(), wsHandler.HandleWebSocket)

		// 控制操作的 HTTP 端點，與 WebSocket 指令走同一條串行路徑
		rooms.POST("/:identifier/start", middleware.AuthMiddleware(), roomHandler.StartRound)
		rooms.POST("/:identifier/reveal", middleware.AuthMiddleware(), roomHandler.Reveal)
		rooms.POST("/:identifier/skip", middleware.AuthMiddleware(), roomHandler.Skip)
	}

	// 需要驗證的其餘路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		authorized.GET("/admin/last_room", roomHandler.AdminLastRoom)
		authorized.GET("/session-logs/all", logHandler.ListAll)
		authorized.GET("/session-logs/export", logHandler.ExportAll)
	}
}
