package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"planning_poker/internal/api"
	"planning_poker/internal/config"
	"planning_poker/internal/models"
	"planning_poker/internal/repository"
	"planning_poker/internal/service"
	"planning_poker/internal/storage"
	"planning_poker/internal/utils"
	"planning_poker/internal/worker"
)

func main() {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 設定 JWT 簽章密鑰
	utils.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// 初始化資料庫連接
	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// 自動遷移資料庫結構
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserRole{},
		&models.Room{},
		&models.Participant{},
		&models.SessionLog{},
		&models.AnonymousIdentity{},
	); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	// 初始化 repositories 與 services
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, cfg.Session, logger)

	// 啟動背景巡查：閒置房間關閉、計時器到期、匿名身分清理
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	workerServer := worker.NewWorkerServer(redisOpt, services.Sessions, services.RoomService,
		cfg.Session.SweepInterval, logger)
	go workerServer.Start()
	defer workerServer.Shutdown()

	// 設置 Gin 路由
	r := gin.Default()
	api.SetupRoutes(r, services)

	// 啟動伺服器
	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
