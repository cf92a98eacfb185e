package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"planning_poker/internal/service"
	"planning_poker/internal/tasks"
)

// WorkerServer 封裝 asynq 的 worker 與排程器
// 巡查任務在這裡排程，由同一個行程的 handler 執行，
// 廣播才能送達目前連線中的客戶端。
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	handler   *SweepHandler
	interval  time.Duration
	log       *logrus.Entry
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, sessions *service.RoomSessionManager,
	roomService *service.RoomService, sweepInterval time.Duration, logger *logrus.Logger) *WorkerServer {

	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logEntry.WithField("task_type", task.Type()).Errorf("Task failed: %v", err)
			}),
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	return &WorkerServer{
		server:    server,
		scheduler: scheduler,
		handler:   NewSweepHandler(sessions, roomService, logger),
		interval:  sweepInterval,
		log:       logEntry,
	}
}

// Start 啟動 worker 與排程器，應在獨立的 goroutine 中呼叫
func (ws *WorkerServer) Start() {
	spec := fmt.Sprintf("@every %s", ws.interval)
	if _, err := ws.scheduler.Register(spec, asynq.NewTask(tasks.TypeCloseInactiveRooms, nil)); err != nil {
		ws.log.Fatalf("Could not register inactive room sweep: %v", err)
	}
	if _, err := ws.scheduler.Register(spec, asynq.NewTask(tasks.TypeExpireTimers, nil)); err != nil {
		ws.log.Fatalf("Could not register timer sweep: %v", err)
	}
	// 匿名身分的清理不需要太頻繁
	if _, err := ws.scheduler.Register("@every 1h", asynq.NewTask(tasks.TypePurgeAnonymous, nil)); err != nil {
		ws.log.Fatalf("Could not register identity purge: %v", err)
	}

	go func() {
		if err := ws.scheduler.Run(); err != nil {
			ws.log.Fatalf("Could not run scheduler: %v", err)
		}
	}()

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCloseInactiveRooms, ws.handler.HandleCloseInactiveRooms)
	mux.HandleFunc(tasks.TypeExpireTimers, ws.handler.HandleExpireTimers)
	mux.HandleFunc(tasks.TypePurgeAnonymous, ws.handler.HandlePurgeAnonymous)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped.")
	}
}

// Shutdown 優雅地關閉 worker 與排程器
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
