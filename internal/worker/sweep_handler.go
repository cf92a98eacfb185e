package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"planning_poker/internal/service"
)

// SweepHandler 處理房間生命週期的週期性巡查
// 所有轉換都走 RoomSessionManager 的房間鎖與條件式更新，
// 巡查被延後或重複執行都不會讓同一個轉換套用兩次。
type SweepHandler struct {
	sessions    *service.RoomSessionManager
	roomService *service.RoomService
	log         *logrus.Entry
}

func NewSweepHandler(sessions *service.RoomSessionManager, roomService *service.RoomService, logger *logrus.Logger) *SweepHandler {
	return &SweepHandler{
		sessions:    sessions,
		roomService: roomService,
		log:         logger.WithField("component", "sweep"),
	}
}

// HandleCloseInactiveRooms 關閉最後活動超過閒置門檻的房間
func (h *SweepHandler) HandleCloseInactiveRooms(ctx context.Context, t *asynq.Task) error {
	rooms, err := h.roomService.FindInactiveRooms(time.Now())
	if err != nil {
		h.log.WithError(err).Error("failed to list inactive rooms")
		return err
	}

	for _, room := range rooms {
		closed, err := h.sessions.CloseInactiveRoom(room.Code, room.ID)
		if err != nil {
			// 單一房間失敗不中斷整輪巡查
			h.log.WithError(err).WithField("room", room.Code).Error("failed to auto-close room")
			continue
		}
		if closed {
			h.log.WithField("room", room.Code).Info("auto-closed inactive room")
		}
	}
	return nil
}

// HandleExpireTimers 停掉已到期的回合計時器並通知房間
func (h *SweepHandler) HandleExpireTimers(ctx context.Context, t *asynq.Task) error {
	now := time.Now()
	rooms, err := h.roomService.FindExpiredTimers(now)
	if err != nil {
		h.log.WithError(err).Error("failed to list expired timers")
		return err
	}

	for _, room := range rooms {
		stopped, err := h.sessions.ExpireTimer(room.Code, room.ID, now)
		if err != nil {
			h.log.WithError(err).WithField("room", room.Code).Error("failed to expire timer")
			continue
		}
		if stopped {
			h.log.WithField("room", room.Code).Info("timer expired")
		}
	}
	return nil
}

// HandlePurgeAnonymous 清除保留期限外未活動的匿名身分
func (h *SweepHandler) HandlePurgeAnonymous(ctx context.Context, t *asynq.Task) error {
	purged, err := h.roomService.PurgeStaleIdentities(time.Now())
	if err != nil {
		h.log.WithError(err).Error("failed to purge stale anonymous identities")
		return err
	}
	if purged > 0 {
		h.log.WithField("count", purged).Info("purged stale anonymous identities")
	}
	return nil
}
