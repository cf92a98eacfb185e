// Package ws 定義房間即時通道上的訊息信封
//
// 客戶端送進來的指令解析成 Command，伺服器推播的事件一律以 Event 包裝，
// 兩者都是 {type, ...payload} 的扁平 JSON。
package ws

import "encoding/json"

// 客戶端指令類型
const (
	CmdSubmitVote      = "submit_vote"
	CmdRevealCards     = "reveal_cards"
	CmdResetVotes      = "reset_votes"
	CmdSkipParticipant = "skip_participant"
	CmdStartRound      = "start_round"
	CmdStartTimer      = "start_timer"
	CmdStopTimer       = "stop_timer"
	CmdPauseTimer      = "pause_timer"
	CmdChatMessage     = "chat_message"
	CmdJoinRoom        = "join_room"
)

// 伺服器事件類型
const (
	EvtRoomState          = "room_state"
	EvtUserConnected      = "user_connected"
	EvtUserDisconnected   = "user_disconnected"
	EvtVoteSubmitted      = "vote_submitted"
	EvtCardsRevealed      = "cards_revealed"
	EvtVotesReset         = "votes_reset"
	EvtParticipantSkipped = "participant_skipped"
	EvtRoundStarted       = "round_started"
	EvtTimerStarted       = "timer_started"
	EvtTimerStopped       = "timer_stopped"
	EvtTimerPaused        = "timer_paused"
	EvtTimerExpired       = "timer_expired"
	EvtRoomAutoClosed     = "room_auto_closed"
	EvtChatMessage        = "chat_message"
	EvtError              = "error"
)

// Command 是客戶端送入的指令信封
// 不同指令只會用到其中一部分欄位
type Command struct {
	Type          string `json:"type"`
	CardValue     string `json:"card_value,omitempty"`
	ParticipantID uint   `json:"participant_id,omitempty"`
	StoryTitle    string `json:"story_title,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ParseCommand 解析客戶端送入的原始訊息
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Event 是伺服器推播的事件信封，type 以外的欄位隨事件類型而異
type Event map[string]interface{}

// NewEvent 建立指定類型的事件
func NewEvent(eventType string) Event {
	return Event{"type": eventType}
}

// With 附加一個欄位並回傳事件本身，方便鏈式組裝
func (e Event) With(key string, value interface{}) Event {
	e[key] = value
	return e
}

// Clone 複製事件，廣播前要對個別連線附加專屬欄位時使用
func (e Event) Clone() Event {
	out := make(Event, len(e)+3)
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ErrorEvent 建立回傳給單一客戶端的錯誤事件
func ErrorEvent(message string) Event {
	return Event{"type": EvtError, "message": message}
}
