package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"submit_vote","card_value":"8"}`))
	require.NoError(t, err)
	assert.Equal(t, CmdSubmitVote, cmd.Type)
	assert.Equal(t, "8", cmd.CardValue)

	cmd, err = ParseCommand([]byte(`{"type":"skip_participant","participant_id":7}`))
	require.NoError(t, err)
	assert.Equal(t, CmdSkipParticipant, cmd.Type)
	assert.EqualValues(t, 7, cmd.ParticipantID)

	_, err = ParseCommand([]byte(`not json`))
	assert.Error(t, err)
}

func TestEventBuilder(t *testing.T) {
	event := NewEvent(EvtVoteSubmitted).
		With("participant_id", uint(3)).
		With("has_voted", true)

	assert.Equal(t, EvtVoteSubmitted, event["type"])
	assert.Equal(t, uint(3), event["participant_id"])
	assert.Equal(t, true, event["has_voted"])
}

func TestEventCloneIsIndependent(t *testing.T) {
	base := NewEvent(EvtRoomState).With("code", "ABC123")

	personalized := base.Clone().With("display_name", "alice")

	assert.Equal(t, "ABC123", personalized["code"])
	assert.NotContains(t, base, "display_name")
}

func TestErrorEvent(t *testing.T) {
	event := ErrorEvent("boom")
	assert.Equal(t, EvtError, event["type"])
	assert.Equal(t, "boom", event["message"])
}
