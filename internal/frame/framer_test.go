package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/satoshi-bridge/internal/serial"
)

func feedAll(t *testing.T, f *Framer, lines ...string) (*Command, error) {
	t.Helper()
	var cmd *Command
	var err error
	for _, line := range lines {
		cmd, err = f.Feed(serial.RawLine{Source: "trigger", Text: line})
	}
	return cmd, err
}

func TestFeed_SingleLineDirectives(t *testing.T) {
	f := New()

	cases := []struct {
		line string
		kind Kind
		arg  string
	}{
		{"TX:abc123", KindTx, "abc123"},
		{"ERROR:payment failed", KindError, "payment failed"},
		{"STATUS:booting", KindStatus, "booting"},
		{"REASON:negative_sentiment", KindReason, "negative_sentiment"},
		{"CLEAR", KindClear, ""},
		{"REQUEST_LATEST_TX", KindRequestLatestTx, ""},
		{"GET_STATUS", KindUnknown, "GET_STATUS"},
	}
	for _, tc := range cases {
		cmd, err := f.Feed(serial.RawLine{Text: tc.line})
		require.NoError(t, err, tc.line)
		require.NotNil(t, cmd, tc.line)
		assert.Equal(t, tc.kind, cmd.Kind)
		assert.Equal(t, tc.arg, cmd.Arg)
	}
}

func TestFeed_EmptyLineIgnored(t *testing.T) {
	f := New()
	cmd, err := f.Feed(serial.RawLine{Text: "   "})
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestFeed_CompleteTriggerBlock(t *testing.T) {
	f := New()
	cmd, err := feedAll(t, f,
		"TRIGGER_PAYMENT",
		"FROM_AGENT:agent_a",
		"TO_AGENT:agent_b",
		"AMOUNT:2.5",
		"EMOTION:happy",
		"END_COMMAND",
	)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	require.Equal(t, KindTrigger, cmd.Kind)

	ev := cmd.Trigger
	require.NotNil(t, ev)
	assert.Equal(t, "agent_a", ev.FromAgent)
	assert.Equal(t, "agent_b", ev.ToAgent)
	assert.Equal(t, 2.5, ev.Amount)
	assert.Equal(t, "happy", ev.EmotionContext)
	assert.NotEmpty(t, ev.CorrelationID)
	assert.False(t, f.Accumulating())
}

func TestFeed_EmotionIsOptional(t *testing.T) {
	f := New()
	cmd, err := feedAll(t, f,
		"TRIGGER_PAYMENT",
		"FROM_AGENT:a",
		"TO_AGENT:b",
		"AMOUNT:1",
		"END_COMMAND",
	)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Empty(t, cmd.Trigger.EmotionContext)
}

func TestFeed_MissingAmountIsProtocolError(t *testing.T) {
	f := New()
	cmd, err := feedAll(t, f,
		"TRIGGER_PAYMENT",
		"FROM_AGENT:a",
		"TO_AGENT:b",
		"END_COMMAND",
	)
	assert.Nil(t, cmd)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "AMOUNT")
	// The accumulator is discarded; the framer keeps working.
	assert.False(t, f.Accumulating())
	next, err := f.Feed(serial.RawLine{Text: "CLEAR"})
	require.NoError(t, err)
	assert.Equal(t, KindClear, next.Kind)
}

func TestFeed_InvalidAmountIsProtocolError(t *testing.T) {
	f := New()
	_, err := feedAll(t, f,
		"TRIGGER_PAYMENT",
		"FROM_AGENT:a",
		"TO_AGENT:b",
		"AMOUNT:lots",
		"END_COMMAND",
	)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "invalid amount")
}

func TestFeed_RestartedBlockWins(t *testing.T) {
	f := New()
	cmd, err := feedAll(t, f,
		"TRIGGER_PAYMENT",
		"FROM_AGENT:old",
		"TO_AGENT:stale",
		"AMOUNT:99",
		"TRIGGER_PAYMENT", // resets the accumulator
		"FROM_AGENT:new",
		"TO_AGENT:fresh",
		"AMOUNT:1",
		"END_COMMAND",
	)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, "new", cmd.Trigger.FromAgent)
	assert.Equal(t, "fresh", cmd.Trigger.ToAgent)
	assert.Equal(t, 1.0, cmd.Trigger.Amount)
}

func TestFeed_DirectivesInsideBlockAreKeysOnly(t *testing.T) {
	f := New()
	// A CLEAR inside a block is an unknown key, not a directive.
	cmd, err := feedAll(t, f,
		"TRIGGER_PAYMENT",
		"CLEAR",
		"FROM_AGENT:a",
		"TO_AGENT:b",
		"AMOUNT:1",
		"END_COMMAND",
	)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, KindTrigger, cmd.Kind)
}

func TestFeed_UniqueCorrelationIDs(t *testing.T) {
	f := New()
	lines := []string{"TRIGGER_PAYMENT", "FROM_AGENT:a", "TO_AGENT:b", "AMOUNT:1", "END_COMMAND"}
	first, err := feedAll(t, f, lines...)
	require.NoError(t, err)
	second, err := feedAll(t, f, lines...)
	require.NoError(t, err)
	assert.NotEqual(t, first.Trigger.CorrelationID, second.Trigger.CorrelationID)
}
