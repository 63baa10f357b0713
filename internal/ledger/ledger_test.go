package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepoll/pkg/types"
)

func activePoll() *types.Poll {
	return &types.Poll{
		Question:  "Color?",
		Options:   []string{"Red", "Blue"},
		Duration:  60,
		CreatedAt: time.Now(),
		Status:    types.PollStatusActive,
	}
}

func TestSubmit_RecordsAnswer(t *testing.T) {
	l := New(nil)
	poll := activePoll()

	require.NoError(t, l.Submit("s1", "Ada", "Red", poll))

	assert.True(t, l.Has("s1"))
	assert.Equal(t, 1, l.Size())

	answers := l.Answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "s1", answers[0].ParticipantID)
	assert.Equal(t, "Ada", answers[0].StudentName)
	assert.Equal(t, "Red", answers[0].Choice)
	assert.False(t, answers[0].SubmittedAt.IsZero())
}

func TestSubmit_Rejections(t *testing.T) {
	l := New(nil)
	poll := activePoll()

	t.Run("nil poll", func(t *testing.T) {
		assert.ErrorIs(t, l.Submit("s1", "Ada", "Red", nil), ErrNoActivePoll)
	})

	t.Run("ended poll", func(t *testing.T) {
		ended := activePoll()
		ended.Status = types.PollStatusEnded
		assert.ErrorIs(t, l.Submit("s1", "Ada", "Red", ended), ErrNoActivePoll)
	})

	t.Run("unknown choice", func(t *testing.T) {
		assert.ErrorIs(t, l.Submit("s1", "Ada", "Green", poll), ErrInvalidChoice)
		assert.False(t, l.Has("s1"), "rejected submission must not be recorded")
	})

	t.Run("duplicate", func(t *testing.T) {
		require.NoError(t, l.Submit("s1", "Ada", "Red", poll))
		assert.ErrorIs(t, l.Submit("s1", "Ada", "Blue", poll), ErrAlreadyAnswered)

		answers := l.Answers()
		require.Len(t, answers, 1)
		assert.Equal(t, "Red", answers[0].Choice, "first answer stands")
	})
}

func TestReset_ClearsAllEntries(t *testing.T) {
	l := New(nil)
	poll := activePoll()
	require.NoError(t, l.Submit("s1", "Ada", "Red", poll))
	require.NoError(t, l.Submit("s2", "Grace", "Blue", poll))

	l.Reset()

	assert.Equal(t, 0, l.Size())
	assert.False(t, l.Has("s1"))
	assert.Empty(t, l.Answers())
}

func TestRemove_PurgesSingleEntry(t *testing.T) {
	l := New(nil)
	poll := activePoll()
	require.NoError(t, l.Submit("s1", "Ada", "Red", poll))
	require.NoError(t, l.Submit("s2", "Grace", "Blue", poll))

	l.Remove("s1")
	l.Remove("ghost")

	assert.Equal(t, 1, l.Size())
	assert.False(t, l.Has("s1"))
	assert.True(t, l.Has("s2"))
}
