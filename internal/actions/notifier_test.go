package actions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierAutoDismiss(t *testing.T) {
	notifier := NewNotifier()
	notifier.SetDisplayWindow(20 * time.Millisecond)

	notifier.Push("Saved", NotifySuccess)
	require.Len(t, notifier.Active(), 1)

	require.Eventually(t, func() bool {
		return len(notifier.Active()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierManualDismiss(t *testing.T) {
	notifier := NewNotifier()
	notifier.SetDisplayWindow(time.Minute)

	first := notifier.Push("one", NotifyInfo)
	notifier.Push("two", NotifyInfo)

	notifier.Dismiss(first.ID)

	active := notifier.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "two", active[0].Message)
}

func TestNotifierConcurrentWindow(t *testing.T) {
	notifier := NewNotifier()
	notifier.SetDisplayWindow(time.Minute)

	notifier.Push("first", NotifySuccess)
	notifier.Push("second", NotifyError)
	notifier.Push("third", NotifySuccess)

	active := notifier.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "first", active[0].Message)
	assert.Equal(t, NotifyError, active[1].Kind)
}
