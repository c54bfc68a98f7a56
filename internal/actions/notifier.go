package actions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultDisplayWindow = 3 * time.Second

// Notifier holds the transient notifications currently on screen. Each one
// auto-dismisses after the display window unless removed earlier.
type Notifier struct {
	window time.Duration

	mu     sync.Mutex
	active []Notification
	timers map[string]*time.Timer
}

func NewNotifier() *Notifier {
	return &Notifier{
		window: defaultDisplayWindow,
		timers: make(map[string]*time.Timer),
	}
}

// SetDisplayWindow overrides the auto-dismiss delay, for tests.
func (n *Notifier) SetDisplayWindow(window time.Duration) {
	n.mu.Lock()
	n.window = window
	n.mu.Unlock()
}

func (n *Notifier) Push(message string, kind NotificationKind) Notification {
	item := Notification{
		ID:      uuid.NewString(),
		Message: message,
		Kind:    kind,
	}
	n.mu.Lock()
	n.active = append(n.active, item)
	n.timers[item.ID] = time.AfterFunc(n.window, func() {
		n.Dismiss(item.ID)
	})
	n.mu.Unlock()
	return item
}

func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	for i, item := range n.active {
		if item.ID == id {
			n.active = append(n.active[:i:i], n.active[i+1:]...)
			return
		}
	}
}

// Active returns the notifications currently displayed, oldest first.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	ret := make([]Notification, len(n.active))
	copy(ret, n.active)
	return ret
}
