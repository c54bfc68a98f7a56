package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRunsHandlersInSubscriptionOrder(t *testing.T) {
	b := New()

	var order []string
	b.Subscribe(TopicVideoUpdated, func(any) { order = append(order, "first") })
	b.Subscribe(TopicVideoUpdated, func(any) { order = append(order, "second") })

	b.Publish(TopicVideoUpdated, "payload")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	count := 0
	unsubscribe := b.Subscribe(TopicVideoUpdated, func(any) { count++ })

	b.Publish(TopicVideoUpdated, nil)
	unsubscribe()
	b.Publish(TopicVideoUpdated, nil)

	assert.Equal(t, 1, count)
}

func TestTopicsAreIsolated(t *testing.T) {
	b := New()

	var got any
	b.Subscribe(TopicTeamMemberUpdated, func(payload any) { got = payload })

	b.Publish(TopicVideoUpdated, "video")
	assert.Nil(t, got)

	b.Publish(TopicTeamMemberUpdated, "member")
	assert.Equal(t, "member", got)
}

func TestLateSubscriberSeesNothing(t *testing.T) {
	b := New()

	b.Publish(TopicVideoUpdated, "before")

	called := false
	b.Subscribe(TopicVideoUpdated, func(any) { called = true })
	assert.False(t, called)
}
