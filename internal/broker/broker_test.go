package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishSubscribe(t *testing.T) {
	b := New[string](4)

	b.Publish(TopicTriageResults, "first")
	b.Publish(TopicTriageResults, "second")

	ch := b.Subscribe(TopicTriageResults)
	assert.Equal(t, "first", <-ch)
	assert.Equal(t, "second", <-ch)
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New[int](1)

	b.Publish("t", 1)
	// топик полон - не блокируемся, сообщение теряется
	b.Publish("t", 2)

	ch := b.Subscribe("t")
	assert.Equal(t, 1, <-ch)

	select {
	case v := <-ch:
		t.Fatalf("unexpected message %d", v)
	default:
	}
}

func TestCloseTopic(t *testing.T) {
	b := New[int](1)
	ch := b.Subscribe("t")
	b.CloseTopic("t")

	_, ok := <-ch
	assert.False(t, ok)
}

func TestPublishAfterCloseTopic(t *testing.T) {
	b := New[int](1)
	b.Subscribe("t")
	b.CloseTopic("t")

	// публикация в закрытый топик заводит его заново, без паники
	b.Publish("t", 7)
	assert.Equal(t, 7, <-b.Subscribe("t"))
}
