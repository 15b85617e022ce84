package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

func TestProgressPublisher_PublishToSubscribers(t *testing.T) {
	publisher := NewProgressPublisher()

	ch1, unsub1 := publisher.Subscribe("run_1")
	ch2, unsub2 := publisher.Subscribe("run_1")
	defer unsub1()
	defer unsub2()

	other, unsubOther := publisher.Subscribe("run_2")
	defer unsubOther()

	publisher.Publish(&ports.OptimizationProgress{RunID: "run_1", Stage: "compiling", Generation: 3})

	for _, ch := range []<-chan *ports.OptimizationProgress{ch1, ch2} {
		select {
		case event := <-ch:
			assert.Equal(t, "compiling", event.Stage)
			assert.Equal(t, 3, event.Generation)
		default:
			t.Fatal("expected an event on the subscriber channel")
		}
	}

	select {
	case <-other:
		t.Fatal("run_2 subscriber should not receive run_1 events")
	default:
	}
}

func TestProgressPublisher_Unsubscribe(t *testing.T) {
	publisher := NewProgressPublisher()

	ch, unsubscribe := publisher.Subscribe("run_1")
	require.Equal(t, 1, publisher.SubscriberCount("run_1"))

	unsubscribe()
	assert.Equal(t, 0, publisher.SubscriberCount("run_1"))

	// channel is closed after unsubscribe
	_, open := <-ch
	assert.False(t, open)

	// publishing to a run with no subscribers is a no-op
	publisher.Publish(&ports.OptimizationProgress{RunID: "run_1", Stage: "completed"})
}

func TestProgressPublisher_CloseClosesAllChannels(t *testing.T) {
	publisher := NewProgressPublisher()

	ch1, _ := publisher.Subscribe("run_1")
	ch2, _ := publisher.Subscribe("run_1")

	publisher.Publish(&ports.OptimizationProgress{RunID: "run_1", Stage: "completed", BestScore: 0.9})
	publisher.Close("run_1")

	event, open := <-ch1
	require.True(t, open)
	assert.InDelta(t, 0.9, event.BestScore, 0.001)

	_, open = <-ch1
	assert.False(t, open)

	<-ch2
	_, open = <-ch2
	assert.False(t, open)

	assert.Equal(t, 0, publisher.SubscriberCount("run_1"))
}

func TestProgressPublisher_SlowConsumerDoesNotBlock(t *testing.T) {
	publisher := NewProgressPublisher()

	_, unsubscribe := publisher.Subscribe("run_1")
	defer unsubscribe()

	// more events than the channel buffer holds; Publish must not stall
	for i := 0; i < 200; i++ {
		publisher.Publish(&ports.OptimizationProgress{RunID: "run_1", Stage: "compiling", Generation: i})
	}
}
