package util

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAtomicEvent(t *testing.T) {
	ae := NewAtomicEvent[any]()
	assert.NotNil(t, ae, "NewAtomicEvent should not return nil")
	assert.NotNil(t, ae.notify, "notify channel should be initialized")
}

func TestSendAndValue(t *testing.T) {
	ae := NewAtomicEvent[int]()
	ae.Send(123)
	assert.Equal(t, 123, ae.Value(), "Value should be 123")

	ae.Send(456)
	assert.Equal(t, 456, ae.Value(), "Value should be the latest event")
}

func TestNotificationCoalescing(t *testing.T) {
	ae := NewAtomicEvent[string]()

	// Multiple sends leave exactly one pending notification.
	ae.Send("event1")
	ae.Send("event2")
	ae.Send("event3")

	select {
	case <-ae.Channel():
	default:
		t.Fatal("should have received a notification")
	}
	select {
	case <-ae.Channel():
		t.Fatal("channel should be empty after one receive")
	default:
	}
	assert.Equal(t, "event3", ae.Value(), "Value should be the last event sent")
}

func TestMapSendAndValue(t *testing.T) {
	ame := NewAtomicMapEvent[int, string]()
	ame.Send(0, "board zero")
	ame.Send(3, "board three")
	ame.Send(0, "board zero updated")

	values := ame.Value()
	assert.Equal(t, "board zero updated", values[0])
	assert.Equal(t, "board three", values[3])
	assert.Len(t, values, 2)
}

func TestMapValueReturnsCopy(t *testing.T) {
	ame := NewAtomicMapEvent[int, int]()
	ame.Send(1, 1)

	values := ame.Value()
	values[1] = 99
	assert.Equal(t, 1, ame.Value()[1], "mutating the returned map must not affect the stored state")
}

func TestMapNotificationShared(t *testing.T) {
	ame := NewAtomicMapEvent[int, int]()
	ame.Send(1, 10)
	ame.Send(2, 20)

	select {
	case <-ame.Channel():
	default:
		t.Fatal("should have received a notification")
	}
	select {
	case <-ame.Channel():
		t.Fatal("updates to different keys coalesce into one notification")
	default:
	}
}

func TestConcurrency(t *testing.T) {
	ae := NewAtomicEvent[string]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ae.Send(fmt.Sprintf("event-%d", n))
		}(i)
	}
	wg.Wait()

	assert.Contains(t, ae.Value(), "event-", "Value should be one of the sent events")
	select {
	case <-ae.Channel():
	default:
		t.Fatal("should have a pending notification after concurrent sends")
	}
}
