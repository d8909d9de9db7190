package overlay

import (
	"sync"
	"testing"
	"time"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxKeepsLatest(t *testing.T) {
	m := NewMailbox()
	m.Publish(models.FrameResults{Timestamp: 1})
	m.Publish(models.FrameResults{Timestamp: 2})
	m.Publish(models.FrameResults{Timestamp: 3})

	f, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, int64(3), f.Timestamp)
	assert.Equal(t, MailboxStats{Published: 3, Rendered: 1, Dropped: 2}, m.Stats())
}

func TestMailboxNextBlocksUntilPublish(t *testing.T) {
	m := NewMailbox()
	got := make(chan int64, 1)
	go func() {
		f, ok := m.Next()
		if ok {
			got <- f.Timestamp
		}
	}()

	time.Sleep(10 * time.Millisecond)
	m.Publish(models.FrameResults{Timestamp: 7})

	select {
	case ts := <-got:
		assert.Equal(t, int64(7), ts)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken")
	}
}

func TestMailboxCloseReleasesConsumer(t *testing.T) {
	m := NewMailbox()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, ok := m.Next()
		assert.False(t, ok)
	}()
	time.Sleep(10 * time.Millisecond)
	m.Close()
	wg.Wait()

	m.Publish(models.FrameResults{})
	assert.Equal(t, uint64(0), m.Stats().Published)
}
