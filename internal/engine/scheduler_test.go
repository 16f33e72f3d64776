package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(f *stubFetcher, n int) []FetchTask {
	tasks := make([]FetchTask, n)
	for i := range tasks {
		url := fmt.Sprintf("http://dir.test/p?page=%d", i+2)
		tasks[i] = FetchTask{Page: i + 2, URL: url}
		f.set(url, []byte(fmt.Sprintf("body-%d", i+2)))
	}
	return tasks
}

func TestScheduler_PeakConcurrencyBounded(t *testing.T) {
	f := newStubFetcher()
	f.delay = 15 * time.Millisecond
	tasks := makeTasks(f, 25)

	s := NewScheduler(f, 4, 0, 0, nil)
	results := s.RunBatched(context.Background(), tasks)

	require.Len(t, results, 25)
	assert.LessOrEqual(t, f.Peak(), 4)
	assert.Greater(t, f.Peak(), 1)
}

func TestScheduler_PreservesInputOrder(t *testing.T) {
	f := newStubFetcher()
	tasks := makeTasks(f, 12)
	// later pages finish first
	f.onFetch = func(url string) {
		var page int
		fmt.Sscanf(url, "http://dir.test/p?page=%d", &page)
		time.Sleep(time.Duration(20-page) * time.Millisecond)
	}

	results := NewScheduler(f, 6, 0, 0, nil).RunBatched(context.Background(), tasks)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, tasks[i].Page, r.Page)
		assert.Equal(t, fmt.Sprintf("body-%d", tasks[i].Page), string(r.Body))
	}
}

func TestScheduler_FailureIsolated(t *testing.T) {
	f := newStubFetcher()
	tasks := makeTasks(f, 6)
	f.fail[tasks[2].URL] = true

	results := NewScheduler(f, 2, 0, 0, nil).RunBatched(context.Background(), tasks)
	for i, r := range results {
		if i == 2 {
			require.Error(t, r.Err)
			assert.True(t, IsCode(r.Err, ErrCodeFetch))
			assert.Nil(t, r.Body)
			continue
		}
		assert.NoError(t, r.Err)
	}
	assert.Len(t, f.Calls(), 6)
}

func TestScheduler_PausesBetweenBatches(t *testing.T) {
	f := newStubFetcher()
	tasks := makeTasks(f, 7)

	start := time.Now()
	NewScheduler(f, 3, 0, 30*time.Millisecond, nil).RunBatched(context.Background(), tasks)

	// pauses before tasks 3 and 6
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestScheduler_CancelDrainsAndMarksRest(t *testing.T) {
	f := newStubFetcher()
	tasks := makeTasks(f, 10)
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	f.onFetch = func(string) {
		once.Do(cancel)
		time.Sleep(10 * time.Millisecond)
	}

	results := NewScheduler(f, 2, 0, 0, nil).RunBatched(ctx, tasks)
	require.Len(t, results, 10)

	issued := len(f.Calls())
	assert.Less(t, issued, 10)
	for i, r := range results {
		if i < issued {
			// issued fetches complete despite cancellation
			assert.NoError(t, r.Err, "page %d", r.Page)
			continue
		}
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Equal(t, tasks[i].Page, r.Page)
	}
}

func TestScheduler_Empty(t *testing.T) {
	assert.Empty(t, NewScheduler(newStubFetcher(), 3, 0, 0, nil).RunBatched(context.Background(), nil))
}
