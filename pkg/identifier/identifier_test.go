package identifier

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	id := New(PrefixTransaction)

	parts := strings.SplitN(id, "_", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "txn", parts[0])
	assert.Len(t, parts[1], 26)
}

func TestNewDeterministicLengthPerPrefix(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Len(t, New(PrefixLineItem), len(PrefixLineItem)+1+26)
	}
}

func TestNewUniqueUnderConcurrency(t *testing.T) {
	const perWorker = 500
	const workers = 8

	var mu sync.Mutex
	seen := make(map[string]struct{}, perWorker*workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := New(PrefixEvent)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, perWorker*workers)
}

func TestNewSortsByCreationTime(t *testing.T) {
	first := New(PrefixCategory)
	time.Sleep(2 * time.Millisecond)
	second := New(PrefixCategory)
	time.Sleep(2 * time.Millisecond)
	third := New(PrefixCategory)

	ids := []string{third, first, second}
	sort.Strings(ids)

	assert.Equal(t, []string{first, second, third}, ids)
}
