package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// pinUnpin pins pageNo, asserts success, and immediately unpins it so the
// frame is eligible for eviction again — used to drive a pure access trace
// through a pool without holding pins across steps.
func pinUnpin(t *testing.T, pool *Pool, pageNo PageNo) {
	t.Helper()
	h, err := pool.PinPage(pageNo)
	assert.NoError(t, err)
	assert.NoError(t, pool.UnpinPage(h))
}

func TestFIFOEvictsInAdmissionOrderNotAccessOrder(t *testing.T) {
	pool, _ := newMemPool(t, 3, FIFO, StrategyConfig{}, 8)

	pinUnpin(t, pool, 0)
	pinUnpin(t, pool, 1)
	pinUnpin(t, pool, 2)
	// Re-touch page 0; FIFO must not care.
	pinUnpin(t, pool, 0)

	// Fourth distinct page forces an eviction: FIFO evicts page 0, the
	// oldest admission, despite the more recent hit.
	h, err := pool.PinPage(3)
	assert.NoError(t, err)
	assert.NotContains(t, pool.FrameContents(), PageNo(0))
	assert.Contains(t, pool.FrameContents(), PageNo(1))
	assert.Contains(t, pool.FrameContents(), PageNo(2))
	assert.NoError(t, pool.UnpinPage(h))
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	pool, _ := newMemPool(t, 3, LRU, StrategyConfig{}, 8)

	pinUnpin(t, pool, 0)
	pinUnpin(t, pool, 1)
	pinUnpin(t, pool, 2)
	// Re-touch page 0: it is now the most-recently used, so 1 becomes the
	// least-recently used of the three.
	pinUnpin(t, pool, 0)

	h, err := pool.PinPage(3)
	assert.NoError(t, err)
	assert.NotContains(t, pool.FrameContents(), PageNo(1))
	assert.Contains(t, pool.FrameContents(), PageNo(0))
	assert.Contains(t, pool.FrameContents(), PageNo(2))
	assert.NoError(t, pool.UnpinPage(h))
}

func TestCLOCKGivesReferencedFramesASecondChance(t *testing.T) {
	pool, _ := newMemPool(t, 3, CLOCK, StrategyConfig{}, 16)

	// Fill all three frames; every admission sets its reference bit.
	pinUnpin(t, pool, 0)
	pinUnpin(t, pool, 1)
	pinUnpin(t, pool, 2)

	// All three bits are set, so this eviction clears all of them on its
	// first pass and takes the hand-start frame (page 0) on the second.
	pinUnpin(t, pool, 3)
	assert.NotContains(t, pool.FrameContents(), PageNo(0))

	// Re-reference page 1 (its bit, cleared by the sweep above, is set
	// again) but leave page 2's bit clear.
	pinUnpin(t, pool, 1)

	// This eviction's sweep finds page 1 referenced (gets a second
	// chance, bit cleared but spared) and immediately evicts page 2,
	// whose bit was never refreshed.
	h, err := pool.PinPage(4)
	assert.NoError(t, err)
	assert.NotContains(t, pool.FrameContents(), PageNo(2))
	assert.Contains(t, pool.FrameContents(), PageNo(1))
	assert.Contains(t, pool.FrameContents(), PageNo(3))
	assert.NoError(t, pool.UnpinPage(h))
}

func TestLFUEvictsLeastFrequentlyUsed(t *testing.T) {
	pool, _ := newMemPool(t, 3, LFU, StrategyConfig{}, 8)

	pinUnpin(t, pool, 0)
	pinUnpin(t, pool, 1)
	pinUnpin(t, pool, 2)
	// Page 0 is hit twice more: count 3 vs 1 for pages 1 and 2.
	pinUnpin(t, pool, 0)
	pinUnpin(t, pool, 0)

	h, err := pool.PinPage(3)
	assert.NoError(t, err)
	// 1 and 2 tie at count 1; the lowest slot index (page 1's, admitted
	// first) is evicted.
	assert.NotContains(t, pool.FrameContents(), PageNo(1))
	assert.Contains(t, pool.FrameContents(), PageNo(0))
	assert.Contains(t, pool.FrameContents(), PageNo(2))
	assert.NoError(t, pool.UnpinPage(h))
}

// TestLRUKPrefersIncompleteHistoryOverFullHistory exercises the scenario
// where one frame has a full K-access history and two others have fewer
// than K recorded accesses: the incomplete-history frames are always
// preferred as victims (infinite backward distance), tie-broken by
// least-recent timestamp among them.
func TestLRUKPrefersIncompleteHistoryOverFullHistory(t *testing.T) {
	pool, _ := newMemPool(t, 3, LRUK, StrategyConfig{K: 2}, 8)

	pinUnpin(t, pool, 1) // page 1: access #1
	pinUnpin(t, pool, 2) // page 2: access #1
	pinUnpin(t, pool, 3) // page 3: access #1
	pinUnpin(t, pool, 1) // page 1: access #2 -> full K=2 history

	// Page 1 has a complete 2-access history; pages 2 and 3 have only one
	// access each (infinite backward distance), so one of them is evicted
	// — specifically page 2, the earlier of the two incomplete histories.
	h, err := pool.PinPage(4)
	assert.NoError(t, err)
	assert.NotContains(t, pool.FrameContents(), PageNo(2))
	assert.Contains(t, pool.FrameContents(), PageNo(1))
	assert.Contains(t, pool.FrameContents(), PageNo(3))
	assert.NoError(t, pool.UnpinPage(h))
}

func TestNewPolicyRejectsLRUKWithoutK(t *testing.T) {
	_, err := NewPolicy(LRUK, StrategyConfig{K: 0})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestStrategyStringNames(t *testing.T) {
	assert.Equal(t, "FIFO", FIFO.String())
	assert.Equal(t, "LRU", LRU.String())
	assert.Equal(t, "CLOCK", CLOCK.String())
	assert.Equal(t, "LFU", LFU.String())
	assert.Equal(t, "LRU_K", LRUK.String())
}
