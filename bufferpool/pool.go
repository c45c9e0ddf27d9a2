package bufferpool

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/coredb/bufferpool/pagefile"
)

// Config configures a Pool at Init/NewPool time.
type Config struct {
	PageFile       string
	NumFrames      int
	Strategy       Strategy
	StrategyConfig StrategyConfig
	// Logger receives one line per eviction and per ForceFlushPool/Shutdown
	// call. Defaults to log.Default() when nil.
	Logger *log.Logger
}

// Pool is the buffer pool manager: it caches up to NumFrames pages from a
// single page file in memory, brokering access through Pin/Unpin/MarkDirty/
// Force and evicting via a pluggable ReplacementPolicy.
type Pool struct {
	mu sync.Mutex

	pageFile       string
	strategy       Strategy
	strategyConfig StrategyConfig

	table   *frameTable
	policy  ReplacementPolicy
	adapter *adapter
	closer  io.Closer

	numReadIO  int64
	numWriteIO int64

	logger *log.Logger
}

// Init verifies cfg.PageFile exists, then opens it as a disk-backed page
// file and builds a Pool over it. Fails with ErrFileNotFound if the file is
// absent, ErrInvalidParam if numFrames <= 0 or the strategy config is
// invalid, ErrStrategyNotFound for an unrecognized strategy.
func Init(cfg Config) (*Pool, error) {
	if cfg.NumFrames <= 0 {
		return nil, fmt.Errorf("num_frames must be positive, got %d: %w", cfg.NumFrames, ErrInvalidParam)
	}
	if _, err := os.Stat(cfg.PageFile); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", cfg.PageFile, ErrFileNotFound)
		}
		return nil, err
	}

	file, err := pagefile.OpenDiskFile(cfg.PageFile, PageSize)
	if err != nil {
		return nil, err
	}
	pool, err := NewPool(cfg, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return pool, nil
}

// NewPool builds a Pool directly over an already-open pagefile.PageFile
// (typically a pagefile.MemFile in tests). No existence check is performed
// since the caller already owns the file.
func NewPool(cfg Config, file pagefile.PageFile) (*Pool, error) {
	if cfg.NumFrames <= 0 {
		return nil, fmt.Errorf("num_frames must be positive, got %d: %w", cfg.NumFrames, ErrInvalidParam)
	}
	policy, err := NewPolicy(cfg.Strategy, cfg.StrategyConfig)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		pageFile:       cfg.PageFile,
		strategy:       cfg.Strategy,
		strategyConfig: cfg.StrategyConfig,
		policy:         policy,
		logger:         cfg.Logger,
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	p.table = newFrameTable(cfg.NumFrames, &p.mu)
	p.adapter = newAdapter(file, &p.numReadIO, &p.numWriteIO)
	if c, ok := file.(io.Closer); ok {
		p.closer = c
	}
	return p, nil
}

// Strategy reports the pool's replacement strategy.
func (p *Pool) Strategy() Strategy { return p.strategy }

// NumFrames reports the pool's fixed frame count.
func (p *Pool) NumFrames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.NumFrames()
}

// resolveHandleLocked validates h against the live frame table. When
// requirePinned is true, the frame must currently be pinned
// (fix_count > 0); ForcePage passes false, so it also accepts a handle
// whose frame has been unpinned but still holds the same residency
// (same page and generation).
func (p *Pool) resolveHandleLocked(h *PageHandle, requirePinned bool) (*frame, error) {
	if h == nil || h.slot < 0 || h.slot >= len(p.table.frames) {
		return nil, ErrPageNotPinned
	}
	f := &p.table.frames[h.slot]
	if f.pageNo != h.PageNo || f.generation != h.generation {
		return nil, ErrPageNotPinned
	}
	if requirePinned && f.fixCount == 0 {
		return nil, ErrPageNotPinned
	}
	return f, nil
}

// PinPage returns a handle to pageNo, fetching it from the page file on a
// miss and evicting a victim frame (via the active ReplacementPolicy) if
// necessary. Fails with ErrNoFreeFrame if every frame is pinned.
func (p *Pool) PinPage(pageNo PageNo) (*PageHandle, error) {
	p.mu.Lock()

	for {
		slot, ok := p.table.find(pageNo)
		if !ok {
			break
		}
		f := &p.table.frames[slot]
		if f.inTransit {
			f.cond.Wait()
			continue
		}
		f.fixCount++
		p.policy.OnHit(p.table, slot)
		h := &PageHandle{PageNo: pageNo, Buf: f.buffer, slot: slot, generation: f.generation}
		p.mu.Unlock()
		return h, nil
	}

	slot, ok := p.policy.ChooseVictim(p.table)
	if !ok {
		p.mu.Unlock()
		return nil, ErrNoFreeFrame
	}
	f := &p.table.frames[slot]

	wasResident := f.pageNo != NoPage
	evictPageNo := f.pageNo
	evictDirty := f.dirty

	if wasResident {
		p.table.unbind(slot)
		p.policy.OnEvict(p.table, slot)
	}

	f.inTransit = true
	f.fixCount = 1
	f.dirty = false
	p.table.bind(slot, pageNo)

	p.mu.Unlock()

	if wasResident && evictDirty {
		if err := p.adapter.writePage(evictPageNo, f.buffer); err != nil {
			p.mu.Lock()
			delete(p.table.pageIndex, pageNo)
			f.pageNo = evictPageNo
			f.dirty = true
			f.fixCount = 0
			f.inTransit = false
			p.table.pageIndex[evictPageNo] = slot
			f.cond.Broadcast()
			p.mu.Unlock()
			return nil, err
		}
		p.logger.Printf("bufferpool: evicted slot=%d page=%d dirty=true", slot, evictPageNo)
	} else if wasResident {
		p.logger.Printf("bufferpool: evicted slot=%d page=%d dirty=false", slot, evictPageNo)
	}

	if err := p.adapter.readPage(pageNo, f.buffer); err != nil {
		p.mu.Lock()
		delete(p.table.pageIndex, pageNo)
		f.pageNo = NoPage
		f.dirty = false
		f.fixCount = 0
		f.inTransit = false
		f.cond.Broadcast()
		p.mu.Unlock()
		return nil, err
	}

	p.mu.Lock()
	f.inTransit = false
	f.generation++
	p.policy.OnAdmit(p.table, slot, pageNo)
	h := &PageHandle{PageNo: pageNo, Buf: f.buffer, slot: slot, generation: f.generation}
	f.cond.Broadcast()
	p.mu.Unlock()
	return h, nil
}

// UnpinPage decrements the handle's frame's fix count. Fails with
// ErrPageNotPinned if the frame wasn't pinned by this handle.
func (p *Pool) UnpinPage(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.resolveHandleLocked(h, true)
	if err != nil {
		return err
	}
	f.fixCount--
	p.policy.OnUnpin(p.table, h.slot)
	return nil
}

// MarkDirty sets the handle's frame dirty. Fails with ErrPageNotPinned if
// the frame wasn't pinned by this handle.
func (p *Pool) MarkDirty(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.resolveHandleLocked(h, true)
	if err != nil {
		return err
	}
	f.dirty = true
	return nil
}

// ForcePage writes the handle's frame to disk and clears dirty, regardless
// of fix count.
func (p *Pool) ForcePage(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.resolveHandleLocked(h, false)
	if err != nil {
		return err
	}
	if err := p.adapter.writePage(f.pageNo, f.buffer); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// ForceFlushPool writes every dirty, unpinned frame to disk. Pinned frames
// are skipped; no frame is ever evicted by this call.
func (p *Pool) ForceFlushPool() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	flushed, err := p.forceFlushPoolLocked()
	if err != nil {
		return err
	}
	p.logger.Printf("bufferpool: force flush, flushed %d frames", flushed)
	return nil
}

// forceFlushPoolLocked writes every dirty, unpinned frame and returns how
// many it wrote.
func (p *Pool) forceFlushPoolLocked() (int, error) {
	flushed := 0
	for slot := range p.table.frames {
		f := &p.table.frames[slot]
		if f.dirty && f.fixCount == 0 {
			if err := p.adapter.writePage(f.pageNo, f.buffer); err != nil {
				return flushed, err
			}
			f.dirty = false
			flushed++
		}
	}
	return flushed, nil
}

// Shutdown fails with ErrPoolHasPinnedPages if any frame is still pinned.
// Otherwise it flushes every dirty frame and releases the pool's
// resources, including the underlying page file if it implements
// io.Closer.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for slot := range p.table.frames {
		if p.table.frames[slot].fixCount > 0 {
			return ErrPoolHasPinnedPages
		}
	}

	flushed, err := p.forceFlushPoolLocked()
	if err != nil {
		return err
	}
	p.logger.Printf("bufferpool: shutdown, flushed %d frames", flushed)

	for slot := range p.table.frames {
		p.table.frames[slot].buffer = nil
		p.table.frames[slot].policyState = nil
	}
	p.table = nil

	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
