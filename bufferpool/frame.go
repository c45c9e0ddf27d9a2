package bufferpool

import "sync"

// frame is one slot in the frame table: a resident page's buffer plus the
// bookkeeping needed to pin, evict and validate handles against it.
type frame struct {
	slotIndex  int
	pageNo     PageNo
	buffer     []byte
	dirty      bool
	fixCount   int
	generation uint64
	policyState any

	// inTransit marks a slot mid frame-lease: admitted (fixCount, pageNo,
	// dirty already set) but the admission read hasn't completed and
	// on_admit hasn't run yet. Other goroutines wait on cond rather than
	// treating the slot as a normal hit or a normal empty slot.
	inTransit bool
	cond      *sync.Cond
}

// frameTable is a fixed-length array of frames plus the page->slot index
// required by invariant (2): every resident page_no is unique across
// frames and page_index[page_no] == slot_index.
type frameTable struct {
	frames    []frame
	pageIndex map[PageNo]int
}

func newFrameTable(numFrames int, mu *sync.Mutex) *frameTable {
	frames := make([]frame, numFrames)
	for i := range frames {
		frames[i] = frame{
			slotIndex: i,
			pageNo:    NoPage,
			buffer:    make([]byte, PageSize),
			cond:      sync.NewCond(mu),
		}
	}
	return &frameTable{
		frames:    frames,
		pageIndex: make(map[PageNo]int, numFrames),
	}
}

// find returns the slot currently holding pageNo, or (0, false).
func (ft *frameTable) find(pageNo PageNo) (int, bool) {
	slot, ok := ft.pageIndex[pageNo]
	return slot, ok
}

// bind atomically (wrt invariant 2) associates slot with pageNo in the
// index and on the frame itself.
func (ft *frameTable) bind(slot int, pageNo PageNo) {
	ft.frames[slot].pageNo = pageNo
	ft.pageIndex[pageNo] = slot
}

// unbind removes slot's current residency from the index, leaving the
// frame's own pageNo field for the caller to reset.
func (ft *frameTable) unbind(slot int) {
	pageNo := ft.frames[slot].pageNo
	delete(ft.pageIndex, pageNo)
}

// --- frameAccessor: the narrow, read/write view a ReplacementPolicy gets.

// frameAccessor lets a ReplacementPolicy inspect and update per-frame
// bookkeeping without owning the frame table itself. frameTable implements
// it; the Pool passes its table to every policy call.
type frameAccessor interface {
	NumFrames() int
	PageNoAt(slot int) PageNo
	FixCountAt(slot int) int
	PolicyStateAt(slot int) any
	SetPolicyStateAt(slot int, state any)
}

func (ft *frameTable) NumFrames() int             { return len(ft.frames) }
func (ft *frameTable) PageNoAt(slot int) PageNo   { return ft.frames[slot].pageNo }
func (ft *frameTable) FixCountAt(slot int) int    { return ft.frames[slot].fixCount }
func (ft *frameTable) PolicyStateAt(slot int) any { return ft.frames[slot].policyState }
func (ft *frameTable) SetPolicyStateAt(slot int, state any) {
	ft.frames[slot].policyState = state
}
