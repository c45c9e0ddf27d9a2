package bufferpool

// PageHandle is a thin, caller-held reference to one pinned frame. It is
// valid only between the PinPage that produced it and the matching
// UnpinPage. The generation field guards against a handle surviving a
// slot's eviction and later re-admission under a different page (the
// original C buffer manager matched handles by page_no equality alone,
// which is ambiguous across re-residency — see DESIGN.md).
type PageHandle struct {
	PageNo     PageNo
	Buf        []byte
	slot       int
	generation uint64
}
