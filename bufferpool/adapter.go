package bufferpool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coredb/bufferpool/pagefile"
)

// adapter is the thin wrapper over an external pagefile.PageFile: it counts
// I/O and translates the file's own errors into this package's taxonomy.
// It holds no frame-table state, so its methods are safe to call while the
// pool mutex is released during the frame-lease window (spec §5).
type adapter struct {
	file       pagefile.PageFile
	numReadIO  *int64
	numWriteIO *int64
}

func newAdapter(file pagefile.PageFile, numReadIO, numWriteIO *int64) *adapter {
	return &adapter{file: file, numReadIO: numReadIO, numWriteIO: numWriteIO}
}

// readPage copies pageNo's block into buf. Fails with ErrReadNonExistingPage
// if the file has no such block yet.
func (a *adapter) readPage(pageNo PageNo, buf []byte) error {
	err := a.file.ReadBlock(int(pageNo), buf)
	if err != nil {
		if errors.Is(err, pagefile.ErrBlockOutOfRange) {
			return fmt.Errorf("page %d: %w", pageNo, ErrReadNonExistingPage)
		}
		return fmt.Errorf("page %d: %w", pageNo, ErrWriteFailed)
	}
	atomic.AddInt64(a.numReadIO, 1)
	return nil
}

// writePage writes buf to pageNo's block, extending the file if needed.
// Always computes the block-aligned offset through the page file — there
// is no raw page_no-as-byte-offset path anywhere in this package.
func (a *adapter) writePage(pageNo PageNo, buf []byte) error {
	if err := a.file.EnsureCapacity(int(pageNo) + 1); err != nil {
		return fmt.Errorf("page %d: %w", pageNo, ErrWriteFailed)
	}
	if err := a.file.WriteBlock(int(pageNo), buf); err != nil {
		return fmt.Errorf("page %d: %w", pageNo, ErrWriteFailed)
	}
	atomic.AddInt64(a.numWriteIO, 1)
	return nil
}
