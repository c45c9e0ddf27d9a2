package pagefile

import (
	"fmt"
	"os"
	"sync"
)

// DiskFile is an os.File-backed PageFile. Block i lives at byte offset
// i*blockSize.
type DiskFile struct {
	blockSize int
	mu        sync.Mutex
	f         *os.File
}

// OpenDiskFile opens (creating if necessary) the file at path as a PageFile
// with the given block size.
func OpenDiskFile(path string, blockSize int) (*DiskFile, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("pagefile: invalid block size %d", blockSize)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("pagefile: open %s: %w", path, err)
	}
	return &DiskFile{blockSize: blockSize, f: f}, nil
}

// Close closes the underlying file after syncing it.
func (d *DiskFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("pagefile: sync on close: %w", err)
	}
	return d.f.Close()
}

func (d *DiskFile) NumBlocks() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.numBlocksLocked()
}

func (d *DiskFile) numBlocksLocked() (int, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("pagefile: stat: %w", err)
	}
	return int(info.Size() / int64(d.blockSize)), nil
}

func (d *DiskFile) EnsureCapacity(numBlocks int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureCapacityLocked(numBlocks)
}

func (d *DiskFile) ensureCapacityLocked(numBlocks int) error {
	cur, err := d.numBlocksLocked()
	if err != nil {
		return err
	}
	if numBlocks <= cur {
		return nil
	}
	size := int64(numBlocks) * int64(d.blockSize)
	if err := d.f.Truncate(size); err != nil {
		return fmt.Errorf("pagefile: truncate: %w", err)
	}
	return nil
}

func (d *DiskFile) ReadBlock(blockNo int, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur, err := d.numBlocksLocked()
	if err != nil {
		return err
	}
	if blockNo < 0 || blockNo >= cur {
		return ErrBlockOutOfRange
	}
	if len(buf) != d.blockSize {
		return fmt.Errorf("pagefile: read buffer size %d != block size %d", len(buf), d.blockSize)
	}

	offset := int64(blockNo) * int64(d.blockSize)
	if _, err := d.f.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("pagefile: read block %d: %w", blockNo, err)
	}
	return nil
}

func (d *DiskFile) WriteBlock(blockNo int, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(buf) != d.blockSize {
		return fmt.Errorf("pagefile: write buffer size %d != block size %d", len(buf), d.blockSize)
	}
	if err := d.ensureCapacityLocked(blockNo + 1); err != nil {
		return err
	}

	offset := int64(blockNo) * int64(d.blockSize)
	if _, err := d.f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("pagefile: write block %d: %w", blockNo, err)
	}
	return nil
}
