package disk

import (
	"encoding/binary"
	"errors"
)

// PageSize is the fixed size, in bytes, of every page moved between disk and
// the buffer pool.
const PageSize = 4096

// PageID identifies a page across the lifetime of the data file.
type PageID int32

// InvalidPageID marks "no page": a fresh frame, a directory slot with no
// bucket yet, and so on.
const InvalidPageID PageID = -1

// Page is the raw byte contents of one page. It carries no metadata of its
// own — page id, pin count and the dirty bit live in the buffer pool's frame
// header (lib/buffer), not here, mirroring the frame/page split of a
// classic buffer manager.
type Page [PageSize]byte

// NewPage returns a zero-filled page.
func NewPage() *Page {
	return &Page{}
}

// Reset zero-fills the page in place, used when a frame is recycled for a
// new identity.
func (p *Page) Reset() {
	*p = Page{}
}

// Bytes returns the page's backing array as a slice, aliasing the same
// memory. Callers must copy out anything they need to keep past the next
// unpin.
func (p *Page) Bytes() []byte {
	return p[:]
}

func (p *Page) GetInt32(offset int) int32 {
	return int32(binary.LittleEndian.Uint32(p[offset:]))
}

func (p *Page) PutInt32(offset int, v int32) {
	binary.LittleEndian.PutUint32(p[offset:], uint32(v))
}

func (p *Page) GetUint32(offset int) uint32 {
	return binary.LittleEndian.Uint32(p[offset:])
}

func (p *Page) PutUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(p[offset:], v)
}

func (p *Page) GetUint64(offset int) uint64 {
	return binary.LittleEndian.Uint64(p[offset:])
}

func (p *Page) PutUint64(offset int, v uint64) {
	binary.LittleEndian.PutUint64(p[offset:], v)
}

// GetBytes reads a length-prefixed byte slice written by PutBytes.
func (p *Page) GetBytes(offset int) []byte {
	length := p.GetInt32(offset)
	b := make([]byte, length)
	copy(b, p[offset+4:offset+4+int(length)])
	return b
}

// PutBytes writes a length-prefixed byte slice at offset, returning the
// number of bytes consumed including the length prefix.
func (p *Page) PutBytes(offset int, b []byte) (int, error) {
	if offset+4+len(b) > PageSize {
		return 0, errors.New("disk: PutBytes overruns page bounds")
	}
	p.PutInt32(offset, int32(len(b)))
	copy(p[offset+4:], b)
	return len(b) + 4, nil
}

func (p *Page) GetString(offset int) string {
	return string(p.GetBytes(offset))
}

func (p *Page) PutString(offset int, s string) (int, error) {
	return p.PutBytes(offset, []byte(s))
}
