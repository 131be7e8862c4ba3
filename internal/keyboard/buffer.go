package keyboard

import (
	"sync"
	"unicode/utf8"
)

// Buffer is an in-memory TextProxy. Deletion removes whole code points, so
// multi-byte glyphs such as Braille cells are never split.
type Buffer struct {
	mu  sync.RWMutex
	buf []byte
}

// NewBuffer returns a buffer holding initial.
func NewBuffer(initial string) *Buffer {
	return &Buffer{buf: []byte(initial)}
}

// InsertText appends text at the cursor.
func (b *Buffer) InsertText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, text...)
}

// DeleteBackward removes the last code point. It is a no-op on an empty buffer.
func (b *Buffer) DeleteBackward() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) == 0 {
		return
	}
	_, size := utf8.DecodeLastRune(b.buf)
	b.buf = b.buf[:len(b.buf)-size]
}

// String returns the current contents.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.buf)
}

// Len returns the number of code points in the buffer.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return utf8.RuneCount(b.buf)
}
