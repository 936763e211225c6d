package rfb

import (
	"bytes"
	"encoding/binary"
)

// growIncrement is the allocation step a Buffer grows by when its free
// space runs out.
const growIncrement = 64 * 1024

// Buffer is a grow-on-demand byte accumulator used to build an outgoing
// protocol message (e.g. the SetEncodings id list) before handing the
// finished bytes to the connection's send path in one write.
//
// This repo's I/O driver reads incoming bytes directly off a blocking
// bufio.Reader (see client.go's receive/receiveN/readFull and Open
// Question 3 in DESIGN.md), so Buffer has no read-cursor or rewind
// responsibility on the inbound side; it is write-only.
type Buffer struct {
	storage []byte
	write   int
}

// NewBuffer returns a Buffer, optionally preloaded with initial.
func NewBuffer(initial []byte) *Buffer {
	b := &Buffer{}
	if len(initial) > 0 {
		b.storage = append([]byte(nil), initial...)
		b.write = len(b.storage)
	}
	return b
}

// Reserve ensures at least n bytes of free space after the write
// cursor, growing storage in growIncrement steps.
func (b *Buffer) Reserve(n int) {
	need := b.write + n
	if need <= len(b.storage) {
		return
	}
	grown := len(b.storage)
	if grown == 0 {
		grown = growIncrement
	}
	for grown < need {
		grown += growIncrement
	}
	next := make([]byte, grown)
	copy(next, b.storage[:b.write])
	b.storage = next
}

// Append writes p at the write cursor, growing storage as needed.
func (b *Buffer) Append(p []byte) {
	b.Reserve(len(p))
	copy(b.storage[b.write:], p)
	b.write += len(p)
}

// Write big-endian encodes v and appends the result, unless v is
// already a []byte, in which case it is appended directly.
func (b *Buffer) Write(v interface{}) error {
	if raw, ok := v.([]byte); ok {
		b.Append(raw)
		return nil
	}
	var tmp bytes.Buffer
	if err := binary.Write(&tmp, binary.BigEndian, v); err != nil {
		return err
	}
	b.Append(tmp.Bytes())
	return nil
}

// Bytes returns everything written to the buffer so far.
func (b *Buffer) Bytes() []byte { return b.storage[:b.write] }
