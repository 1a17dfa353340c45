package remote

import (
	"encoding/binary"
	"io"
)

// maxStreamPacket bounds the length prefix accepted by StreamReadWriter.
const maxStreamPacket = 1 << 20

// StreamReadWriter implements PacketReadWriter over a byte stream.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type StreamReadWriter struct {
	io.ReadWriter
}

// NewStreamReadWriter creates a StreamReadWriter with io.ReadWriter.
func NewStreamReadWriter(s io.ReadWriter) *StreamReadWriter {
	return &StreamReadWriter{s}
}

// ReadPacket implements PacketReader.
func (p *StreamReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > maxStreamPacket {
		return nil, io.ErrShortBuffer
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *StreamReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := p.Write(buf)
	return err
}

// Close closes the underlying stream if it's closable.
func (p *StreamReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
