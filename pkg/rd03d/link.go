package rd03d

import (
	"context"
	"io"
	"os"

	"github.com/golang/glog"
)

// ByteReceiver consumes bytes from the sensor.
type ByteReceiver interface {
	OnBytes([]byte)
}

// OnBytesFunc is func type of ByteReceiver.
type OnBytesFunc func([]byte)

// OnBytes implements ByteReceiver.
func (f OnBytesFunc) OnBytes(p []byte) {
	f(p)
}

// Link pumps bytes from a Reader into a ByteReceiver.
type Link struct {
	Reader   io.Reader
	Receiver ByteReceiver
	// ReadTimeout is set when Reader returns periodically without data,
	// e.g. a serial port with a read timeout. Reads then happen on the
	// calling goroutine and cancellation is checked between reads.
	ReadTimeout bool
	BufferSize  int
}

// NewLink creates a Link.
func NewLink(r io.Reader, recv ByteReceiver) *Link {
	return &Link{Reader: r, Receiver: recv, BufferSize: RecvBufferSize}
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return "link"
}

// Run reads until ctx is done or the Reader fails.
func (l *Link) Run(ctx context.Context) error {
	size := l.BufferSize
	if size <= 0 {
		size = RecvBufferSize
	}
	if l.ReadTimeout {
		buf := make([]byte, size)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := l.Reader.Read(buf)
			if n > 0 {
				l.Receiver.OnBytes(buf[:n])
			}
			if err != nil && !os.IsTimeout(err) {
				return err
			}
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, size, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			l.Receiver.OnBytes(chunk)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) readLoop(ctx context.Context, size int, chunkCh chan []byte, errCh chan error) {
	buf := make([]byte, size)
	for {
		n, err := l.Reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			glog.V(4).Infof("RX % x", chunk)
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}
