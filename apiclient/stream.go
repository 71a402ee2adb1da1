package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	apitypes "github.com/Alia5/padmap/apitypes"
	"github.com/Alia5/padmap/device/xinput"
)

// ErrStreamClosed is returned by operations on a closed DeviceStream.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is a connection receiving the XInput report of one slot on
// every engine tick.
type DeviceStream struct {
	conn net.Conn
	r    *bufio.Reader
	Slot int

	mu         sync.Mutex
	closed     bool
	readCancel context.CancelFunc
}

// OpenStream connects to the report stream of a slot. An error response
// from the server, such as an empty slot, is returned as *apitypes.ApiError
// by the first ReadState.
func (c *Client) OpenStream(ctx context.Context, slot int) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	streamPath := fmt.Sprintf("devices/%d/stream\x00", slot)
	if _, err := conn.Write([]byte(streamPath)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{conn: conn, r: bufio.NewReader(conn), Slot: slot}, nil
}

// ReadState blocks until the next report arrives.
func (s *DeviceStream) ReadState() (*xinput.InputState, error) {
	if s.isClosed() {
		return nil, ErrStreamClosed
	}
	// '{' would need d-pad up and down together, which a report never has.
	head, err := s.r.Peek(1)
	if err != nil {
		return nil, err
	}
	if head[0] == '{' {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		var problem apitypes.ApiError
		if jerr := json.Unmarshal([]byte(line), &problem); jerr != nil {
			return nil, fmt.Errorf("decode: %w", jerr)
		}
		return nil, &problem
	}
	var b [xinput.ReportSize]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		return nil, err
	}
	st := new(xinput.InputState)
	if err := st.UnmarshalBinary(b[:]); err != nil {
		return nil, err
	}
	return st, nil
}

// StartReading reads reports in a background goroutine until ctx ends, the
// stream is closed or a read fails. The error channel receives exactly one
// value before both channels are closed.
func (s *DeviceStream) StartReading(ctx context.Context, chSize int) (<-chan *xinput.InputState, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readCancel != nil {
		panic("StartReading called twice on the same stream")
	}

	stateCh := make(chan *xinput.InputState, chSize)
	errCh := make(chan error, 1)

	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel
	stop := context.AfterFunc(readCtx, func() { _ = s.conn.SetReadDeadline(time.Now()) })

	go func() {
		defer close(stateCh)
		defer close(errCh)
		defer cancel()
		defer stop()

		for {
			st, err := s.ReadState()
			if err != nil {
				if readCtx.Err() != nil {
					err = readCtx.Err()
				}
				errCh <- err
				return
			}
			select {
			case stateCh <- st:
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			}
		}
	}()

	return stateCh, errCh
}

// SetReadDeadline sets the read deadline for the underlying connection.
func (s *DeviceStream) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

func (s *DeviceStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close closes the stream connection and stops any background reading.
func (s *DeviceStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.readCancel != nil {
		s.readCancel()
	}
	s.mu.Unlock()
	return s.conn.Close()
}
