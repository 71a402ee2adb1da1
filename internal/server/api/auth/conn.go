package auth

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxFrame bounds the plaintext of one sealed frame.
const maxFrame = 64 * 1024

var ErrFrameTooLarge = errors.New("sealed frame too large")

// Conn seals every Write into one length prefixed frame. Nonces are frame
// counters kept by both ends, so reordered or replayed frames fail to open.
type Conn struct {
	net.Conn
	r io.Reader

	wmu     sync.Mutex
	seal    cipher.AEAD
	sendSeq uint64

	open    cipher.AEAD
	recvSeq uint64
	pending []byte
}

// newConn wraps conn; r reads from conn and may hold buffered bytes.
func newConn(conn net.Conn, r io.Reader, sendKey, recvKey []byte) (net.Conn, error) {
	seal, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return nil, err
	}
	open, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, r: r, seal: seal, open: open}, nil
}

func nonce(seq uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(n[4:], seq)
	return n
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	written := 0
	for len(p) > 0 {
		chunk := p[:min(len(p), maxFrame)]
		frame := make([]byte, 4, 4+len(chunk)+chacha20poly1305.Overhead)
		frame = c.seal.Seal(frame, nonce(c.sendSeq), chunk, nil)
		binary.BigEndian.PutUint32(frame[:4], uint32(len(frame)-4))
		c.sendSeq++
		if _, err := c.Conn.Write(frame); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

func (c *Conn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n > maxFrame+chacha20poly1305.Overhead {
			return 0, fmt.Errorf("%d bytes: %w", n, ErrFrameTooLarge)
		}
		sealed := make([]byte, n)
		if _, err := io.ReadFull(c.r, sealed); err != nil {
			return 0, err
		}
		plain, err := c.open.Open(sealed[:0], nonce(c.recvSeq), sealed, nil)
		if err != nil {
			return 0, err
		}
		c.recvSeq++
		c.pending = plain
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}
