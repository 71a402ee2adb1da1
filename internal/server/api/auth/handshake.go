package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/padmap/apitypes"
)

const (
	// Magic starts a client hello. Its first byte never starts a request
	// path.
	Magic     = "\x01PDM1"
	NonceSize = 32
	helloAck  = "OK\x00"
	authLabel = "padmap-api-auth-v1"
)

var ErrBadHello = errors.New("malformed client hello")

// ErrUnauthorized is the problem the server answers a wrong password with.
func ErrUnauthorized(detail string) *apitypes.ApiError {
	return &apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}

// IsHello reports whether the next byte of r starts a client hello.
func IsHello(r *bufio.Reader) bool {
	b, err := r.Peek(1)
	return err == nil && b[0] == Magic[0]
}

func proof(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(authLabel))
	mac.Write(clientNonce)
	return mac.Sum(nil)
}

func randomNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return n, nil
}

// Client sends the hello for key over conn and returns the sealed
// connection. A refused password yields *apitypes.ApiError.
func Client(conn net.Conn, key []byte) (net.Conn, error) {
	clientNonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	hello := append([]byte(Magic), clientNonce...)
	hello = append(hello, proof(key, clientNonce)...)
	if _, err := conn.Write(hello); err != nil {
		return nil, fmt.Errorf("write hello: %w", err)
	}

	r := bufio.NewReader(conn)
	ack := make([]byte, len(helloAck))
	if _, err := io.ReadFull(r, ack); err != nil {
		return nil, fmt.Errorf("read hello answer: %w", err)
	}
	if string(ack) != helloAck {
		rest, _ := r.ReadString('\n')
		line := strings.TrimSuffix(string(ack)+rest, "\n")
		var problem apitypes.ApiError
		if json.Unmarshal([]byte(line), &problem) == nil && problem.Status != 0 {
			return nil, &problem
		}
		return nil, fmt.Errorf("unexpected hello answer %q", line)
	}
	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	toServer, toClient, err := sessionKeys(key, clientNonce, serverNonce)
	if err != nil {
		return nil, err
	}
	return newConn(conn, r, toServer, toClient)
}

// Server reads a hello from r, answers on conn and returns the sealed
// connection. A wrong password yields ErrUnauthorized and nothing is
// written; the caller reports it.
func Server(conn net.Conn, r *bufio.Reader, key []byte) (net.Conn, error) {
	hello := make([]byte, len(Magic)+NonceSize+sha256.Size)
	if _, err := io.ReadFull(r, hello); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if string(hello[:len(Magic)]) != Magic {
		return nil, ErrBadHello
	}
	clientNonce := hello[len(Magic) : len(Magic)+NonceSize]
	if !hmac.Equal(hello[len(Magic)+NonceSize:], proof(key, clientNonce)) {
		return nil, ErrUnauthorized("invalid password")
	}
	serverNonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append([]byte(helloAck), serverNonce...)); err != nil {
		return nil, fmt.Errorf("write hello answer: %w", err)
	}
	toServer, toClient, err := sessionKeys(key, clientNonce, serverNonce)
	if err != nil {
		return nil, err
	}
	return newConn(conn, r, toClient, toServer)
}
