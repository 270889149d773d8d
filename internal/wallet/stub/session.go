// Package stub provides a scriptable in-memory wallet session for tests.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"vibemint/internal/wallet"
)

// Session is a fake wallet.Session. It records every contract write and can
// be scripted to fail.
type Session struct {
	mu sync.Mutex

	Addr    string
	Chain   int
	Wei     *big.Int
	started bool

	// ConnectErr, when set, makes Connect fail.
	ConnectErr error

	// WriteErr, when set, makes WriteContract fail with this error.
	WriteErr error

	// Writes records every submitted contract call in order.
	Writes []wallet.ContractCall
}

// NewSession creates a connected-on-Connect stub for the given address.
func NewSession(addr string, chain int) *Session {
	return &Session{Addr: addr, Chain: chain, Wei: big.NewInt(0)}
}

// Compile-time interface check.
var _ wallet.Session = (*Session)(nil)

func (s *Session) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.started = true
	return nil
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ""
	}
	return s.Addr
}

func (s *Session) ChainID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return 0
	}
	return s.Chain
}

func (s *Session) Balance(_ context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, wallet.ErrNotConnected
	}
	return new(big.Int).Set(s.Wei), nil
}

func (s *Session) SignMessage(_ context.Context, message []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", wallet.ErrNotConnected
	}
	return fmt.Sprintf("0xsigned:%x", message), nil
}

func (s *Session) WriteContract(_ context.Context, call wallet.ContractCall) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", wallet.ErrNotConnected
	}
	if s.WriteErr != nil {
		return "", s.WriteErr
	}
	s.Writes = append(s.Writes, call)
	return fmt.Sprintf("0xtx%04d", len(s.Writes)), nil
}

// WriteCount returns how many contract calls were submitted.
func (s *Session) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Writes)
}
