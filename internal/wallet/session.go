// Package wallet binds a dialog session to an EVM wallet provider. The
// provider holds the keys; this package only gates which chains are acceptable
// and relays calls.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"

	"vibemint/internal/config"
)

// Session errors.
var (
	// ErrNotConnected is returned when an operation requires a connected wallet.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrChainNotAllowed is returned when the provider reports a chain outside
	// the allow-list.
	ErrChainNotAllowed = errors.New("chain not allowed")

	// ErrNoAccounts is returned when the provider controls no addresses.
	ErrNoAccounts = errors.New("provider has no accounts")
)

// ContractCall is an opaque contract invocation: target address, pre-encoded
// calldata and optional value in wei.
type ContractCall struct {
	To    string
	Data  []byte
	Value *big.Int
}

// Session is one user's wallet connection.
type Session interface {
	// Connect establishes the connection and verifies the chain.
	Connect(ctx context.Context) error

	// Disconnect drops the connection. Safe to call when not connected.
	Disconnect()

	// Connected reports whether the session is live.
	Connected() bool

	// Address returns the connected address, empty when not connected.
	Address() string

	// ChainID returns the connected chain, 0 when not connected.
	ChainID() int

	// Balance returns the connected address balance in wei.
	Balance(ctx context.Context) (*big.Int, error)

	// SignMessage asks the wallet to sign an arbitrary message.
	SignMessage(ctx context.Context, message []byte) (string, error)

	// WriteContract submits a contract call and returns the tx hash.
	WriteContract(ctx context.Context, call ContractCall) (string, error)
}

// RPCSession implements Session over an EVM JSON-RPC wallet provider.
type RPCSession struct {
	client *HTTPClient
	logger *log.Logger

	mu        sync.RWMutex
	connected bool
	address   string
	chainID   int
}

// NewRPCSession creates a session over the given provider client.
func NewRPCSession(client *HTTPClient, logger *log.Logger) *RPCSession {
	return &RPCSession{client: client, logger: logger}
}

// Compile-time interface check.
var _ Session = (*RPCSession)(nil)

// Connect queries the provider's chain and accounts, refusing chains outside
// the allow-list.
func (s *RPCSession) Connect(ctx context.Context) error {
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("query chain id: %w", err)
	}
	if !config.AllowedChain(chainID) {
		return fmt.Errorf("%w: %d", ErrChainNotAllowed, chainID)
	}

	accounts, err := s.client.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("query accounts: %w", err)
	}
	if len(accounts) == 0 {
		return ErrNoAccounts
	}

	s.mu.Lock()
	s.connected = true
	s.address = accounts[0]
	s.chainID = chainID
	s.mu.Unlock()

	s.logger.Printf("[wallet] connected %s on chain %d", accounts[0], chainID)
	return nil
}

// Disconnect drops the connection.
func (s *RPCSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.logger.Printf("[wallet] disconnected %s", s.address)
	}
	s.connected = false
	s.address = ""
	s.chainID = 0
}

// Connected reports whether the session is live.
func (s *RPCSession) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Address returns the connected address.
func (s *RPCSession) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// ChainID returns the connected chain.
func (s *RPCSession) ChainID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}

// Balance returns the connected address balance in wei.
func (s *RPCSession) Balance(ctx context.Context) (*big.Int, error) {
	addr, err := s.requireConnected()
	if err != nil {
		return nil, err
	}
	return s.client.GetBalance(ctx, addr)
}

// SignMessage asks the wallet to sign a message.
func (s *RPCSession) SignMessage(ctx context.Context, message []byte) (string, error) {
	addr, err := s.requireConnected()
	if err != nil {
		return "", err
	}
	return s.client.PersonalSign(ctx, addr, message)
}

// WriteContract submits a contract call through the provider.
func (s *RPCSession) WriteContract(ctx context.Context, call ContractCall) (string, error) {
	addr, err := s.requireConnected()
	if err != nil {
		return "", err
	}
	return s.client.SendTransaction(ctx, addr, call)
}

func (s *RPCSession) requireConnected() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return "", ErrNotConnected
	}
	return s.address, nil
}
