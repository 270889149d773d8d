// Package minting turns upload results into on-chain coin creations.
package minting

import (
	"context"
	"log"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/observability"
	"vibemint/internal/wallet"
)

// Minter submits coin creation transactions through a wallet session.
//
// Mint is not idempotent: every call submits a fresh transaction. Callers are
// responsible for gating repeat submissions; the orchestrator does this with
// its phase machine.
type Minter struct {
	session wallet.Session
	factory string
	logger  *log.Logger
}

// NewMinter creates a minter against the given coin factory contract.
func NewMinter(session wallet.Session, factoryAddress string, logger *log.Logger) *Minter {
	return &Minter{session: session, factory: factoryAddress, logger: logger}
}

// Mint builds the factory call and submits it. Rejections and node errors are
// reported in the result with the provider's message verbatim.
func (m *Minter) Mint(ctx context.Context, params domain.MintParams) domain.TxResult {
	start := time.Now()

	call, err := BuildCreateCoinCall(m.factory, params)
	if err != nil {
		m.logger.Printf("[minting] build call for %q: %v", params.Name, err)
		observability.RecordMint("invalid", time.Since(start).Seconds())
		return domain.TxResult{OK: false, Reason: err.Error()}
	}

	hash, err := m.session.WriteContract(ctx, call)
	if err != nil {
		m.logger.Printf("[minting] mint %q rejected: %v", params.Name, err)
		observability.RecordMint("rejected", time.Since(start).Seconds())
		return domain.TxResult{OK: false, Reason: err.Error()}
	}

	m.logger.Printf("[minting] minted %q (%s) tx=%s", params.Name, params.Symbol, hash)
	observability.RecordMint("ok", time.Since(start).Seconds())
	return domain.TxResult{OK: true, TxHash: hash}
}
