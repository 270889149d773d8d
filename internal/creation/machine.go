// Package creation owns the coin creation state machine: one Machine per
// dialog session, driving generate, upload and mint through explicit phases.
package creation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/market"
	"vibemint/internal/minting"
	"vibemint/internal/observability"
	"vibemint/internal/storage"
	"vibemint/internal/wallet"
)

// Machine errors.
var (
	// ErrInvalidTransition is returned when an operation is not legal in the
	// current phase.
	ErrInvalidTransition = errors.New("operation not allowed in current phase")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")

	// ErrWalletNotConnected is returned when minting without a connected wallet.
	ErrWalletNotConnected = errors.New("wallet not connected")
)

// Generator produces an image for a request. Satisfied by imagegen.Pipeline.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult
}

// Uploader pushes an image to the metadata backend. Satisfied by upload.Client.
type Uploader interface {
	Upload(ctx context.Context, imageData, prompt string) domain.UploadResult
}

// MintSubmitter submits a coin creation. Satisfied by minting.Minter.
type MintSubmitter interface {
	Mint(ctx context.Context, params domain.MintParams) domain.TxResult
}

// eventBufferSize bounds the subscriber channel. Slow subscribers lose events
// rather than blocking the machine.
const eventBufferSize = 32

// Machine is one dialog session's pipeline. All transitions happen here; the
// stages themselves never touch the phase.
type Machine struct {
	id       string
	gen      Generator
	uploader Uploader
	minter   MintSubmitter
	session  wallet.Session
	ledger   storage.CreationStore // optional
	referrer string
	logger   *log.Logger

	mu      sync.Mutex
	phase   domain.Phase
	attempt string
	closed  bool

	coins     []domain.Coin
	prompt    string
	genResult domain.GenerationResult
	upResult  domain.UploadResult
	params    domain.MintParams
	lastErr   string
	txHash    string

	events chan domain.Event
}

// NewMachine creates an idle machine for one session.
func NewMachine(id string, gen Generator, uploader Uploader, minter MintSubmitter,
	session wallet.Session, ledger storage.CreationStore, platformReferrer string,
	logger *log.Logger) *Machine {

	return &Machine{
		id:       id,
		gen:      gen,
		uploader: uploader,
		minter:   minter,
		session:  session,
		ledger:   ledger,
		referrer: platformReferrer,
		logger:   logger,
		phase:    domain.PhaseIdle,
		events:   make(chan domain.Event, eventBufferSize),
	}
}

// Events returns the machine's event feed. Events are dropped, not queued,
// when the subscriber falls more than eventBufferSize behind.
func (m *Machine) Events() <-chan domain.Event {
	return m.events
}

// ID returns the session id.
func (m *Machine) ID() string { return m.id }

// Status is a point-in-time snapshot of the machine.
type Status struct {
	SessionID    string             `json:"session_id"`
	Phase        domain.Phase       `json:"phase"`
	Attempt      string             `json:"attempt,omitempty"`
	Prompt       string             `json:"prompt,omitempty"`
	CoinIDs      []string           `json:"coin_ids,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
	TxHash       string             `json:"tx_hash,omitempty"`
	MintParams   *domain.MintParams `json:"mint_params,omitempty"`
	PreviewImage string             `json:"preview_image,omitempty"`
}

// Status reports the current machine state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		SessionID: m.id,
		Phase:     m.phase,
		Attempt:   m.attempt,
		Prompt:    m.prompt,
		LastError: m.lastErr,
		TxHash:    m.txHash,
	}
	for _, c := range m.coins {
		s.CoinIDs = append(s.CoinIDs, c.ID)
	}
	if m.phase == domain.PhaseMintReady || m.phase == domain.PhaseMinting {
		params := m.params
		s.MintParams = &params
	}
	if m.upResult.OK {
		s.PreviewImage = m.upResult.PreviewImage
	}
	return s
}

// Start begins a new run from idle or error. The pipeline executes
// asynchronously; progress arrives on the event feed.
func (m *Machine) Start(ctx context.Context, coins []domain.Coin, prompt string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.phase.CanStart() {
		m.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, m.phase)
	}

	m.coins = append([]domain.Coin(nil), coins...)
	m.prompt = prompt
	token := m.begin()
	m.mu.Unlock()

	go m.run(token)
	return nil
}

// Retry restarts the pipeline after a failure. Every retry re-enters image
// generation from scratch, whatever stage failed.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.phase.CanRetry() {
		m.mu.Unlock()
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, m.phase)
	}

	token := m.begin()
	m.mu.Unlock()

	go m.run(token)
	return nil
}

// begin issues a fresh attempt token and enters generating_image.
// Caller holds m.mu.
func (m *Machine) begin() string {
	m.attempt = newAttemptToken()
	m.lastErr = ""
	m.txHash = ""
	m.genResult = domain.GenerationResult{}
	m.upResult = domain.UploadResult{}
	m.params = domain.MintParams{}
	m.setPhaseLocked(domain.PhaseGeneratingImage)
	return m.attempt
}

// run executes generate then upload for one attempt. It deliberately uses a
// background context: Close abandons in-flight work via the attempt token
// instead of cancelling it.
func (m *Machine) run(token string) {
	ctx := context.Background()

	req := m.buildRequest()
	genRes := m.gen.Generate(ctx, req)

	m.mu.Lock()
	if !m.currentLocked(token) {
		m.mu.Unlock()
		observability.RecordStaleResultDropped()
		return
	}
	if !genRes.OK {
		m.failLocked(token, genRes.Reason)
		m.mu.Unlock()
		return
	}
	m.genResult = genRes
	m.setPhaseLocked(domain.PhaseUploadingMetadata)
	m.emitLocked(domain.Event{Kind: domain.EventGenerated, Phase: domain.PhaseUploadingMetadata, Attempt: token})
	prompt := m.prompt
	m.mu.Unlock()

	upRes := m.uploader.Upload(ctx, genRes.ImageData, prompt)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(token) {
		observability.RecordStaleResultDropped()
		return
	}
	if !upRes.OK {
		m.failLocked(token, upRes.Reason)
		return
	}
	m.upResult = upRes
	m.params = m.buildParamsLocked()
	m.setPhaseLocked(domain.PhaseMintReady)
	m.emitLocked(domain.Event{Kind: domain.EventUploaded, Phase: domain.PhaseMintReady, Attempt: token})
}

// buildRequest assembles the generation request from the selected coins.
func (m *Machine) buildRequest() domain.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	req := domain.GenerationRequest{Prompt: m.prompt}
	for _, c := range m.coins {
		req.ImageURLs = append(req.ImageURLs, market.ResolveImageURL(c))
		req.CoinNames = append(req.CoinNames, c.DisplayName())
	}
	return req
}

// buildParamsLocked assembles mint params from the latest upload result.
// Caller holds m.mu.
func (m *Machine) buildParamsLocked() domain.MintParams {
	return domain.MintParams{
		Name:             m.upResult.Name,
		Symbol:           minting.DeriveSymbol(m.upResult.Name),
		ContentURI:       m.upResult.StorageURI,
		PayoutRecipient:  m.session.Address(),
		PlatformReferrer: m.referrer,
	}
}

// Mint submits the coin creation. Only legal from mint_ready; the phase gate
// is what makes double submission impossible, since Mint itself will happily
// submit again.
func (m *Machine) Mint(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.phase.CanMint() {
		m.mu.Unlock()
		return fmt.Errorf("%w: mint from %s", ErrInvalidTransition, m.phase)
	}
	if !m.session.Connected() {
		m.mu.Unlock()
		return ErrWalletNotConnected
	}

	// Rebuild from the latest upload result so the params always reflect the
	// currently connected wallet.
	m.params = m.buildParamsLocked()
	params := m.params
	token := m.attempt
	m.setPhaseLocked(domain.PhaseMinting)
	m.mu.Unlock()

	go m.mint(token, params)
	return nil
}

func (m *Machine) mint(token string, params domain.MintParams) {
	res := m.minter.Mint(context.Background(), params)

	m.mu.Lock()
	if !m.currentLocked(token) {
		m.mu.Unlock()
		observability.RecordStaleResultDropped()
		return
	}
	if !res.OK {
		m.failLocked(token, res.Reason)
		m.mu.Unlock()
		return
	}

	m.txHash = res.TxHash
	m.setPhaseLocked(domain.PhaseComplete)
	rec := m.ledgerRecordLocked(params, res.TxHash)
	m.emitLocked(domain.Event{
		Kind:    domain.EventCompleted,
		Phase:   domain.PhaseComplete,
		Attempt: token,
		TxHash:  res.TxHash,
	})

	// Completion clears the working set; the next Start begins clean.
	m.coins = nil
	m.prompt = ""
	m.mu.Unlock()

	// The insert happens off the lock: a slow store must not stall Status,
	// Close or event consumers.
	m.writeLedger(rec)
}

// ledgerRecordLocked snapshots the completed creation for the ledger, or nil
// when no ledger is configured. Caller holds m.mu.
func (m *Machine) ledgerRecordLocked(params domain.MintParams, txHash string) *domain.CreationRecord {
	if m.ledger == nil {
		return nil
	}

	rec := &domain.CreationRecord{
		SessionID:     m.id,
		WalletAddress: params.PayoutRecipient,
		CoinName:      params.Name,
		CoinSymbol:    params.Symbol,
		ContentURI:    params.ContentURI,
		TxHash:        txHash,
		Prompt:        m.prompt,
		CreatedAt:     time.Now().UTC(),
	}
	for _, c := range m.coins {
		rec.SourceCoinIDs = append(rec.SourceCoinIDs, c.ID)
	}
	return rec
}

// writeLedger records the completed creation. Best-effort: a ledger failure
// never un-completes the session.
func (m *Machine) writeLedger(rec *domain.CreationRecord) {
	if rec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.ledger.Insert(ctx, rec); err != nil {
		m.logger.Printf("[creation] %s: ledger write failed: %v", m.id, err)
	}
}

// Close abandons the session in any phase. In-flight work keeps running but
// its results are dropped by the token check.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.attempt = ""
	close(m.events)
}

// currentLocked reports whether token still identifies the live attempt.
// Caller holds m.mu.
func (m *Machine) currentLocked(token string) bool {
	return !m.closed && token == m.attempt
}

// failLocked enters the error phase. Caller holds m.mu.
func (m *Machine) failLocked(token, reason string) {
	m.lastErr = reason
	m.setPhaseLocked(domain.PhaseError)
	m.emitLocked(domain.Event{
		Kind:    domain.EventFailed,
		Phase:   domain.PhaseError,
		Attempt: token,
		Reason:  reason,
	})
}

// setPhaseLocked transitions the phase and emits the change.
// Caller holds m.mu.
func (m *Machine) setPhaseLocked(p domain.Phase) {
	if m.phase == p {
		return
	}
	m.phase = p
	observability.RecordPhaseTransition(string(p))
	m.emitLocked(domain.Event{Kind: domain.EventPhaseChanged, Phase: p, Attempt: m.attempt})
}

// emitLocked delivers an event without blocking. Caller holds m.mu.
func (m *Machine) emitLocked(ev domain.Event) {
	if m.closed {
		return
	}
	ev.SessionID = m.id
	ev.At = time.Now().UTC()
	select {
	case m.events <- ev:
	default:
		m.logger.Printf("[creation] %s: event feed full, dropping %s", m.id, ev.Kind)
	}
}
