package creation

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/storage/memory"
	"vibemint/internal/wallet/stub"
)

const (
	testWallet   = "0x1111111111111111111111111111111111111111"
	testReferrer = "0x2222222222222222222222222222222222222222"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeGenerator returns scripted results, optionally blocking until released.
type fakeGenerator struct {
	mu      sync.Mutex
	result  domain.GenerationResult
	release chan struct{} // when set, Generate blocks until closed
	calls   int
	lastReq domain.GenerationRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest) domain.GenerationResult {
	g.mu.Lock()
	g.calls++
	g.lastReq = req
	release := g.release
	res := g.result
	g.mu.Unlock()
	if release != nil {
		<-release
	}
	return res
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeUploader struct {
	mu     sync.Mutex
	result domain.UploadResult
	calls  int
}

func (u *fakeUploader) Upload(_ context.Context, imageData, prompt string) domain.UploadResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	return u.result
}

type fakeMinter struct {
	mu     sync.Mutex
	result domain.TxResult
	calls  int
}

func (f *fakeMinter) Mint(_ context.Context, params domain.MintParams) domain.TxResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

func (f *fakeMinter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okGenerator() *fakeGenerator {
	return &fakeGenerator{result: domain.GenerationSuccess("aW1n", "image/png")}
}

func okUploader() *fakeUploader {
	return &fakeUploader{result: domain.UploadSuccess("ipfs://meta", "Foo Bar Meme", "desc", "aW1n")}
}

func okMinter() *fakeMinter {
	return &fakeMinter{result: domain.TxResult{OK: true, TxHash: "0xfeed"}}
}

func connectedSession() *stub.Session {
	s := stub.NewSession(testWallet, 8453)
	s.Connect(context.Background())
	return s
}

// waitFor consumes events until one matches, failing the test on timeout.
func waitFor(t *testing.T, events <-chan domain.Event, kind domain.EventKind) domain.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event feed closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func selectedCoins() []domain.Coin {
	name1, name2 := "Doge Classic", "Cat Coin"
	img := "https://img/a.png"
	return []domain.Coin{
		{ID: "0xaaa", Name: &name1, ImageURL: &img},
		{ID: "0xbbb", Name: &name2},
	}
}

func TestMachineHappyPath(t *testing.T) {
	gen := okGenerator()
	up := okUploader()
	mint := okMinter()
	ledger := memory.NewCreationStore()
	m := NewMachine("sess-1", gen, up, mint, connectedSession(), ledger, testReferrer, testLogger())

	if err := m.Start(context.Background(), selectedCoins(), "merge them"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, m.Events(), domain.EventUploaded)
	st := m.Status()
	if st.Phase != domain.PhaseMintReady {
		t.Fatalf("phase = %s, want mint_ready", st.Phase)
	}
	if st.MintParams == nil {
		t.Fatal("mint_ready status should expose mint params")
	}
	if st.MintParams.Symbol != "FBM" {
		t.Errorf("Symbol = %q, want initialism FBM", st.MintParams.Symbol)
	}
	if st.MintParams.PayoutRecipient != testWallet {
		t.Errorf("PayoutRecipient = %q, want the connected wallet", st.MintParams.PayoutRecipient)
	}
	if st.MintParams.PlatformReferrer != testReferrer {
		t.Errorf("PlatformReferrer = %q", st.MintParams.PlatformReferrer)
	}

	if err := m.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	ev := waitFor(t, m.Events(), domain.EventCompleted)
	if ev.TxHash != "0xfeed" {
		t.Errorf("TxHash = %q", ev.TxHash)
	}

	st = m.Status()
	if st.Phase != domain.PhaseComplete {
		t.Errorf("phase = %s, want complete", st.Phase)
	}
	if len(st.CoinIDs) != 0 || st.Prompt != "" {
		t.Error("completion should clear the selection and prompt")
	}

	rec, err := ledger.GetBySessionID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("ledger record: %v", err)
	}
	if rec.CoinSymbol != "FBM" || rec.TxHash != "0xfeed" || rec.WalletAddress != testWallet {
		t.Errorf("unexpected ledger record: %+v", rec)
	}
	if len(rec.SourceCoinIDs) != 2 || rec.SourceCoinIDs[0] != "0xaaa" {
		t.Errorf("SourceCoinIDs = %v", rec.SourceCoinIDs)
	}
}

func TestMachineRequestCarriesCoinImagesAndNames(t *testing.T) {
	gen := okGenerator()
	m := NewMachine("sess-1", gen, okUploader(), okMinter(), connectedSession(), nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "")
	waitFor(t, m.Events(), domain.EventUploaded)

	req := gen.lastReq
	if len(req.ImageURLs) != 2 {
		t.Fatalf("ImageURLs = %v", req.ImageURLs)
	}
	if req.ImageURLs[0] != "https://img/a.png" {
		t.Errorf("first URL = %q", req.ImageURLs[0])
	}
	if req.ImageURLs[1] != "/placeholder-coin.png" {
		t.Errorf("imageless coin should contribute the placeholder, got %q", req.ImageURLs[1])
	}
	if len(req.CoinNames) != 2 || req.CoinNames[0] != "Doge Classic" {
		t.Errorf("CoinNames = %v", req.CoinNames)
	}
}

func TestMachineGenerationFailureEntersError(t *testing.T) {
	gen := &fakeGenerator{result: domain.GenerationFailure("provider down")}
	m := NewMachine("sess-1", gen, okUploader(), okMinter(), connectedSession(), nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	ev := waitFor(t, m.Events(), domain.EventFailed)
	if ev.Reason != "provider down" {
		t.Errorf("Reason = %q", ev.Reason)
	}
	if m.Status().Phase != domain.PhaseError {
		t.Errorf("phase = %s, want error", m.Status().Phase)
	}
}

func TestMachineUploadFailureRetriesFromGeneration(t *testing.T) {
	gen := okGenerator()
	up := &fakeUploader{result: domain.UploadFailure("upload broke")}
	m := NewMachine("sess-1", gen, up, okMinter(), connectedSession(), nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	waitFor(t, m.Events(), domain.EventFailed)

	// Fix the uploader, then retry: generation must run again.
	up.mu.Lock()
	up.result = domain.UploadSuccess("ipfs://meta", "Foo", "", "")
	up.mu.Unlock()

	if err := m.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	waitFor(t, m.Events(), domain.EventUploaded)

	if gen.callCount() != 2 {
		t.Errorf("generator calls = %d, retry must restart from image generation", gen.callCount())
	}
}

func TestMachineTransitionGates(t *testing.T) {
	release := make(chan struct{})
	gen := okGenerator()
	gen.release = release
	m := NewMachine("sess-1", gen, okUploader(), okMinter(), connectedSession(), nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")

	// Active run: no second start, no retry, no mint.
	if err := m.Start(context.Background(), selectedCoins(), "p"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Start during run: %v", err)
	}
	if err := m.Retry(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Retry outside error: %v", err)
	}
	if err := m.Mint(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Mint outside mint_ready: %v", err)
	}

	close(release)
	waitFor(t, m.Events(), domain.EventUploaded)
}

func TestMachineMintGateBlocksDoubleSubmission(t *testing.T) {
	mint := okMinter()
	m := NewMachine("sess-1", okGenerator(), okUploader(), mint, connectedSession(), nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	waitFor(t, m.Events(), domain.EventUploaded)

	if err := m.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	// Second mint races the first's completion; whichever phase it sees
	// (minting or complete), it must be refused.
	if err := m.Mint(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Mint: %v, want ErrInvalidTransition", err)
	}

	waitFor(t, m.Events(), domain.EventCompleted)
	if mint.callCount() != 1 {
		t.Errorf("mint submissions = %d, want exactly 1", mint.callCount())
	}
}

func TestMachineMintRequiresWallet(t *testing.T) {
	session := stub.NewSession(testWallet, 8453) // never connected
	m := NewMachine("sess-1", okGenerator(), okUploader(), okMinter(), session, nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	waitFor(t, m.Events(), domain.EventUploaded)

	if err := m.Mint(context.Background()); !errors.Is(err, ErrWalletNotConnected) {
		t.Errorf("Mint without wallet: %v", err)
	}
}

func TestMachineMintRejectionKeepsReasonVerbatim(t *testing.T) {
	mint := &fakeMinter{result: domain.TxResult{OK: false, Reason: "User rejected the request"}}
	m := NewMachine("sess-1", okGenerator(), okUploader(), mint, connectedSession(), nil, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	waitFor(t, m.Events(), domain.EventUploaded)
	m.Mint(context.Background())

	ev := waitFor(t, m.Events(), domain.EventFailed)
	if ev.Reason != "User rejected the request" {
		t.Errorf("Reason = %q, want the provider message verbatim", ev.Reason)
	}
	if m.Status().Phase != domain.PhaseError {
		t.Errorf("phase = %s, want error", m.Status().Phase)
	}
}

func TestMachineCloseDropsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	gen := okGenerator()
	gen.release = release
	ledger := memory.NewCreationStore()
	m := NewMachine("sess-1", gen, okUploader(), okMinter(), connectedSession(), ledger, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	m.Close()
	close(release) // generation finishes after close

	// Give the abandoned goroutine a moment, then confirm nothing advanced.
	time.Sleep(50 * time.Millisecond)
	if _, err := ledger.GetBySessionID(context.Background(), "sess-1"); err == nil {
		t.Error("abandoned run must not write the ledger")
	}
	if err := m.Start(context.Background(), selectedCoins(), "p"); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close: %v, want ErrClosed", err)
	}
}

func TestMachineSuccessfulRunEventKinds(t *testing.T) {
	m := NewMachine("sess-1", okGenerator(), okUploader(), okMinter(), connectedSession(), nil, testReferrer, testLogger())

	if err := m.Start(context.Background(), selectedCoins(), "p"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	seen := map[domain.EventKind]int{}
	deadline := time.After(5 * time.Second)
	for seen[domain.EventCompleted] == 0 {
		select {
		case ev := <-m.Events():
			seen[ev.Kind]++
			if ev.Kind == domain.EventUploaded {
				if err := m.Mint(context.Background()); err != nil {
					t.Fatalf("Mint: %v", err)
				}
			}
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}

	for kind := range seen {
		switch kind {
		case domain.EventPhaseChanged, domain.EventGenerated, domain.EventUploaded, domain.EventCompleted:
		default:
			t.Errorf("unexpected event kind %s", kind)
		}
	}
	if seen[domain.EventGenerated] != 1 || seen[domain.EventUploaded] != 1 || seen[domain.EventCompleted] != 1 {
		t.Errorf("kind counts: %v", seen)
	}
}

// slowLedger blocks Insert until released.
type slowLedger struct {
	*memory.CreationStore
	release chan struct{}
}

func (s *slowLedger) Insert(ctx context.Context, rec *domain.CreationRecord) error {
	<-s.release
	return s.CreationStore.Insert(ctx, rec)
}

func TestMachineStatusNotBlockedByLedgerWrite(t *testing.T) {
	ledger := &slowLedger{CreationStore: memory.NewCreationStore(), release: make(chan struct{})}
	m := NewMachine("sess-1", okGenerator(), okUploader(), okMinter(), connectedSession(), ledger, testReferrer, testLogger())

	m.Start(context.Background(), selectedCoins(), "p")
	waitFor(t, m.Events(), domain.EventUploaded)
	if err := m.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	waitFor(t, m.Events(), domain.EventCompleted)

	// The ledger insert is still blocked; Status must return anyway.
	statusDone := make(chan domain.Phase, 1)
	go func() { statusDone <- m.Status().Phase }()
	select {
	case phase := <-statusDone:
		if phase != domain.PhaseComplete {
			t.Errorf("phase = %s, want complete", phase)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Status blocked behind the ledger write")
	}

	close(ledger.release)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := ledger.GetBySessionID(context.Background(), "sess-1"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ledger record never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMachineAttemptTokensDiffer(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		tok := newAttemptToken()
		if tok == "" {
			t.Fatal("empty token")
		}
		if seen[tok] {
			t.Fatalf("token %q repeated", tok)
		}
		seen[tok] = true
	}
}
