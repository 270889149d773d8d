package domain

// Phase names one state of the creation pipeline. The orchestrator owns all
// transitions; nothing outside it may move a session between phases.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseGeneratingImage   Phase = "generating_image"
	PhaseUploadingMetadata Phase = "uploading_metadata"
	PhaseMintReady         Phase = "mint_ready"
	PhaseMinting           Phase = "minting"
	PhaseComplete          Phase = "complete"
	PhaseError             Phase = "error"
)

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseGeneratingImage, PhaseUploadingMetadata,
		PhaseMintReady, PhaseMinting, PhaseComplete, PhaseError:
		return true
	}
	return false
}

// CanStart reports whether a new generation run may begin from this phase.
func (p Phase) CanStart() bool {
	return p == PhaseIdle || p == PhaseError
}

// CanRetry reports whether a retry may begin from this phase. Retry is only
// meaningful after a failure; every retry restarts from image generation.
func (p Phase) CanRetry() bool {
	return p == PhaseError
}

// CanMint reports whether a mint may be submitted from this phase. The phase
// gate, not the mint call itself, is what prevents double submission.
func (p Phase) CanMint() bool {
	return p == PhaseMintReady
}

// Terminal reports whether the phase ends a run (no async work pending).
func (p Phase) Terminal() bool {
	switch p {
	case PhaseIdle, PhaseMintReady, PhaseComplete, PhaseError:
		return true
	}
	return false
}

func (p Phase) String() string { return string(p) }
