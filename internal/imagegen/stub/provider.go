// Package stub provides scriptable generation providers for tests.
package stub

import (
	"context"
	"sync"

	"vibemint/internal/imagegen"
)

// Call records one provider invocation.
type Call struct {
	Path   string // "edit" or "text"
	Images int
	Prompt string
}

// Provider is a fake imagegen.Provider with scripted outcomes.
type Provider struct {
	mu sync.Mutex

	ProviderName string
	Data         string
	Mime         string

	// EditErr and GenerateErr, when set, make the corresponding path fail.
	EditErr     error
	GenerateErr error

	Calls []Call
}

// NewProvider creates a stub that succeeds with the given payload.
func NewProvider(name, data, mime string) *Provider {
	return &Provider{ProviderName: name, Data: data, Mime: mime}
}

// Compile-time interface check.
var _ imagegen.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) Edit(_ context.Context, images []imagegen.Image, prompt string) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Path: "edit", Images: len(images), Prompt: prompt})
	if p.EditErr != nil {
		return "", "", p.EditErr
	}
	return p.Data, p.Mime, nil
}

func (p *Provider) Generate(_ context.Context, prompt string) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Path: "text", Prompt: prompt})
	if p.GenerateErr != nil {
		return "", "", p.GenerateErr
	}
	return p.Data, p.Mime, nil
}

// CallCount returns how many times the provider was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastCall returns the most recent invocation, or a zero Call.
func (p *Provider) LastCall() Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return Call{}
	}
	return p.Calls[len(p.Calls)-1]
}
