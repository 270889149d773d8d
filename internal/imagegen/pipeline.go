package imagegen

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/observability"
)

// Pipeline drives one generation request end to end. Generate never returns a
// Go error: everything surfaces as a tagged GenerationResult so the
// orchestrator can treat provider trouble as a pipeline state, not a crash.
type Pipeline struct {
	fetcher     *Fetcher
	primary     Provider
	fallback    Provider // may be nil
	placeholder string
	logger      *log.Logger
}

// NewPipeline wires a pipeline from a fetcher and up to two providers.
// fallback may be nil, in which case primary failures are final.
func NewPipeline(fetcher *Fetcher, primary, fallback Provider, placeholderURL string, logger *log.Logger) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		primary:     primary,
		fallback:    fallback,
		placeholder: placeholderURL,
		logger:      logger,
	}
}

// Generate runs the pipeline: materialize references, call the primary
// provider, and on failure make exactly one text-only attempt on the fallback.
func (p *Pipeline) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	if err := req.Validate(); err != nil {
		return domain.GenerationFailure(err.Error())
	}

	images := p.fetcher.FetchAll(ctx, req.ImageURLs, p.placeholder)

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = defaultPrompt(req.CoinNames)
	}

	// Primary attempt: image-conditioned when any reference survived.
	var (
		data, mime string
		primaryErr error
	)
	start := time.Now()
	if len(images) > 0 {
		data, mime, primaryErr = p.primary.Edit(ctx, images, prompt)
		recordAttempt(p.primary.Name(), "edit", primaryErr, start)
	} else {
		data, mime, primaryErr = p.primary.Generate(ctx, prompt)
		recordAttempt(p.primary.Name(), "text", primaryErr, start)
	}
	if primaryErr == nil {
		return domain.GenerationSuccess(data, mime)
	}
	p.logger.Printf("[imagegen] primary %s failed: %v", p.primary.Name(), primaryErr)

	if p.fallback == nil {
		return domain.GenerationFailure(failureReason(primaryErr, nil))
	}

	// Exactly one secondary attempt, text-only, with the coin names folded in.
	start = time.Now()
	data, mime, fallbackErr := p.fallback.Generate(ctx, enrichedPrompt(prompt, req.CoinNames))
	recordAttempt(p.fallback.Name(), "text", fallbackErr, start)
	if fallbackErr == nil {
		return domain.GenerationSuccess(data, mime)
	}
	p.logger.Printf("[imagegen] fallback %s failed: %v", p.fallback.Name(), fallbackErr)

	return domain.GenerationFailure(failureReason(primaryErr, fallbackErr))
}

// defaultPrompt synthesizes a prompt when the user typed nothing.
func defaultPrompt(coinNames []string) string {
	if len(coinNames) == 0 {
		return "Create a fun, vibrant meme coin mascot image"
	}
	return fmt.Sprintf("Create a fun, vibrant meme coin image inspired by %s", joinNames(coinNames))
}

// enrichedPrompt folds the coin names into the prompt for the text-only
// fallback, which cannot see the reference images.
func enrichedPrompt(prompt string, coinNames []string) string {
	if len(coinNames) == 0 {
		return prompt
	}
	return fmt.Sprintf("%s. Style it after the crypto coins %s", prompt, joinNames(coinNames))
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// failureReason prefers the most specific error: the fallback saw the request
// last, so its message wins when present.
func failureReason(primaryErr, fallbackErr error) string {
	if fallbackErr != nil {
		return fallbackErr.Error()
	}
	if primaryErr != nil {
		return primaryErr.Error()
	}
	return "image generation failed"
}

func recordAttempt(provider, path string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordGeneration(provider, path, status, time.Since(start).Seconds())
}
