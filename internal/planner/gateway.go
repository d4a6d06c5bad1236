// Package planner turns a page snapshot and a user command into an action list by
// asking an AI backend. Vendors plug in through Backend; everything shared
// (prompt rendering, reply parsing, throttling) lives in Gateway.
package planner

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Request is one outbound generation call.
type Request struct {
	System    string
	Prompt    string
	Image     []byte // optional
	ImageMIME string
}

// Backend sends exactly one request to a vendor and returns the raw reply text.
// Faults must be returned as *TransportError.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Gateway implements schemas.Planner for any Backend.
type Gateway struct {
	backend Backend
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ schemas.Planner = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithRequestsPerMinute throttles planning calls on the client side. Zero or less disables it.
func WithRequestsPerMinute(rpm float64) GatewayOption {
	return func(g *Gateway) {
		if rpm > 0 {
			g.limiter = rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/rpm)), 1)
		}
	}
}

// NewGateway wraps backend.
func NewGateway(backend Backend, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend: backend,
		logger:  logger.Named("planner").With(zap.String("provider", backend.Name())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider names the backend in use.
func (g *Gateway) Provider() string { return g.backend.Name() }

// Plan renders the prompt, issues one backend request and parses the reply.
func (g *Gateway) Plan(ctx context.Context, snapshot *schemas.PageSnapshot, screenshot []byte, command string) ([]schemas.Action, error) {
	if snapshot == nil {
		snapshot = &schemas.PageSnapshot{}
	}

	req := Request{
		System: SystemPolicy,
		Prompt: RenderPrompt(snapshot, command),
	}
	if len(screenshot) > 0 {
		req.Image = screenshot
		req.ImageMIME = http.DetectContentType(screenshot)
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Provider: g.backend.Name(), Message: "request throttled: " + err.Error(), Err: err}
		}
	}

	start := time.Now()
	reply, err := g.backend.Generate(ctx, req)
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			err = &TransportError{Provider: g.backend.Name(), Message: err.Error(), Err: err}
		}
		g.logger.Warn("Planning request failed.", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	actions, err := ParseActions(reply)
	if err != nil {
		g.logger.Warn("Planner reply rejected.", zap.Error(err), zap.String("reply", reply))
		return nil, err
	}

	g.logger.Info("Plan received.",
		zap.Int("actions", len(actions)),
		zap.Bool("with_screenshot", req.Image != nil),
		zap.Duration("duration", time.Since(start)),
	)
	return actions, nil
}
