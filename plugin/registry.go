package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the installed plugins and dispatches lifecycle and
// ledger events to whichever of them implement the matching hook
// interface. Each hook slice is built once at Register time so dispatch
// never needs a type switch on the hot path.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	logger  *slog.Logger

	onInit     []OnInit
	onShutdown []OnShutdown

	onDebit  []OnDebit
	onCredit []OnCredit

	onAdmissionRefused []OnAdmissionRefused

	onPaymentCallback []OnPaymentCallback

	onRedemptionIssued  []OnRedemptionIssued
	onRedemptionClaimed []OnRedemptionClaimed
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used for plugin dispatch errors.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Register installs p, caching it against every hook interface it
// implements. Registering two plugins under the same name is an error.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin: %q already registered", name)
	}
	r.plugins[name] = p

	if h, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, h)
	}
	if h, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, h)
	}
	if h, ok := p.(OnDebit); ok {
		r.onDebit = append(r.onDebit, h)
	}
	if h, ok := p.(OnCredit); ok {
		r.onCredit = append(r.onCredit, h)
	}
	if h, ok := p.(OnAdmissionRefused); ok {
		r.onAdmissionRefused = append(r.onAdmissionRefused, h)
	}
	if h, ok := p.(OnPaymentCallback); ok {
		r.onPaymentCallback = append(r.onPaymentCallback, h)
	}
	if h, ok := p.(OnRedemptionIssued); ok {
		r.onRedemptionIssued = append(r.onRedemptionIssued, h)
	}
	if h, ok := p.(OnRedemptionClaimed); ok {
		r.onRedemptionClaimed = append(r.onRedemptionClaimed, h)
	}

	return nil
}

// Plugins returns the installed plugins, order unspecified.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	return out
}

func (r *Registry) warn(hook string, plugin string, err error) {
	r.logger.Warn("plugin hook failed", "hook", hook, "plugin", plugin, "error", err)
}

// DispatchInit fans out to every OnInit plugin. l is passed through
// opaquely so plugin does not need to import the root package.
func (r *Registry) DispatchInit(ctx context.Context, l interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnInit(ctx, l); err != nil {
			r.warn("OnInit", h.Name(), err)
		}
	}
}

// DispatchShutdown fans out to every OnShutdown plugin.
func (r *Registry) DispatchShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnShutdown(ctx); err != nil {
			r.warn("OnShutdown", h.Name(), err)
		}
	}
}

// DispatchDebit fans out to every OnDebit plugin.
func (r *Registry) DispatchDebit(ctx context.Context, evt DebitEvent) {
	r.mu.RLock()
	hooks := r.onDebit
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnDebit(ctx, evt); err != nil {
			r.warn("OnDebit", h.Name(), err)
		}
	}
}

// DispatchCredit fans out to every OnCredit plugin.
func (r *Registry) DispatchCredit(ctx context.Context, evt CreditEvent) {
	r.mu.RLock()
	hooks := r.onCredit
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnCredit(ctx, evt); err != nil {
			r.warn("OnCredit", h.Name(), err)
		}
	}
}

// DispatchAdmissionRefused fans out to every OnAdmissionRefused plugin.
func (r *Registry) DispatchAdmissionRefused(ctx context.Context, userID, modelID string) {
	r.mu.RLock()
	hooks := r.onAdmissionRefused
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnAdmissionRefused(ctx, userID, modelID); err != nil {
			r.warn("OnAdmissionRefused", h.Name(), err)
		}
	}
}

// DispatchPaymentCallback fans out to every OnPaymentCallback plugin.
func (r *Registry) DispatchPaymentCallback(ctx context.Context, outTradeNo string, credited bool) {
	r.mu.RLock()
	hooks := r.onPaymentCallback
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnPaymentCallback(ctx, outTradeNo, credited); err != nil {
			r.warn("OnPaymentCallback", h.Name(), err)
		}
	}
}

// DispatchRedemptionIssued fans out to every OnRedemptionIssued plugin.
func (r *Registry) DispatchRedemptionIssued(ctx context.Context, purpose string, count int) {
	r.mu.RLock()
	hooks := r.onRedemptionIssued
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnRedemptionIssued(ctx, purpose, count); err != nil {
			r.warn("OnRedemptionIssued", h.Name(), err)
		}
	}
}

// DispatchRedemptionClaimed fans out to every OnRedemptionClaimed plugin.
func (r *Registry) DispatchRedemptionClaimed(ctx context.Context, code, userID string) {
	r.mu.RLock()
	hooks := r.onRedemptionClaimed
	r.mu.RUnlock()
	for _, h := range hooks {
		if err := h.OnRedemptionClaimed(ctx, code, userID); err != nil {
			r.warn("OnRedemptionClaimed", h.Name(), err)
		}
	}
}
