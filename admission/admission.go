// Package admission gates a request before the provider is called,
// refusing it when the user cannot afford the model's minimum cost.
package admission

import (
	"context"
	"fmt"

	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/types"
)

// BalanceReader is the narrow slice of the ledger admission needs: the
// idempotent create-or-read of a user's balance.
type BalanceReader interface {
	Ensure(ctx context.Context, userID string) (types.Decimal, error)
}

// Request is the minimal view of an inbound chat request admission
// needs to decide and, on refusal, to annotate.
type Request struct {
	ModelID   string
	Features  []string
	ChatID    string
	MessageID string
}

// ChatAnnotator writes the configured no-credit notice into a stored
// chat message so the UI can surface a reason for the refusal. It is an
// external collaborator: the chat store itself is outside this
// subsystem's scope.
type ChatAnnotator interface {
	AnnotateError(ctx context.Context, chatID, messageID, message string) error
}

// RefusedError is returned when a request is refused for insufficient
// credit. Callers translate it to an HTTP 403.
type RefusedError struct {
	Message string
}

func (e *RefusedError) Error() string { return e.Message }

// Controller checks admission for a user's request against resolved
// pricing and the user's current balance.
type Controller struct {
	Balances    BalanceReader
	Resolver    *pricing.Resolver
	Features    pricing.FeaturePrices
	Annotator   ChatAnnotator
	NoCreditMsg string
}

// NewController builds a Controller.
func NewController(balances BalanceReader, resolver *pricing.Resolver, features pricing.FeaturePrices, annotator ChatAnnotator, noCreditMsg string) *Controller {
	return &Controller{
		Balances:    balances,
		Resolver:    resolver,
		Features:    features,
		Annotator:   annotator,
		NoCreditMsg: noCreditMsg,
	}
}

// Check resolves pricing for req.ModelID and decides whether userID may
// proceed. A fully free model with no paid feature enabled always
// passes without touching the balance. Otherwise the user's balance must
// exist, be positive, and be at least the model's minimum credit.
//
// On refusal, if req carries a chat and message id, the stored chat
// message is annotated with the configured notice before the refusal is
// returned.
func (c *Controller) Check(ctx context.Context, userID string, req Request) error {
	prices := c.Resolver.Resolve(req.ModelID)

	if pricing.IsFree(prices, c.Features, req.Features) {
		return nil
	}

	credit, err := c.Balances.Ensure(ctx, userID)
	if err != nil {
		return fmt.Errorf("admission: ensure balance: %w", err)
	}

	if credit.IsPositive() && credit.GreaterThanOrEqual(prices.MinimumCredit) {
		return nil
	}

	if c.Annotator != nil && req.ChatID != "" && req.MessageID != "" {
		if err := c.Annotator.AnnotateError(ctx, req.ChatID, req.MessageID, c.NoCreditMsg); err != nil {
			// Annotation is best-effort; the refusal itself must still surface.
			_ = err
		}
	}

	return &RefusedError{Message: c.NoCreditMsg}
}
