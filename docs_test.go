package ledger_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/admission"
	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/store/memory"
	"github.com/xraph/creditledger/usage"
)

// TestDocumentationExamples verifies that the examples in package doc
// compile and behave as documented.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		s := memory.New()

		l := ledger.New(s,
			ledger.WithLogger(slog.Default()),
			ledger.WithDefaultCredit(ledger.NewDecimal(0)),
		)

		ctx := context.Background()
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop(ctx)

		userID := "user_123"

		credit, err := l.Ensure(ctx, userID)
		if err != nil {
			t.Fatal(err)
		}
		if !credit.IsZero() {
			t.Fatalf("expected zero starting credit, got %s", credit)
		}

		controller := l.NewAdmissionController(nil, "insufficient credit")
		if err := l.CheckAdmission(ctx, controller, userID, admission.Request{ModelID: "unknown-model"}); err != nil {
			log.Printf("admission refused: %v", err)
		}

		messages := []usage.MessageItem{{Text: "hello"}}
		scope := l.OpenScope(userID, "gpt-4o", "/v1/chat/completions", messages, false, nil)
		scope.Feed([]byte(`{"choices":[{"message":{"content":"hi there"}}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
		scope.Close(ctx, l.FeatureSurcharge(nil))

		entries, err := l.List(ctx, store.ListOpts{UserIDs: []string{userID}})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 0 {
			t.Fatal("expected at least one ledger entry after scope close")
		}
	})

	t.Run("DecimalExamples", func(t *testing.T) {
		d1 := ledger.NewDecimal(100)
		d2 := ledger.NewDecimal(200)

		_ = d1.Add(d2)
		_ = d1.Mul(ledger.NewDecimal(3))
		_ = d1.Div(ledger.NewDecimal(2))

		if d1.LessThan(d2) {
			// d1 is less than d2
		}

		_ = d1.String()
	})
}
