package intake

import (
	"context"
	"testing"
	"time"

	"github.com/partflow-io/partflow/internal/domain"
)

type engineHarness struct {
	engine     *Engine
	svc        *fakeInventory
	qtyPrompt  chan Resolution
	manPrompt  chan Resolution
	resolved   chan domain.CartLine
	commitDone chan domain.TransactionResult
	clock      *time.Time // drives the debouncer
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()
	h := &engineHarness{
		svc:        newFakeInventory(),
		qtyPrompt:  make(chan Resolution, 4),
		manPrompt:  make(chan Resolution, 4),
		resolved:   make(chan domain.CartLine, 4),
		commitDone: make(chan domain.TransactionResult, 4),
	}
	hooks := Hooks{
		OnQuantityPrompt: func(r Resolution) { h.qtyPrompt <- r },
		OnManualPrompt:   func(r Resolution) { h.manPrompt <- r },
		OnResolved:       func(l domain.CartLine) { h.resolved <- l },
		OnCommitComplete: func(r domain.TransactionResult) { h.commitDone <- r },
	}
	h.engine = New(DefaultScannerConfig(), domain.WorkflowCheckout, h.svc, nil, hooks, nil)

	clock := time.Unix(5000, 0)
	h.clock = &clock
	h.engine.debounce.now = func() time.Time { return *h.clock }
	return h
}

func (h *engineHarness) scan(code string) {
	for _, r := range code {
		h.engine.HandleKey(domain.KeyEvent{Code: domain.KeyRune, Rune: r})
	}
	h.engine.HandleKey(domain.KeyEvent{Code: domain.KeyEnter})
}

func (h *engineHarness) advance(d time.Duration) { *h.clock = h.clock.Add(d) }

func waitPrompt(t *testing.T, ch <-chan Resolution) Resolution {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("prompt never opened")
		return Resolution{}
	}
}

// Double-trigger of one physical item: the second token lands inside the
// cooldown and is suppressed; the cart ends with one line, quantity 1.
func TestEngine_DoubleScanSuppressed(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")

	h.scan("ABC123")
	res := waitPrompt(t, h.qtyPrompt)
	if res.Part.Code != "ABC123" || res.ProposedQuantity != 1 {
		t.Fatalf("prompt = %+v", res)
	}
	if _, err := h.engine.ConfirmQuantity(1); err != nil {
		t.Fatalf("ConfirmQuantity: %v", err)
	}

	h.advance(500 * time.Millisecond) // inside the cooldown
	h.scan("ABC123")

	select {
	case <-h.qtyPrompt:
		t.Fatal("suppressed duplicate opened a prompt")
	case <-time.After(100 * time.Millisecond):
	}

	cart := h.engine.Cart()
	if len(cart) != 1 || cart[0].Quantity != 1 {
		t.Fatalf("cart = %+v, want one line quantity 1", cart)
	}
}

// Same part scanned again after the cooldown merges by quantity.
func TestEngine_RescanAfterCooldownMerges(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")

	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)
	h.engine.ConfirmQuantity(3)

	h.advance(2 * time.Second)
	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)
	h.engine.ConfirmQuantity(2)

	cart := h.engine.Cart()
	if len(cart) != 1 {
		t.Fatalf("cart has %d lines, want 1", len(cart))
	}
	if cart[0].Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", cart[0].Quantity)
	}
}

// Unknown code: manual dialog pre-filled with the scanned code; confirm
// produces a review-pending manual line and submits the curation record.
func TestEngine_UnknownCodeManualEntry(t *testing.T) {
	h := newEngineHarness(t)

	h.scan("UNKNOWN-9")
	res := waitPrompt(t, h.manPrompt)
	if res.Token.Raw != "UNKNOWN-9" {
		t.Fatalf("manual dialog pre-fill = %q", res.Token.Raw)
	}

	line, err := h.engine.ConfirmManual(context.Background(), "Gasket", 2, "jsmith")
	if err != nil {
		t.Fatalf("ConfirmManual: %v", err)
	}
	if line.Origin != domain.OriginManual || !line.ReviewPending {
		t.Errorf("line = %+v, want review-pending manual line", line)
	}

	cart := h.engine.Cart()
	if len(cart) != 1 || cart[0].DisplayName != "Gasket" || cart[0].Quantity != 2 {
		t.Fatalf("cart = %+v", cart)
	}
	if h.svc.manualEntryCount() != 1 {
		t.Errorf("manual entries = %d, want 1", h.svc.manualEntryCount())
	}
}

// A scan arriving while the confirmation dialog is open is ignored
// outright, not queued.
func TestEngine_ScanIgnoredWhileDialogOpen(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")
	h.svc.addPart("XYZ789", "Washer", "0.10")

	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)

	h.advance(5 * time.Second) // even outside the cooldown
	h.scan("XYZ789")           // capture disabled: dropped

	h.engine.ConfirmQuantity(1)
	select {
	case <-h.qtyPrompt:
		t.Fatal("queued scan replayed after dialog close")
	case <-time.After(100 * time.Millisecond):
	}

	cart := h.engine.Cart()
	if len(cart) != 1 || cart[0].Key != "ABC123" {
		t.Fatalf("cart = %+v, want only ABC123", cart)
	}
}

func TestEngine_CancelReenablesCapture(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")

	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)
	if h.engine.capture.Enabled() {
		t.Fatal("capture still enabled while dialog open")
	}

	h.engine.CancelResolution()
	if !h.engine.capture.Enabled() {
		t.Fatal("capture not re-enabled after cancel")
	}
	if len(h.engine.Cart()) != 0 {
		t.Error("cancelled resolution added a line")
	}

	h.advance(5 * time.Second)
	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt) // scanning works again
}

func TestEngine_SubmitTokenBypassesFraming(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")

	h.engine.SubmitToken(domain.ScanToken{Raw: "ABC123", CapturedAt: time.Now()})
	res := waitPrompt(t, h.qtyPrompt)
	if res.Part.Code != "ABC123" {
		t.Fatalf("prompt = %+v", res)
	}
}

func TestEngine_CommitReportsAndPrunes(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")
	h.svc.failKeys["ABC123"] = errTransport

	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)
	h.engine.ConfirmQuantity(2)

	result, err := h.engine.Commit(context.Background(), domain.TransactionContext{
		Actor:       "jsmith",
		Destination: "Building 4",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if result.Failed != 1 || result.Committed != 0 {
		t.Fatalf("result = %+v", result)
	}

	select {
	case got := <-h.commitDone:
		if got.BatchID != result.BatchID {
			t.Error("hook saw a different batch")
		}
	case <-time.After(time.Second):
		t.Fatal("OnCommitComplete never fired")
	}

	if len(h.engine.Cart()) != 1 {
		t.Error("failed line pruned from cart")
	}
	if !h.engine.capture.Enabled() {
		t.Error("capture not restored after commit")
	}
}

func TestEngine_CommitTagsWorkflow(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")

	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)
	h.engine.ConfirmQuantity(1)

	_, err := h.engine.Commit(context.Background(), domain.TransactionContext{
		Actor:       "jsmith",
		Destination: "Building 4",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	res := <-h.commitDone
	if res.Committed != 1 {
		t.Fatalf("result = %+v", res)
	}
	h.svc.mu.Lock()
	defer h.svc.mu.Unlock()
	if h.svc.lastContext.Workflow != domain.WorkflowCheckout {
		t.Errorf("workflow = %q, want %q", h.svc.lastContext.Workflow, domain.WorkflowCheckout)
	}
	if h.svc.lastContext.BatchID == "" {
		t.Error("commit requests carried no batch id")
	}
}

func TestEngine_CartTotal(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.addPart("ABC123", "Hex bolt 10mm", "4.50")

	h.scan("ABC123")
	waitPrompt(t, h.qtyPrompt)
	h.engine.ConfirmQuantity(3)

	if got := h.engine.CartTotal(); got != "13.50" {
		t.Errorf("CartTotal = %q, want %q", got, "13.50")
	}
}
