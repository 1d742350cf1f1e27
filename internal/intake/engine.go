package intake

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/partflow-io/partflow/internal/domain"
)

// ─── Engine ─────────────────────────────────────────────────────────────────

// ScannerConfig gathers the tunable framing and debounce thresholds.
type ScannerConfig struct {
	MinLength    int
	FlushTimeout time.Duration
	Cooldown     time.Duration
}

// DefaultScannerConfig returns the shared defaults. The source workflows
// had quietly drifted apart on these values; any workflow that truly
// needs different thresholds overrides them in config.
func DefaultScannerConfig() ScannerConfig {
	cc := DefaultCaptureConfig()
	return ScannerConfig{
		MinLength:    cc.MinLength,
		FlushTimeout: cc.FlushTimeout,
		Cooldown:     DefaultCooldown,
	}
}

// Hooks are the host-UI callbacks. All are optional and invoked outside
// engine locks.
type Hooks struct {
	// OnQuantityPrompt asks the host to open the quantity dialog for a
	// catalog hit (proposed quantity 1).
	OnQuantityPrompt func(Resolution)

	// OnManualPrompt asks the host to open the manual-entry dialog,
	// pre-filled with the scanned code.
	OnManualPrompt func(Resolution)

	// OnResolved fires after a confirmed line lands in the cart.
	OnResolved func(domain.CartLine)

	// OnCommitComplete fires with the batch summary after Commit.
	OnCommitComplete func(domain.TransactionResult)
}

// Engine is the shared intake pipeline behind the checkout, receiving,
// and quick-count workflows. It owns the invariant that capture is
// disabled whenever a resolution is open: a token arriving mid-dialog is
// ignored outright, never queued.
type Engine struct {
	workflow domain.Workflow
	capture  *Capture
	debounce *Debouncer
	resolver *Resolver
	ledger   *Ledger
	commit   *Committer
	journal  domain.Journal // nil disables journaling
	log      *zap.Logger
	hooks    Hooks

	mu         sync.Mutex
	committing bool
}

// New assembles the pipeline. journal may be nil.
func New(cfg ScannerConfig, workflow domain.Workflow, svc domain.InventoryService, journal domain.Journal, hooks Hooks, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		workflow: workflow,
		debounce: NewDebouncer(cfg.Cooldown, log),
		resolver: NewResolver(svc, log),
		ledger:   NewLedger(),
		commit:   NewCommitter(svc, log),
		journal:  journal,
		log:      log.Named("intake"),
		hooks:    hooks,
	}
	e.capture = NewCapture(CaptureConfig{
		MinLength:    cfg.MinLength,
		FlushTimeout: cfg.FlushTimeout,
	}, e.onToken, log)
	e.resolver.SetHooks(e.onFound, e.onNotFound)
	return e
}

// HandleKey feeds one raw key event into the capture framer.
func (e *Engine) HandleKey(ev domain.KeyEvent) { e.capture.HandleKey(ev) }

// FocusLost forwards a focus-loss report from the host surface.
func (e *Engine) FocusLost() { e.capture.FocusLost() }

// SetFocusFunc registers the host's focus-steal callback.
func (e *Engine) SetFocusFunc(f func()) { e.capture.SetFocusFunc(f) }

// SubmitToken injects a pre-framed token, bypassing capture. Used by
// hosts whose scanner delivers buffered lines instead of keystrokes.
// The token still passes through the debouncer and the one-open-
// resolution gate.
func (e *Engine) SubmitToken(tok domain.ScanToken) {
	if !e.capture.Enabled() {
		return
	}
	e.onToken(tok)
}

// onToken is the capture callback: debounce, then open a resolution and
// suspend capture until the operator confirms or cancels.
func (e *Engine) onToken(tok domain.ScanToken) {
	admitted := e.debounce.Admit(tok)
	e.journalScan(tok, admitted)
	if !admitted {
		return
	}

	e.capture.Disable()
	if _, err := e.resolver.Begin(context.Background(), tok); err != nil {
		// Begin only fails if a resolution is already open, which the
		// capture gate should have prevented. Recover by re-enabling.
		e.log.Warn("token dropped, resolution already open", zap.String("raw", tok.Raw))
		e.capture.Enable()
	}
}

func (e *Engine) onFound(res Resolution) {
	if e.hooks.OnQuantityPrompt != nil {
		e.hooks.OnQuantityPrompt(res)
	}
}

func (e *Engine) onNotFound(res Resolution) {
	if e.hooks.OnManualPrompt != nil {
		e.hooks.OnManualPrompt(res)
	}
}

// Resolution returns the open resolution, or nil.
func (e *Engine) Resolution() *Resolution { return e.resolver.Current() }

// ConfirmQuantity closes a found-state resolution with the operator's
// quantity, merges the catalog line into the cart, and resumes capture.
func (e *Engine) ConfirmQuantity(quantity int) (domain.CartLine, error) {
	res := e.resolver.Current()
	line, err := e.resolver.ConfirmQuantity(quantity)
	if err != nil {
		return domain.CartLine{}, err
	}
	e.ledger.Merge(line)
	e.capture.Enable()
	if res != nil {
		e.journalResolution(res.Token, "catalog", &line)
	}
	if e.hooks.OnResolved != nil {
		e.hooks.OnResolved(line)
	}
	return line, nil
}

// ConfirmManual closes a not-found-state resolution with the operator's
// description and quantity, submits the manual-review record, merges the
// manual line, and resumes capture.
func (e *Engine) ConfirmManual(ctx context.Context, description string, quantity int, actor string) (domain.CartLine, error) {
	res := e.resolver.Current()
	line, err := e.resolver.ConfirmManual(ctx, description, quantity, actor)
	if err != nil {
		return domain.CartLine{}, err
	}
	e.ledger.Merge(line)
	e.capture.Enable()
	if res != nil {
		e.journalResolution(res.Token, "manual", &line)
	}
	if e.hooks.OnResolved != nil {
		e.hooks.OnResolved(line)
	}
	return line, nil
}

// CancelResolution dismisses the open dialog and resumes capture. A
// lookup response landing after this point is discarded by the
// resolver's identity check.
func (e *Engine) CancelResolution() {
	res := e.resolver.Current()
	e.resolver.Cancel()
	e.capture.Enable()
	if res != nil {
		e.journalResolution(res.Token, "cancelled", nil)
	}
}

// ─── Cart Operations ────────────────────────────────────────────────────────

// Cart returns the cart lines in insertion order.
func (e *Engine) Cart() []domain.CartLine { return e.ledger.Lines() }

// CartTotal returns the cart's extended-cost total.
func (e *Engine) CartTotal() string { return e.ledger.Total().StringFixed(2) }

// SetQuantity adjusts a cart line; n <= 0 removes it. Quantity text is
// validated by the host before it reaches here.
func (e *Engine) SetQuantity(key string, n int) { e.ledger.SetQuantity(key, n) }

// RemoveLine deletes a cart line.
func (e *Engine) RemoveLine(key string) { e.ledger.Remove(key) }

// ─── Commit ─────────────────────────────────────────────────────────────────

// Commit submits the cart sequentially. At most one commit runs at a
// time; capture is suspended for the duration so scans cannot mutate the
// ledger mid-batch. On return the ledger holds exactly the failed lines.
func (e *Engine) Commit(ctx context.Context, tc domain.TransactionContext) (domain.TransactionResult, error) {
	e.mu.Lock()
	if e.committing {
		e.mu.Unlock()
		return domain.TransactionResult{}, domain.ErrCommitInFlight
	}
	e.committing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.committing = false
		e.mu.Unlock()
	}()

	tc.Workflow = e.workflow
	captureWasEnabled := e.capture.Enabled()
	e.capture.Disable()
	defer func() {
		if captureWasEnabled {
			e.capture.Enable()
		}
	}()

	result, err := e.commit.Commit(ctx, e.ledger, tc)
	if err != nil {
		return domain.TransactionResult{}, err
	}
	for _, lo := range result.Lines {
		e.journalCommitLine(result.BatchID, lo)
	}
	if e.hooks.OnCommitComplete != nil {
		e.hooks.OnCommitComplete(result)
	}
	return result, nil
}

// ─── Journal helpers ────────────────────────────────────────────────────────
// Journal writes are best-effort; a failed write never blocks intake.

func (e *Engine) journalScan(tok domain.ScanToken, admitted bool) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordScan(tok, admitted, e.workflow); err != nil {
		e.log.Warn("journal scan write failed", zap.Error(err))
	}
}

func (e *Engine) journalResolution(tok domain.ScanToken, disposition string, line *domain.CartLine) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordResolution(tok, disposition, line); err != nil {
		e.log.Warn("journal resolution write failed", zap.Error(err))
	}
}

func (e *Engine) journalCommitLine(batchID string, lo domain.LineOutcome) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordCommitLine(batchID, lo, e.workflow); err != nil {
		e.log.Warn("journal commit write failed", zap.Error(err))
	}
}
