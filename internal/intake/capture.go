// Package intake implements the barcode-driven intake and cart
// reconciliation engine shared by the checkout, receiving, and quick-count
// workflows.
//
// Pipeline: Capture (keystroke framing) → Debouncer (duplicate
// suppression) → Resolver (catalog lookup / manual entry) → Ledger
// (key-unique cart) → Committer (sequential per-line commit).
package intake

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/infra/observability"
)

// ─── Capture ────────────────────────────────────────────────────────────────

// CaptureConfig controls keystroke framing. The source workflows carried
// drifting copies of these values; here each one is a named field with a
// single default, and any per-workflow override is an explicit config
// decision.
type CaptureConfig struct {
	// MinLength is the strict lower bound on token length. A buffer of
	// exactly MinLength characters is still discarded as noise.
	MinLength int

	// FlushTimeout flushes the buffer after inactivity, for scanners
	// that never send a terminator. Zero disables the timer.
	FlushTimeout time.Duration

	// Allowed admits a rune into the buffer. Nil means printable ASCII.
	Allowed func(r rune) bool
}

// DefaultCaptureConfig returns the framing defaults.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		MinLength:    3,
		FlushTimeout: 150 * time.Millisecond,
	}
}

func printableASCII(r rune) bool { return r >= 0x20 && r < 0x7f }

// Capture turns an undelimited keystroke stream into scan tokens.
// A token is framed either by an explicit terminator key or by the
// inactivity timer; both triggers funnel through one flush path so the
// length gate cannot diverge between them.
//
// Capture owns the scan buffer exclusively. It is disabled while a
// confirmation dialog is open so scans cannot leak into text fields.
type Capture struct {
	mu      sync.Mutex
	cfg     CaptureConfig
	buf     []rune
	enabled bool
	timer   *time.Timer
	gen     uint64 // invalidates timer callbacks from before a flush

	onToken func(domain.ScanToken)
	focus   func()
	now     func() time.Time
	log     *zap.Logger
}

// NewCapture creates a capture framer. onToken receives each emitted
// token; it is called without the capture lock held.
func NewCapture(cfg CaptureConfig, onToken func(domain.ScanToken), log *zap.Logger) *Capture {
	if cfg.Allowed == nil {
		cfg.Allowed = printableASCII
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Capture{
		cfg:     cfg,
		enabled: true,
		onToken: onToken,
		now:     time.Now,
		log:     log.Named("capture"),
	}
}

// SetFocusFunc registers the host callback that steals input focus back
// to the capture surface. Invoked from FocusLost while capture is active.
func (c *Capture) SetFocusFunc(f func()) {
	c.mu.Lock()
	c.focus = f
	c.mu.Unlock()
}

// Enabled reports whether keystrokes are currently being captured.
func (c *Capture) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Enable resumes capture after a dialog closes.
func (c *Capture) Enable() {
	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()
}

// Disable suspends capture and discards any partial buffer. Keystrokes
// arriving while disabled are ignored outright, not queued.
func (c *Capture) Disable() {
	c.mu.Lock()
	c.enabled = false
	c.resetLocked()
	c.mu.Unlock()
}

// FocusLost tells the capture that the surface lost input focus. While
// capture is active the registered focus func is invoked so the operator
// never has to click before scanning again.
func (c *Capture) FocusLost() {
	c.mu.Lock()
	f := c.focus
	active := c.enabled
	c.mu.Unlock()
	if active && f != nil {
		f()
	}
}

// HandleKey consumes one raw key event.
func (c *Capture) HandleKey(ev domain.KeyEvent) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}

	switch ev.Code {
	case domain.KeyEnter:
		tok, ok := c.flushLocked()
		c.mu.Unlock()
		if ok {
			c.emit(tok)
		}
		return

	case domain.KeyBackspace:
		if n := len(c.buf); n > 0 {
			c.buf = c.buf[:n-1]
		}

	case domain.KeyRune:
		if c.cfg.Allowed(ev.Rune) {
			c.buf = append(c.buf, ev.Rune)
			c.armTimerLocked()
		}

	default:
		// control/modifier noise
	}
	c.mu.Unlock()
}

// armTimerLocked (re)starts the inactivity timer. Each accepted rune
// pushes the deadline out.
func (c *Capture) armTimerLocked() {
	if c.cfg.FlushTimeout <= 0 {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	gen := c.gen
	c.timer = time.AfterFunc(c.cfg.FlushTimeout, func() { c.timeoutFlush(gen) })
}

func (c *Capture) timeoutFlush(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.enabled {
		c.mu.Unlock()
		return
	}
	tok, ok := c.flushLocked()
	c.mu.Unlock()
	if ok {
		c.emit(tok)
	}
}

// flushLocked is the single framing point for both triggers.
func (c *Capture) flushLocked() (domain.ScanToken, bool) {
	defer c.resetLocked()
	if len(c.buf) <= c.cfg.MinLength {
		if len(c.buf) > 0 {
			observability.NoiseDiscarded.Inc()
			c.log.Debug("noise buffer discarded", zap.Int("length", len(c.buf)))
		}
		return domain.ScanToken{}, false
	}
	return domain.ScanToken{Raw: string(c.buf), CapturedAt: c.now()}, true
}

func (c *Capture) resetLocked() {
	c.buf = c.buf[:0]
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Capture) emit(tok domain.ScanToken) {
	observability.TokensEmitted.Inc()
	c.log.Debug("token emitted", zap.String("raw", tok.Raw))
	if c.onToken != nil {
		c.onToken(tok)
	}
}
