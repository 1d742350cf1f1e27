package intake

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/infra/observability"
)

// DefaultCooldown is the minimum gap between two admitted tokens.
// Physical scanners and operator habit fire rapid duplicate triggers for
// one physical item; this window is the single point that prevents
// double-counting, independent of how resolution turns out.
const DefaultCooldown = 1500 * time.Millisecond

// Debouncer gates the token stream behind a cooldown window.
type Debouncer struct {
	mu           sync.Mutex
	cooldown     time.Duration
	lastAdmitted time.Time
	now          func() time.Time
	log          *zap.Logger
}

// NewDebouncer creates a debouncer. cooldown <= 0 uses DefaultCooldown.
func NewDebouncer(cooldown time.Duration, log *zap.Logger) *Debouncer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Debouncer{
		cooldown: cooldown,
		now:      time.Now,
		log:      log.Named("debounce"),
	}
}

// Admit reports whether the token may proceed to resolution. A rejected
// token leaves lastAdmitted untouched, so a burst of duplicates does not
// extend the window indefinitely.
func (d *Debouncer) Admit(tok domain.ScanToken) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.lastAdmitted.IsZero() && now.Sub(d.lastAdmitted) < d.cooldown {
		observability.DuplicatesSuppressed.Inc()
		d.log.Debug("duplicate scan suppressed",
			zap.String("raw", tok.Raw),
			zap.Duration("since_last", now.Sub(d.lastAdmitted)))
		return false
	}
	d.lastAdmitted = now
	return true
}
