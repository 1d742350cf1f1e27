package intake

import (
	"testing"
	"time"

	"github.com/partflow-io/partflow/internal/domain"
)

func tok(raw string) domain.ScanToken {
	return domain.ScanToken{Raw: raw, CapturedAt: time.Now()}
}

func TestDebouncer_SuppressesInsideWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := NewDebouncer(DefaultCooldown, nil)
	d.now = func() time.Time { return clock }

	if !d.Admit(tok("ABC123")) {
		t.Fatal("first token rejected")
	}

	clock = clock.Add(500 * time.Millisecond)
	if d.Admit(tok("ABC123")) {
		t.Error("duplicate inside cooldown admitted")
	}
}

func TestDebouncer_AdmitsAfterCooldown(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := NewDebouncer(DefaultCooldown, nil)
	d.now = func() time.Time { return clock }

	d.Admit(tok("ABC123"))
	clock = clock.Add(DefaultCooldown)
	if !d.Admit(tok("ABC123")) {
		t.Error("token at exactly the cooldown boundary rejected")
	}
}

func TestDebouncer_RejectionDoesNotExtendWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := NewDebouncer(DefaultCooldown, nil)
	d.now = func() time.Time { return clock }

	d.Admit(tok("ABC123"))

	// A burst of duplicates must not keep pushing the window out:
	// lastAdmitted stays at t=0, so t=cooldown is admitted even though
	// a rejected duplicate landed just before it.
	clock = clock.Add(DefaultCooldown - time.Millisecond)
	if d.Admit(tok("ABC123")) {
		t.Fatal("duplicate just inside cooldown admitted")
	}
	clock = clock.Add(time.Millisecond)
	if !d.Admit(tok("ABC123")) {
		t.Error("rejected duplicate extended the cooldown window")
	}
}

func TestDebouncer_AppliesToDistinctContent(t *testing.T) {
	// The window is purely temporal: a different barcode inside the
	// cooldown is still a likely double-trigger and is suppressed.
	clock := time.Unix(1000, 0)
	d := NewDebouncer(DefaultCooldown, nil)
	d.now = func() time.Time { return clock }

	d.Admit(tok("ABC123"))
	clock = clock.Add(200 * time.Millisecond)
	if d.Admit(tok("XYZ789")) {
		t.Error("distinct token inside cooldown admitted")
	}
}

func TestDebouncer_DefaultCooldownApplied(t *testing.T) {
	d := NewDebouncer(0, nil)
	if d.cooldown != DefaultCooldown {
		t.Errorf("cooldown = %v, want %v", d.cooldown, DefaultCooldown)
	}
}
