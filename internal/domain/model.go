// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Scan Input Types ───────────────────────────────────────────────────────

// KeyCode classifies a raw key event from the capture surface.
type KeyCode int

const (
	// KeyRune is a printable character candidate for the scan buffer.
	KeyRune KeyCode = iota
	// KeyEnter is the explicit end-of-scan terminator most HID scanners send.
	KeyEnter
	// KeyBackspace pops the last buffered character.
	KeyBackspace
	// KeyControl is any other control/modifier event; always dropped.
	KeyControl
)

// KeyEvent is one raw keystroke as delivered by the host surface.
// HID scanners emit these exactly as a keyboard would, with no framing.
type KeyEvent struct {
	Code KeyCode   `json:"code"`
	Rune rune      `json:"rune,omitempty"`
	At   time.Time `json:"at"`
}

// ScanToken is a complete candidate barcode assembled from a keystroke run.
// Immutable; consumed exactly once by the debouncer.
type ScanToken struct {
	Raw        string    `json:"raw"`
	CapturedAt time.Time `json:"captured_at"`
}

// ─── Catalog Types ──────────────────────────────────────────────────────────

// PartRecord is a catalog entry returned by the inventory service lookup.
type PartRecord struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Unit        string          `json:"unit,omitempty"`
}

// ─── Cart Types ─────────────────────────────────────────────────────────────

// LineOrigin tells whether a cart line came from a catalog hit or a
// manual entry for an unknown code.
type LineOrigin string

const (
	OriginCatalog LineOrigin = "catalog"
	OriginManual  LineOrigin = "manual"
)

// CartLine is one resolved line in the cart ledger.
// Origin == OriginManual implies ReviewPending == true, always.
type CartLine struct {
	Key           string          `json:"key"` // catalog code or scanned barcode
	DisplayName   string          `json:"display_name"`
	Quantity      int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Origin        LineOrigin      `json:"origin"`
	ReviewPending bool            `json:"review_pending"`
	AddedAt       time.Time       `json:"added_at"`
}

// ExtendedCost returns unit cost × quantity.
func (l CartLine) ExtendedCost() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ManualEntry is an unknown-code sighting recorded for catalog curation.
type ManualEntry struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Actor       string    `json:"actor"`
	At          time.Time `json:"at"`
}

// ─── Transaction Types ──────────────────────────────────────────────────────

// Workflow names the page-level workflow a transaction belongs to.
// The three source workflows share one intake engine; the workflow tag
// travels with the transaction context and the audit journal.
type Workflow string

const (
	WorkflowCheckout   Workflow = "checkout"
	WorkflowReceiving  Workflow = "receiving"
	WorkflowQuickCount Workflow = "quickcount"
)

// TransactionContext carries the business fields that gate a commit.
// Actor and Destination are mandatory; a commit with either missing is
// rejected before any network call.
type TransactionContext struct {
	BatchID     string   `json:"batch_id,omitempty"` // assigned by the committer if empty
	Actor       string   `json:"actor"`
	Destination string   `json:"destination"`
	Notes       string   `json:"notes,omitempty"`
	Workflow    Workflow `json:"workflow,omitempty"`
}

// Validate checks the mandatory transaction fields.
func (c TransactionContext) Validate() error {
	if c.Actor == "" {
		return ErrMissingActor
	}
	if c.Destination == "" {
		return ErrMissingDestination
	}
	return nil
}

// OutcomeStatus is the per-line commit disposition.
type OutcomeStatus string

const (
	OutcomeCommitted OutcomeStatus = "committed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// LineOutcome is one line's commit result.
type LineOutcome struct {
	Key     string        `json:"key"`
	Outcome OutcomeStatus `json:"outcome"`
	Error   string        `json:"error,omitempty"`
}

// TransactionResult summarizes a commit run. Lines are reported in the
// order they were attempted.
type TransactionResult struct {
	BatchID   string        `json:"batch_id"`
	Committed int           `json:"committed"`
	Failed    int           `json:"failed"`
	Lines     []LineOutcome `json:"lines"`
}

// AllCommitted reports whether every line in the batch succeeded.
func (r TransactionResult) AllCommitted() bool { return r.Failed == 0 }
