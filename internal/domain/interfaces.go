package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the intake engine depends on them.

// InventoryService is the remote inventory API consumed by the intake
// engine. The backend offers no multi-row transaction guarantee; each
// commit call is an independent request with an independent outcome.
type InventoryService interface {
	// LookupByCode resolves a scanned code against the catalog.
	// Returns ErrPartNotFound when the code is unknown.
	LookupByCode(ctx context.Context, code string) (*PartRecord, error)

	// SubmitManualEntry records an unknown-code sighting for later
	// catalog curation. Safe to resubmit; the backend deduplicates.
	SubmitManualEntry(ctx context.Context, entry ManualEntry) error

	// CommitCatalogLine submits one charge-out transaction line.
	CommitCatalogLine(ctx context.Context, line CartLine, tc TransactionContext) error

	// CommitManualLine submits one manual-review line at commit time.
	CommitManualLine(ctx context.Context, line CartLine, tc TransactionContext) error
}

// Journal is the local audit trail of scan and commit activity.
// Pure client-side troubleshooting record; server-side persistence is
// the inventory service's concern.
type Journal interface {
	RecordScan(token ScanToken, admitted bool, workflow Workflow) error
	RecordResolution(token ScanToken, disposition string, line *CartLine) error
	RecordCommitLine(batchID string, outcome LineOutcome, workflow Workflow) error
	Close() error
}
