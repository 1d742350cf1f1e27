package intake

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/partflow-io/partflow/internal/domain"
)

// fakeInventory is an in-memory InventoryService for pipeline tests.
type fakeInventory struct {
	mu    sync.Mutex
	parts map[string]domain.PartRecord

	lookupErr  error         // non-nil: every lookup fails with this (transport error)
	lookupGate chan struct{} // non-nil: LookupByCode blocks until closed

	manualEntries  []domain.ManualEntry
	catalogCommits []string
	manualCommits  []string
	failKeys       map[string]error // commit failures by line key
	lastContext    domain.TransactionContext
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		parts:    make(map[string]domain.PartRecord),
		failKeys: make(map[string]error),
	}
}

func (f *fakeInventory) addPart(code, description, unitCost string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts[code] = domain.PartRecord{
		Code:        code,
		Description: description,
		UnitCost:    decimal.RequireFromString(unitCost),
	}
}

func (f *fakeInventory) LookupByCode(ctx context.Context, code string) (*domain.PartRecord, error) {
	f.mu.Lock()
	gate := f.lookupGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.parts[code]
	if !ok {
		return nil, domain.ErrPartNotFound
	}
	return &p, nil
}

func (f *fakeInventory) SubmitManualEntry(ctx context.Context, entry domain.ManualEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manualEntries = append(f.manualEntries, entry)
	return nil
}

func (f *fakeInventory) CommitCatalogLine(ctx context.Context, line domain.CartLine, tc domain.TransactionContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastContext = tc
	if err, ok := f.failKeys[line.Key]; ok {
		return err
	}
	f.catalogCommits = append(f.catalogCommits, line.Key)
	return nil
}

func (f *fakeInventory) CommitManualLine(ctx context.Context, line domain.CartLine, tc domain.TransactionContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastContext = tc
	if err, ok := f.failKeys[line.Key]; ok {
		return err
	}
	f.manualCommits = append(f.manualCommits, line.Key)
	return nil
}

func (f *fakeInventory) manualEntryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.manualEntries)
}

var errTransport = errors.New("connection refused")
