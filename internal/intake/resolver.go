package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/infra/observability"
)

// ─── Resolution State Machine ───────────────────────────────────────────────

// ResolutionState is the lifecycle of one admitted token.
// States are mutually exclusive; capture is disabled outside StateIdle.
type ResolutionState int

const (
	StateIdle ResolutionState = iota
	StateLookupPending
	StateFound
	StateNotFound
)

// String returns the wire name of the state.
func (s ResolutionState) String() string {
	switch s {
	case StateLookupPending:
		return "pending"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not-found"
	default:
		return "idle"
	}
}

// Resolution is the ephemeral state held while a lookup is in flight or a
// confirmation dialog is open. The ID is the stale-response guard: a
// lookup response is applied only if its originating ID still matches the
// open resolution, otherwise it is discarded.
type Resolution struct {
	ID               uuid.UUID          `json:"id"`
	Token            domain.ScanToken   `json:"token"`
	State            ResolutionState    `json:"-"`
	Part             *domain.PartRecord `json:"part,omitempty"`
	ProposedQuantity int                `json:"proposed_quantity"`
}

// Resolver runs the per-token state machine:
// idle → lookupPending → {found, notFound} → {resolved, cancelled}.
// At most one resolution is open at a time.
type Resolver struct {
	mu      sync.Mutex
	svc     domain.InventoryService
	current *Resolution
	log     *zap.Logger

	// Dialog hooks, called without the lock held.
	onFound    func(Resolution)
	onNotFound func(Resolution)
}

// NewResolver creates a resolver over the inventory service.
func NewResolver(svc domain.InventoryService, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{svc: svc, log: log.Named("resolve")}
}

// SetHooks registers the dialog-open callbacks.
func (r *Resolver) SetHooks(onFound, onNotFound func(Resolution)) {
	r.mu.Lock()
	r.onFound = onFound
	r.onNotFound = onNotFound
	r.mu.Unlock()
}

// Current returns a copy of the open resolution, or nil.
func (r *Resolver) Current() *Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	cp := *r.current
	return &cp
}

// Begin opens a resolution for an admitted token and starts the catalog
// lookup. Returns ErrResolutionOpen if one is already open.
func (r *Resolver) Begin(ctx context.Context, tok domain.ScanToken) (uuid.UUID, error) {
	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return uuid.Nil, domain.ErrResolutionOpen
	}
	res := &Resolution{ID: uuid.New(), Token: tok, State: StateLookupPending}
	r.current = res
	id := res.ID
	r.mu.Unlock()

	go r.lookup(ctx, id, tok)
	return id, nil
}

// lookup resolves the token against the catalog and advances the state
// machine, unless the resolution was cancelled while the call was in
// flight.
func (r *Resolver) lookup(ctx context.Context, id uuid.UUID, tok domain.ScanToken) {
	start := time.Now()
	part, err := r.svc.LookupByCode(ctx, tok.Raw)
	observability.LookupDuration.Observe(time.Since(start).Seconds())

	r.mu.Lock()
	if r.current == nil || r.current.ID != id {
		r.mu.Unlock()
		observability.StaleResponsesDiscarded.Inc()
		r.log.Debug("stale lookup response discarded",
			zap.String("resolution_id", id.String()),
			zap.String("raw", tok.Raw))
		return
	}

	switch {
	case err == nil:
		observability.Lookups.WithLabelValues("found").Inc()
		r.current.State = StateFound
		r.current.Part = part
		r.current.ProposedQuantity = 1
		cb, res := r.onFound, *r.current
		r.mu.Unlock()
		r.log.Info("part resolved",
			zap.String("code", tok.Raw),
			zap.String("description", part.Description))
		if cb != nil {
			cb(res)
		}

	case errors.Is(err, domain.ErrPartNotFound):
		observability.Lookups.WithLabelValues("not_found").Inc()
		r.current.State = StateNotFound
		r.current.ProposedQuantity = 1
		cb, res := r.onNotFound, *r.current
		r.mu.Unlock()
		r.log.Info("code unknown to catalog, manual entry required",
			zap.String("code", tok.Raw))
		if cb != nil {
			cb(res)
		}

	default:
		// Transport failures fall into the manual path so the operator is
		// never blocked from finishing a physical count. They are still
		// distinguishable from a genuine not-found in logs and metrics.
		observability.Lookups.WithLabelValues("transport_error").Inc()
		r.current.State = StateNotFound
		r.current.ProposedQuantity = 1
		cb, res := r.onNotFound, *r.current
		r.mu.Unlock()
		r.log.Warn("catalog lookup failed, routing to manual entry",
			zap.String("code", tok.Raw),
			zap.Error(err))
		if cb != nil {
			cb(res)
		}
	}
}

// ConfirmQuantity completes a StateFound resolution with the operator's
// quantity and returns the catalog cart line. The resolution is closed.
func (r *Resolver) ConfirmQuantity(quantity int) (domain.CartLine, error) {
	if quantity <= 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return domain.CartLine{}, domain.ErrNoResolution
	}
	if r.current.State != StateFound {
		return domain.CartLine{}, domain.ErrWrongState
	}

	part := r.current.Part
	line := domain.CartLine{
		Key:         part.Code,
		DisplayName: part.Description,
		Quantity:    quantity,
		UnitCost:    part.UnitCost,
		Origin:      domain.OriginCatalog,
		AddedAt:     time.Now(),
	}
	r.current = nil
	return line, nil
}

// ConfirmManual completes a StateNotFound resolution with the operator's
// description and quantity. The manual-review record is submitted
// immediately so the unknown code reaches catalog curation even before
// the transaction commits; a submission failure is logged but does not
// block the line, which will be resubmitted at commit time anyway.
func (r *Resolver) ConfirmManual(ctx context.Context, description string, quantity int, actor string) (domain.CartLine, error) {
	if quantity <= 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	if description == "" {
		return domain.CartLine{}, domain.ErrEmptyDescription
	}

	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return domain.CartLine{}, domain.ErrNoResolution
	}
	if r.current.State != StateNotFound {
		r.mu.Unlock()
		return domain.CartLine{}, domain.ErrWrongState
	}
	code := r.current.Token.Raw
	r.current = nil
	r.mu.Unlock()

	entry := domain.ManualEntry{
		Code:        code,
		Description: description,
		Quantity:    quantity,
		Actor:       actor,
		At:          time.Now(),
	}
	if err := r.svc.SubmitManualEntry(ctx, entry); err != nil {
		r.log.Warn("manual entry submission failed, will resubmit at commit",
			zap.String("code", code),
			zap.Error(err))
	} else {
		observability.ManualEntriesSubmitted.Inc()
	}

	return domain.CartLine{
		Key:           code,
		DisplayName:   description,
		Quantity:      quantity,
		Origin:        domain.OriginManual,
		ReviewPending: true,
		AddedAt:       time.Now(),
	}, nil
}

// Cancel dismisses the open resolution, if any. A lookup response that
// arrives afterward fails the identity check in lookup and is discarded.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	if r.current != nil {
		r.log.Debug("resolution cancelled",
			zap.String("resolution_id", r.current.ID.String()),
			zap.String("raw", r.current.Token.Raw))
		r.current = nil
	}
	r.mu.Unlock()
}
