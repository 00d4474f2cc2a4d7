package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/mirabelleshop/cart-backend/pkg/enums"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/logger"
	"github.com/mirabelleshop/cart-backend/pkg/metrics"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

const defaultCurrencyCode = "usd"

// Options configure a Store. Gateway is required; everything else is
// optional.
type Options struct {
	Gateway      Gateway
	Notifier     Notifier
	Logger       *logger.Logger
	Metrics      *metrics.CartSyncMetrics
	CurrencyCode string
	QueueBuffer  int
}

// Store owns the single in-memory cart snapshot for one session and keeps it
// reconciled with the server. Speculative edits land on the snapshot
// synchronously; the matching network call is serialized behind earlier
// calls of the same mutation kind and, on settlement, either the server's
// snapshot is adopted wholesale or the pre-mutation snapshot is restored.
//
// Snapshots are copy-on-write: a *CartSnapshot handed out by Snapshot() is
// never mutated afterwards and must be treated as read-only.
type Store struct {
	gateway  Gateway
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.CartSyncMetrics
	currency string

	mu        sync.RWMutex
	snapshot  *types.CartSnapshot
	lastError string
	removing  map[string]struct{}
	updating  map[string]struct{}
	inFlight  int

	queues map[enums.MutationKind]*opQueue
}

// New builds a Store bound to one user session.
func New(opts Options) (*Store, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("cart gateway required")
	}
	currency := opts.CurrencyCode
	if currency == "" {
		currency = defaultCurrencyCode
	}
	s := &Store{
		gateway:  opts.Gateway,
		notifier: opts.Notifier,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		currency: currency,
		removing: map[string]struct{}{},
		updating: map[string]struct{}{},
		queues: map[enums.MutationKind]*opQueue{
			enums.MutationKindAdd:    newOpQueue(enums.MutationKindAdd, opts.QueueBuffer, opts.Metrics),
			enums.MutationKindRemove: newOpQueue(enums.MutationKindRemove, opts.QueueBuffer, opts.Metrics),
			enums.MutationKindUpdate: newOpQueue(enums.MutationKindUpdate, opts.QueueBuffer, opts.Metrics),
		},
	}
	return s, nil
}

// Snapshot returns the current cart, or nil before any cart exists. The
// returned value is read-only.
func (s *Store) Snapshot() *types.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// IsRemoving reports whether a remove for the line is still in flight.
func (s *Store) IsRemoving(lineID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.removing[lineID]
	return ok
}

// IsUpdating reports whether a quantity update for the line is still in flight.
func (s *Store) IsUpdating(lineID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.updating[lineID]
	return ok
}

// IsSyncing reports whether any mutation is awaiting server settlement.
func (s *Store) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// LastError returns the most recent failure message, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// OptimisticAdd merges the line into the snapshot immediately, then confirms
// with the server behind any earlier pending adds. On success the server
// snapshot replaces the speculative one; on failure the pre-mutation
// snapshot is restored and the error is surfaced and returned.
func (s *Store) OptimisticAdd(ctx context.Context, input AddLineInput) error {
	if input.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	s.mu.Lock()
	prev := s.snapshot
	s.snapshot = applyAdd(prev, input, s.currency)
	s.inFlight++
	s.mu.Unlock()
	s.metrics.IncMutation(enums.MutationKindAdd.String())

	return s.settle(ctx, enums.MutationKindAdd, func() { s.restore(prev) }, func() error {
		srv, err := s.gateway.AddLine(ctx, s.serverCartID(), input)
		if err != nil {
			s.restore(prev)
			s.metrics.IncRollback(enums.MutationKindAdd.String())
			s.fail(ctx, enums.MutationKindAdd, err)
			return err
		}
		s.adopt(srv)
		return nil
	})
}

// OptimisticRemove drops the line from the snapshot immediately and confirms
// with the server. The line id stays in the removing set until settlement.
// A failed remove surfaces the error but does not restore the removed line;
// the next authoritative reload resolves the divergence.
func (s *Store) OptimisticRemove(ctx context.Context, lineID string) error {
	if isTempLineID(lineID) {
		return pkgerrors.New(pkgerrors.CodeConflict, "line is awaiting server confirmation")
	}

	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "no cart to remove from")
	}
	idx := s.snapshot.FindLine(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	next := s.snapshot.Clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	recalcLight(next)
	s.snapshot = next
	s.removing[lineID] = struct{}{}
	s.inFlight++
	s.mu.Unlock()
	s.metrics.IncMutation(enums.MutationKindRemove.String())

	// Settlement failures are surfaced through LastError and the notifier
	// only; remove deliberately does not propagate them.
	_ = s.settle(ctx, enums.MutationKindRemove, func() { s.clearRemoving(lineID) }, func() error {
		defer s.clearRemoving(lineID)
		srv, err := s.gateway.RemoveLine(ctx, lineID)
		if err != nil {
			s.fail(ctx, enums.MutationKindRemove, err)
			return err
		}
		s.adopt(srv)
		return nil
	})
	return nil
}

// OptimisticUpdateQuantity rewrites the line's quantity and totals from its
// existing unit prices, then confirms with the server. On failure the full
// pre-mutation snapshot is restored and the error returned.
func (s *Store) OptimisticUpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if isTempLineID(lineID) {
		return pkgerrors.New(pkgerrors.CodeConflict, "line is awaiting server confirmation")
	}

	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "no cart to update")
	}
	prev := s.snapshot
	idx := prev.FindLine(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	next := prev.Clone()
	line := &next.Items[idx]
	line.Quantity = quantity
	line.TotalCents = line.UnitPriceCents * int64(quantity)
	line.OriginalTotalCents = line.OriginalUnitPriceCents * int64(quantity)
	line.SubtotalCents = line.TotalCents
	recalcLight(next)
	s.snapshot = next
	s.updating[lineID] = struct{}{}
	s.inFlight++
	s.mu.Unlock()
	s.metrics.IncMutation(enums.MutationKindUpdate.String())

	rollback := func() {
		s.restore(prev)
		s.clearUpdating(lineID)
	}
	return s.settle(ctx, enums.MutationKindUpdate, rollback, func() error {
		defer s.clearUpdating(lineID)
		srv, err := s.gateway.UpdateLineQuantity(ctx, lineID, quantity)
		if err != nil {
			s.restore(prev)
			s.metrics.IncRollback(enums.MutationKindUpdate.String())
			s.fail(ctx, enums.MutationKindUpdate, err)
			return err
		}
		s.adopt(srv)
		return nil
	})
}

// ReloadFromServer replaces the snapshot with server truth unconditionally.
func (s *Store) ReloadFromServer(ctx context.Context) error {
	srv, err := s.gateway.FetchCart(ctx)
	if err != nil {
		s.recordError(err)
		s.notify(ctx, err)
		return err
	}
	s.adoptIncludingNil(srv)
	return nil
}

// ApplyPromotionCode applies the code server-side and reloads on success.
// Promotion effects are never predicted client-side: they depend on
// server-side window and minimum checks. On failure the error is surfaced
// and returned without a reload, so totals may stay stale until the next
// authoritative load.
func (s *Store) ApplyPromotionCode(ctx context.Context, code string) error {
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion code is required")
	}
	if err := s.gateway.ApplyPromotionCodes(ctx, []string{code}); err != nil {
		s.recordError(err)
		s.notify(ctx, err)
		return err
	}
	return s.ReloadFromServer(ctx)
}

// RemovePromotionCode re-applies the remaining codes and reloads on success.
// Failures are surfaced through the notifier only.
func (s *Store) RemovePromotionCode(ctx context.Context, code string) error {
	remaining := []string{}
	s.mu.RLock()
	if s.snapshot != nil {
		for _, promo := range s.snapshot.Promotions {
			if promo.Code != code {
				remaining = append(remaining, promo.Code)
			}
		}
	}
	s.mu.RUnlock()

	if err := s.gateway.ApplyPromotionCodes(ctx, remaining); err != nil {
		s.recordError(err)
		s.notify(ctx, err)
		return nil
	}
	return s.ReloadFromServer(ctx)
}

// ApplyRewards requests a reward spend server-side and reloads on success.
// On failure the error is surfaced and returned without a reload.
func (s *Store) ApplyRewards(ctx context.Context, points int64) error {
	if points < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reward points cannot be negative")
	}
	if err := s.gateway.ApplyRewardPoints(ctx, points); err != nil {
		s.recordError(err)
		s.notify(ctx, err)
		return err
	}
	return s.ReloadFromServer(ctx)
}

// ClearCart discards the snapshot and any in-flight id markers, e.g. after
// checkout completes.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.removing = map[string]struct{}{}
	s.updating = map[string]struct{}{}
}

// Close stops the mutation queues after letting queued calls settle.
func (s *Store) Close() error {
	var errs []error
	for _, q := range s.queues {
		errs = append(errs, q.close())
	}
	return multierr.Combine(errs...)
}

// settle enqueues the task on its kind's queue and blocks until it settles,
// recording the settle duration and failure count. rollback runs when the
// queue rejects the task, so a speculative edit that never reached the
// server does not survive in the snapshot.
func (s *Store) settle(ctx context.Context, kind enums.MutationKind, rollback func(), task func() error) error {
	start := time.Now()
	res, err := s.queues[kind].enqueue(task)
	if err != nil {
		if rollback != nil {
			rollback()
		}
		s.decInFlight()
		wrapped := pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart store is closed")
		s.recordError(wrapped)
		return wrapped
	}
	settleErr := <-res
	s.metrics.ObserveSettle(kind.String(), time.Since(start))
	s.decInFlight()
	if settleErr != nil {
		s.metrics.IncFailure(kind.String())
	}
	return settleErr
}

// applyAdd produces the speculative snapshot for an add: merge into the
// matching line when variant and metadata agree, otherwise synthesize a new
// line with a temporary id.
func applyAdd(prev *types.CartSnapshot, input AddLineInput, currency string) *types.CartSnapshot {
	next := prev.Clone()
	if next == nil {
		next = newTempCart(currency)
	}
	if idx := next.FindMergeTarget(input.VariantID, input.Metadata); idx >= 0 {
		line := &next.Items[idx]
		line.Quantity += input.Quantity
		line.TotalCents = line.UnitPriceCents * int64(line.Quantity)
		line.OriginalTotalCents = line.OriginalUnitPriceCents * int64(line.Quantity)
		line.SubtotalCents = line.TotalCents
	} else {
		qty := int64(input.Quantity)
		next.Items = append(next.Items, types.CartLineItem{
			ID:                     tempLineID(input.VariantID, input.Metadata),
			ProductID:              input.ProductID,
			VariantID:              input.VariantID,
			Quantity:               input.Quantity,
			UnitPriceCents:         input.UnitPriceCents,
			OriginalUnitPriceCents: input.OriginalUnitPriceCents,
			TotalCents:             input.UnitPriceCents * qty,
			OriginalTotalCents:     input.OriginalUnitPriceCents * qty,
			SubtotalCents:          input.UnitPriceCents * qty,
			Metadata:               input.Metadata,
			Title:                  input.Title,
			Thumbnail:              input.Thumbnail,
			ProductTitle:           input.ProductTitle,
			ProductHandle:          input.ProductHandle,
		})
	}
	recalcLight(next)
	return next
}

// serverCartID returns the id to send with server calls; temporary ids are
// never sent.
func (s *Store) serverCartID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil || s.snapshot.IsTempCart() {
		return ""
	}
	return s.snapshot.ID
}

// adopt replaces the snapshot with server truth, ignoring nil responses.
func (s *Store) adopt(srv *types.CartSnapshot) {
	if srv == nil {
		return
	}
	s.mu.Lock()
	s.snapshot = srv
	s.mu.Unlock()
}

// adoptIncludingNil replaces the snapshot even with nil (no server cart).
func (s *Store) adoptIncludingNil(srv *types.CartSnapshot) {
	s.mu.Lock()
	s.snapshot = srv
	s.mu.Unlock()
}

func (s *Store) restore(prev *types.CartSnapshot) {
	s.mu.Lock()
	s.snapshot = prev
	s.mu.Unlock()
}

func (s *Store) clearRemoving(lineID string) {
	s.mu.Lock()
	delete(s.removing, lineID)
	s.mu.Unlock()
}

func (s *Store) clearUpdating(lineID string) {
	s.mu.Lock()
	delete(s.updating, lineID)
	s.mu.Unlock()
}

func (s *Store) decInFlight() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.mu.Unlock()
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.lastError = errorMessage(err)
	s.mu.Unlock()
}

// fail records the failure and forwards it to the notifier and log.
func (s *Store) fail(ctx context.Context, kind enums.MutationKind, err error) {
	s.recordError(err)
	s.notify(ctx, err)
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "op", kind.String())
		s.logg.Warn(ctx, "cart mutation failed: "+errorMessage(err))
	}
}

func (s *Store) notify(ctx context.Context, err error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, errorMessage(err))
}

// errorMessage prefers the typed error's human-readable message.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return err.Error()
}
