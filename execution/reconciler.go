package execution

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RECONCILIATION - Persist the open position, recover it on startup
// ═══════════════════════════════════════════════════════════════════════════════
//
// Reconciler wraps a PaperBroker and mirrors its position and working
// orders into a PositionStore after every state change, so a restarted
// replay resumes with the same live position instead of a ghost.
//
// ═══════════════════════════════════════════════════════════════════════════════

// PositionStore persists one open position per symbol
type PositionStore interface {
	SaveOpenPosition(pos types.PositionSnapshot, orders []types.Order) error
	DeleteOpenPosition(symbol string) error
	LoadOpenPosition(symbol string) (types.PositionSnapshot, []types.Order, bool, error)
}

// Reconciler implements Service and BarObserver over a PaperBroker
type Reconciler struct {
	broker *PaperBroker
	store  PositionStore
	symbol string
}

// NewReconciler creates a persisting wrapper; a nil store disables it
func NewReconciler(broker *PaperBroker, store PositionStore) *Reconciler {
	return &Reconciler{broker: broker, store: store, symbol: broker.inst.Symbol}
}

// Broker returns the wrapped paper broker
func (r *Reconciler) Broker() *PaperBroker {
	return r.broker
}

// RecoverPosition loads a persisted position into the broker
func (r *Reconciler) RecoverPosition() (bool, error) {
	if r.store == nil {
		log.Info().Msg("📦 No database - skipping position recovery")
		return false, nil
	}

	pos, orders, ok, err := r.store.LoadOpenPosition(r.symbol)
	if err != nil {
		log.Error().Err(err).Str("symbol", r.symbol).Msg("❌ Failed to load persisted position")
		return false, err
	}
	if !ok || pos.IsFlat() {
		log.Info().Str("symbol", r.symbol).Msg("📦 No persisted position to recover")
		return false, nil
	}

	r.broker.LoadPosition(pos, orders)
	log.Warn().
		Str("symbol", r.symbol).
		Str("qty", pos.Quantity.String()).
		Str("avg", pos.AveragePrice.String()).
		Int("orders", len(orders)).
		Msg("📥 Recovered position")
	return true, nil
}

// Persist mirrors the broker state into the store
func (r *Reconciler) Persist() error {
	if r.store == nil {
		return nil
	}
	pos, _ := r.broker.GetPosition()
	if pos.IsFlat() {
		return r.store.DeleteOpenPosition(r.symbol)
	}
	orders, _ := r.broker.ListOpenOrders()
	return r.store.SaveOpenPosition(pos, orders)
}

func (r *Reconciler) persist() {
	if err := r.Persist(); err != nil {
		log.Error().Err(err).Str("symbol", r.symbol).Msg("Failed to persist position")
	}
}

// SubmitEntry implements Service
func (r *Reconciler) SubmitEntry(req types.OrderRequest) (string, error) {
	id, err := r.broker.SubmitEntry(req)
	if err == nil {
		r.persist()
	}
	return id, err
}

// ModifyOrder implements Service
func (r *Reconciler) ModifyOrder(id string, price decimal.Decimal) error {
	if err := r.broker.ModifyOrder(id, price); err != nil {
		return err
	}
	r.persist()
	return nil
}

// FlattenAll implements Service
func (r *Reconciler) FlattenAll() error {
	if err := r.broker.FlattenAll(); err != nil {
		return err
	}
	r.persist()
	return nil
}

// GetPosition implements Service
func (r *Reconciler) GetPosition() (types.PositionSnapshot, error) {
	return r.broker.GetPosition()
}

// ListOpenOrders implements Service
func (r *Reconciler) ListOpenOrders() ([]types.Order, error) {
	return r.broker.ListOpenOrders()
}

// OnBar implements BarObserver
func (r *Reconciler) OnBar(bar types.Bar, index int) {
	before, _ := r.broker.GetPosition()
	r.broker.OnBar(bar, index)
	after, _ := r.broker.GetPosition()
	if !before.Quantity.Equal(after.Quantity) {
		r.persist()
	}
}
