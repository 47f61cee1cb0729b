package execution

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SERVICE - What the engine needs from a broker
// ═══════════════════════════════════════════════════════════════════════════════
//
// One Service per instrument. Calls are synchronous and assumed to complete
// before the next bar. Modify and flatten are best effort.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Service is the execution collaborator
type Service interface {
	// SubmitEntry places a market entry with attached stop and target
	SubmitEntry(req types.OrderRequest) (string, error)

	// ModifyOrder moves a working stop or target
	ModifyOrder(id string, price decimal.Decimal) error

	// FlattenAll closes the position and cancels working orders
	FlattenAll() error

	// GetPosition returns the live position
	GetPosition() (types.PositionSnapshot, error)

	// ListOpenOrders returns working orders
	ListOpenOrders() ([]types.Order, error)
}

// BarObserver is implemented by simulated brokers that fill against bars.
// The engine calls OnBar before processing the bar itself.
type BarObserver interface {
	OnBar(bar types.Bar, index int)
}

// Errors returned by the paper broker
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrPositionOpen    = errors.New("position already open")
	ErrNoPrice         = errors.New("no reference price")
)
