// Package transport holds the three interchangeable backends of the
// data-access layer and the runtime decision between them: an embedded host
// bridge, the hosted HTTP action API, and a local persisted mock.
package transport

import (
	"context"
	"time"

	"github.com/calibworks/calibtrack/pkg/models"
)

// Operation names shared by every backend. The hosted API receives them as
// the envelope action, the embedded host resolves them to same-named remote
// procedures, and the local mock dispatches on them directly.
const (
	OpCheckAdminPassword  = "checkAdminPassword"
	OpChangeAdminPassword = "changeAdminPassword"

	OpGetProducts   = "getProducts"
	OpAddProduct    = "addProduct"
	OpUpdateProduct = "updateProduct"

	OpGetCustomers = "getCustomers"
	OpAddCustomer  = "addCustomer"

	OpGetTechnicians   = "getTechnicians"
	OpAddTechnician    = "addTechnician"
	OpDeleteTechnician = "deleteTechnician"

	OpGetOrders               = "getOrders"
	OpCreateOrder             = "createOrder"
	OpUpdateOrderStatusByNo   = "updateOrderStatusByNo"
	OpUpdateOrderTargetByNo   = "updateOrderTargetDateByNo"
	OpAppendOrderNotesByNo    = "appendOrderNotesByNo"
	OpRestoreOrderByNo        = "restoreOrderByNo"
	OpDeleteOrderByNo         = "deleteOrderByNo"
)

var knownOps = map[string]bool{
	OpCheckAdminPassword:    true,
	OpChangeAdminPassword:   true,
	OpGetProducts:           true,
	OpAddProduct:            true,
	OpUpdateProduct:         true,
	OpGetCustomers:          true,
	OpAddCustomer:           true,
	OpGetTechnicians:        true,
	OpAddTechnician:         true,
	OpDeleteTechnician:      true,
	OpGetOrders:             true,
	OpCreateOrder:           true,
	OpUpdateOrderStatusByNo: true,
	OpUpdateOrderTargetByNo: true,
	OpAppendOrderNotesByNo:  true,
	OpRestoreOrderByNo:      true,
	OpDeleteOrderByNo:       true,
}

// KnownOp reports whether name is one of the wire operations.
func KnownOp(name string) bool {
	return knownOps[name]
}

// Transport is the single capability every backend implements. The result is
// a decoded JSON value whose shape depends on the operation; hosted backends
// may return PascalCase keys and callers are expected to normalize.
type Transport interface {
	Invoke(ctx context.Context, operation string, payload interface{}) (interface{}, error)
}

// Mode identifies which backend serves the current call.
type Mode int

const (
	ModeEmbeddedHost Mode = iota
	ModeHTTPAPI
	ModeLocalMock
)

func (m Mode) String() string {
	switch m {
	case ModeEmbeddedHost:
		return "embedded-host"
	case ModeHTTPAPI:
		return "http-api"
	case ModeLocalMock:
		return "local-mock"
	default:
		return "unknown"
	}
}

// Resolve picks the active backend from the runtime environment. The
// embedded host wins when its bridge is present, a configured endpoint comes
// second, and the local mock is the expected terminal fallback. Resolve is
// pure and meant to be re-evaluated on every call site so the environment
// can change between calls.
func Resolve(bridge Bridge, endpoint string) Mode {
	if bridge != nil {
		return ModeEmbeddedHost
	}
	if endpoint != "" {
		return ModeHTTPAPI
	}
	return ModeLocalMock
}

// Operation payload shapes. These are the request bodies as every backend
// accepts them; responses come back as untyped JSON values.

type PasswordPayload struct {
	Password string `json:"password"`
}

type ChangePasswordPayload struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type CreateOrderPayload struct {
	Lines []models.NewOrderLine `json:"lines"`
}

type StatusUpdatePayload struct {
	OrderNumber string             `json:"orderNumber"`
	Status      models.OrderStatus `json:"status"`
}

type TargetDatePayload struct {
	OrderNumber string    `json:"orderNumber"`
	TargetDate  time.Time `json:"targetDate"`
}

type NotesPayload struct {
	OrderNumber string `json:"orderNumber"`
	Notes       string `json:"notes"`
}

type RestorePayload struct {
	OrderNumber string `json:"orderNumber"`
	Reason      string `json:"reason"`
}

type OrderNumberPayload struct {
	OrderNumber string `json:"orderNumber"`
}

type IDPayload struct {
	ID string `json:"id"`
}
