// Package kvstore is the persisted store behind the local-mock transport and
// the hosted server: one entry per resource, each holding the JSON-serialized
// collection or value for that resource.
package kvstore

// KV is the store capability the operation engine needs. Get reports
// ok=false when the key has never been written.
type KV interface {
	Get(key string, dst interface{}) (bool, error)
	Put(key string, value interface{}) error
	Delete(key string) error
}

// Resource keys. Every backend persists the same five entries.
const (
	KeyAdminPassword = "adminPassword"
	KeyProducts      = "products"
	KeyCustomers     = "customers"
	KeyTechnicians   = "technicians"
	KeyOrders        = "orders"
)
