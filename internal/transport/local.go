package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/internal/kvstore"
	"github.com/calibworks/calibtrack/pkg/models"
)

// opDelays emulates network behavior per operation weight. Reads of small
// collections are fast, the order collection is heavier, and order creation
// is the slowest call in the system.
var opDelays = map[string]time.Duration{
	OpCheckAdminPassword:    200 * time.Millisecond,
	OpChangeAdminPassword:   200 * time.Millisecond,
	OpGetProducts:           300 * time.Millisecond,
	OpAddProduct:            300 * time.Millisecond,
	OpUpdateProduct:         300 * time.Millisecond,
	OpGetCustomers:          200 * time.Millisecond,
	OpAddCustomer:           300 * time.Millisecond,
	OpGetTechnicians:        200 * time.Millisecond,
	OpAddTechnician:         300 * time.Millisecond,
	OpDeleteTechnician:      300 * time.Millisecond,
	OpGetOrders:             400 * time.Millisecond,
	OpCreateOrder:           800 * time.Millisecond,
	OpUpdateOrderStatusByNo: 400 * time.Millisecond,
	OpUpdateOrderTargetByNo: 400 * time.Millisecond,
	OpAppendOrderNotesByNo:  400 * time.Millisecond,
	OpRestoreOrderByNo:      400 * time.Millisecond,
	OpDeleteOrderByNo:       500 * time.Millisecond,
}

const defaultAdminPassword = "0000"

// LocalClient simulates every operation against a persisted key-value store.
// Results are produced directly in the normalized (camelCase) shape, so
// callers skip the key normalizer for this backend. The hosted server reuses
// the same engine with delays disabled.
type LocalClient struct {
	store  kvstore.KV
	logger *logrus.Logger
	delays bool
	now    func() time.Time
	newID  func() string
}

func NewLocalClient(store kvstore.KV, logger *logrus.Logger) *LocalClient {
	return &LocalClient{
		store:  store,
		logger: logger,
		delays: true,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// DisableDelays turns off the artificial latency. Used by the hosted server
// and by tests.
func (c *LocalClient) DisableDelays() {
	c.delays = false
}

func (c *LocalClient) Invoke(ctx context.Context, operation string, payload interface{}) (interface{}, error) {
	if !KnownOp(operation) {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}

	if err := c.sleep(ctx, operation); err != nil {
		return nil, err
	}

	switch operation {
	case OpCheckAdminPassword:
		return c.checkAdminPassword(payload)
	case OpChangeAdminPassword:
		return c.changeAdminPassword(payload)
	case OpGetProducts:
		return c.getProducts()
	case OpAddProduct:
		return c.addProduct(payload)
	case OpUpdateProduct:
		return c.updateProduct(payload)
	case OpGetCustomers:
		return c.getCustomers()
	case OpAddCustomer:
		return c.addCustomer(payload)
	case OpGetTechnicians:
		return c.getTechnicians()
	case OpAddTechnician:
		return c.addTechnician(payload)
	case OpDeleteTechnician:
		return c.deleteTechnician(payload)
	case OpGetOrders:
		return c.getOrders()
	case OpCreateOrder:
		return c.createOrder(payload)
	case OpUpdateOrderStatusByNo:
		return c.updateOrderStatusByNo(payload)
	case OpUpdateOrderTargetByNo:
		return c.updateOrderTargetDateByNo(payload)
	case OpAppendOrderNotesByNo:
		return c.appendOrderNotesByNo(payload)
	case OpRestoreOrderByNo:
		return c.restoreOrderByNo(payload)
	case OpDeleteOrderByNo:
		return c.deleteOrderByNo(payload)
	default:
		return nil, fmt.Errorf("unhandled operation %q", operation)
	}
}

func (c *LocalClient) sleep(ctx context.Context, operation string) error {
	if !c.delays {
		return nil
	}
	delay, ok := opDelays[operation]
	if !ok {
		delay = 300 * time.Millisecond
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodePayload accepts both typed request structs and the generic maps a
// decoded envelope produces, funneling either through JSON into dst.
func decodePayload(payload interface{}, dst interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func (c *LocalClient) checkAdminPassword(payload interface{}) (interface{}, error) {
	var req PasswordPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	stored, err := c.storedPassword()
	if err != nil {
		return nil, err
	}
	return req.Password == stored, nil
}

func (c *LocalClient) changeAdminPassword(payload interface{}) (interface{}, error) {
	var req ChangePasswordPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	stored, err := c.storedPassword()
	if err != nil {
		return nil, err
	}
	if req.OldPassword != stored {
		return false, nil
	}
	if err := c.store.Put(kvstore.KeyAdminPassword, req.NewPassword); err != nil {
		return nil, err
	}
	return true, nil
}

func (c *LocalClient) storedPassword() (string, error) {
	var stored string
	ok, err := c.store.Get(kvstore.KeyAdminPassword, &stored)
	if err != nil {
		return "", err
	}
	if !ok {
		return defaultAdminPassword, nil
	}
	return stored, nil
}

func (c *LocalClient) getProducts() (interface{}, error) {
	var products []models.Product
	if err := c.loadOrSeed(kvstore.KeyProducts, &products, func() interface{} { return seedProducts(c.now()) }); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *LocalClient) addProduct(payload interface{}) (interface{}, error) {
	var product models.Product
	if err := decodePayload(payload, &product); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := c.loadOrSeed(kvstore.KeyProducts, &products, func() interface{} { return seedProducts(c.now()) }); err != nil {
		return nil, err
	}

	product.ID = c.newID()
	product.LastUpdated = c.now()
	products = append(products, product)
	if err := c.store.Put(kvstore.KeyProducts, products); err != nil {
		return nil, err
	}
	return product, nil
}

func (c *LocalClient) updateProduct(payload interface{}) (interface{}, error) {
	var update models.Product
	if err := decodePayload(payload, &update); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := c.loadOrSeed(kvstore.KeyProducts, &products, func() interface{} { return seedProducts(c.now()) }); err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].ID == update.ID {
			update.LastUpdated = c.now()
			products[i] = update
			if err := c.store.Put(kvstore.KeyProducts, products); err != nil {
				return nil, err
			}
			return update, nil
		}
	}
	return nil, fmt.Errorf("product %q not found", update.ID)
}

func (c *LocalClient) getCustomers() (interface{}, error) {
	var customers []models.Customer
	if err := c.loadOrSeed(kvstore.KeyCustomers, &customers, func() interface{} { return seedCustomers() }); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *LocalClient) addCustomer(payload interface{}) (interface{}, error) {
	var customer models.Customer
	if err := decodePayload(payload, &customer); err != nil {
		return nil, err
	}

	var customers []models.Customer
	if err := c.loadOrSeed(kvstore.KeyCustomers, &customers, func() interface{} { return seedCustomers() }); err != nil {
		return nil, err
	}

	customer.ID = c.newID()
	customers = append(customers, customer)
	if err := c.store.Put(kvstore.KeyCustomers, customers); err != nil {
		return nil, err
	}
	return customer, nil
}

func (c *LocalClient) getTechnicians() (interface{}, error) {
	var technicians []models.Technician
	if err := c.loadOrSeed(kvstore.KeyTechnicians, &technicians, func() interface{} { return seedTechnicians() }); err != nil {
		return nil, err
	}
	return technicians, nil
}

func (c *LocalClient) addTechnician(payload interface{}) (interface{}, error) {
	var technician models.Technician
	if err := decodePayload(payload, &technician); err != nil {
		return nil, err
	}

	var technicians []models.Technician
	if err := c.loadOrSeed(kvstore.KeyTechnicians, &technicians, func() interface{} { return seedTechnicians() }); err != nil {
		return nil, err
	}

	technician.ID = c.newID()
	technicians = append(technicians, technician)
	if err := c.store.Put(kvstore.KeyTechnicians, technicians); err != nil {
		return nil, err
	}
	return technician, nil
}

func (c *LocalClient) deleteTechnician(payload interface{}) (interface{}, error) {
	var req IDPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	var technicians []models.Technician
	if err := c.loadOrSeed(kvstore.KeyTechnicians, &technicians, func() interface{} { return seedTechnicians() }); err != nil {
		return nil, err
	}

	kept := technicians[:0]
	removed := false
	for _, tech := range technicians {
		if tech.ID == req.ID {
			removed = true
			continue
		}
		kept = append(kept, tech)
	}
	if !removed {
		return nil, fmt.Errorf("technician %q not found", req.ID)
	}
	if err := c.store.Put(kvstore.KeyTechnicians, kept); err != nil {
		return nil, err
	}
	return true, nil
}

func (c *LocalClient) getOrders() (interface{}, error) {
	var lines []models.OrderLine
	if err := c.loadOrSeed(kvstore.KeyOrders, &lines, func() interface{} { return seedOrderLines(c.now()) }); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *LocalClient) createOrder(payload interface{}) (interface{}, error) {
	var req CreateOrderPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("createOrder payload has no lines")
	}

	var lines []models.OrderLine
	if err := c.loadOrSeed(kvstore.KeyOrders, &lines, func() interface{} { return seedOrderLines(c.now()) }); err != nil {
		return nil, err
	}

	created := make([]models.OrderLine, 0, len(req.Lines))
	now := c.now()
	for _, in := range req.Lines {
		created = append(created, models.OrderLine{
			ID:              c.newID(),
			OrderNumber:     in.OrderNumber,
			EquipmentNumber: in.EquipmentNumber,
			EquipmentName:   in.EquipmentName,
			CustomerName:    in.CustomerName,
			ProductID:       in.ProductID,
			ProductName:     in.ProductName,
			ProductSpec:     in.ProductSpec,
			Category:        in.Category,
			CalibrationType: in.CalibrationType,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountRate:    in.DiscountRate,
			TotalAmount:     models.LineTotal(in.UnitPrice, in.Quantity, in.DiscountRate),
			Status:          models.StatusPending,
			CreateDate:      now,
			TargetDate:      in.TargetDate,
			Technicians:     in.Technicians,
			Notes:           in.Notes,
		})
	}

	lines = append(created, lines...)
	if err := c.store.Put(kvstore.KeyOrders, lines); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_number": req.Lines[0].OrderNumber,
		"line_count":   len(created),
	}).Info("Order created in local store")

	return created, nil
}

func (c *LocalClient) updateOrderStatusByNo(payload interface{}) (interface{}, error) {
	var req StatusUpdatePayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return c.mutateLinesByNumber(req.OrderNumber, func(line *models.OrderLine) {
		line.Status = req.Status
		line.IsArchived = req.Status == models.StatusCompleted
	})
}

func (c *LocalClient) updateOrderTargetDateByNo(payload interface{}) (interface{}, error) {
	var req TargetDatePayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return c.mutateLinesByNumber(req.OrderNumber, func(line *models.OrderLine) {
		line.TargetDate = req.TargetDate
	})
}

func (c *LocalClient) appendOrderNotesByNo(payload interface{}) (interface{}, error) {
	var req NotesPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return c.mutateLinesByNumber(req.OrderNumber, func(line *models.OrderLine) {
		line.Notes = appendNote(line.Notes, req.Notes)
	})
}

func (c *LocalClient) restoreOrderByNo(payload interface{}) (interface{}, error) {
	var req RestorePayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return c.mutateLinesByNumber(req.OrderNumber, func(line *models.OrderLine) {
		line.Status = models.StatusPending
		line.IsArchived = false
		line.ResurrectReason = req.Reason
	})
}

func (c *LocalClient) deleteOrderByNo(payload interface{}) (interface{}, error) {
	var req OrderNumberPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	var lines []models.OrderLine
	if err := c.loadOrSeed(kvstore.KeyOrders, &lines, func() interface{} { return seedOrderLines(c.now()) }); err != nil {
		return nil, err
	}

	kept := lines[:0]
	removed := 0
	for _, line := range lines {
		if line.OrderNumber == req.OrderNumber {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return nil, fmt.Errorf("order %q not found", req.OrderNumber)
	}
	if err := c.store.Put(kvstore.KeyOrders, kept); err != nil {
		return nil, err
	}
	return removed, nil
}

// mutateLinesByNumber applies mutate to every line sharing the order number;
// lines of one logical order are always changed together.
func (c *LocalClient) mutateLinesByNumber(orderNumber string, mutate func(*models.OrderLine)) (interface{}, error) {
	var lines []models.OrderLine
	if err := c.loadOrSeed(kvstore.KeyOrders, &lines, func() interface{} { return seedOrderLines(c.now()) }); err != nil {
		return nil, err
	}

	touched := 0
	for i := range lines {
		if lines[i].OrderNumber == orderNumber {
			mutate(&lines[i])
			touched++
		}
	}
	if touched == 0 {
		return nil, fmt.Errorf("order %q not found", orderNumber)
	}
	if err := c.store.Put(kvstore.KeyOrders, lines); err != nil {
		return nil, err
	}
	return touched, nil
}

// loadOrSeed reads a resource, writing the fallback dataset first if the
// entry has never been persisted.
func (c *LocalClient) loadOrSeed(key string, dst interface{}, seed func() interface{}) error {
	ok, err := c.store.Get(key, dst)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	fallback := seed()
	if err := c.store.Put(key, fallback); err != nil {
		return err
	}
	c.logger.WithField("resource", key).Info("Seeded resource with fallback dataset")
	return decodePayload(fallback, dst)
}

func appendNote(existing, note string) string {
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n" + note
}
