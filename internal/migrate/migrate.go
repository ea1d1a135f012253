// Package migrate moves a workstation's local dataset into a hosted server.
// Migration is one-directional: the local file is the source of record for a
// team moving off standalone mode, and the hosted API is the target. Nothing
// here ever writes back to the local store.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/internal/kvstore"
	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/pkg/models"
)

type Migrator struct {
	source kvstore.KV
	target transport.Transport
	logger *logrus.Logger
	config Config
}

type Config struct {
	// BatchSize bounds how many orders one worker sends before yielding.
	BatchSize   int           `json:"batchSize"`
	Concurrency int           `json:"concurrency"`
	Delay       time.Duration `json:"delay"`
	DryRun      bool          `json:"dryRun"`
	// SkipExisting leaves orders alone when the target already has their
	// order number. Catalog entries are always deduplicated by name.
	SkipExisting bool `json:"skipExisting"`
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    25,
		Concurrency:  4,
		Delay:        100 * time.Millisecond,
		SkipExisting: true,
	}
}

type Result struct {
	CatalogMigrated int           `json:"catalogMigrated"`
	OrdersMigrated  int           `json:"ordersMigrated"`
	OrdersSkipped   int           `json:"ordersSkipped"`
	Failed          int           `json:"failed"`
	Errors          []ItemError   `json:"errors"`
	DryRun          bool          `json:"dryRun"`
	Duration        time.Duration `json:"duration"`
}

type ItemError struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
	Error    string `json:"error"`
}

func New(source kvstore.KV, target transport.Transport, config Config, logger *logrus.Logger) *Migrator {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	return &Migrator{source: source, target: target, logger: logger, config: config}
}

// Run migrates catalog resources first, then orders. Catalog goes first so
// migrated orders land on a server that already knows the referenced
// customers and products.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{DryRun: m.config.DryRun, Errors: []ItemError{}}

	m.logger.WithFields(logrus.Fields{
		"dry_run":       m.config.DryRun,
		"skip_existing": m.config.SkipExisting,
	}).Info("Starting migration to hosted server")

	if err := m.migrateCatalog(ctx, result); err != nil {
		return nil, err
	}
	if err := m.migrateOrders(ctx, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	m.logger.WithFields(logrus.Fields{
		"catalog_migrated": result.CatalogMigrated,
		"orders_migrated":  result.OrdersMigrated,
		"orders_skipped":   result.OrdersSkipped,
		"failed":           result.Failed,
		"duration":         result.Duration,
	}).Info("Migration completed")

	return result, nil
}

func (m *Migrator) migrateCatalog(ctx context.Context, result *Result) error {
	var products []models.Product
	if _, err := m.source.Get(kvstore.KeyProducts, &products); err != nil {
		return fmt.Errorf("failed to read local products: %w", err)
	}
	var customers []models.Customer
	if _, err := m.source.Get(kvstore.KeyCustomers, &customers); err != nil {
		return fmt.Errorf("failed to read local customers: %w", err)
	}
	var technicians []models.Technician
	if _, err := m.source.Get(kvstore.KeyTechnicians, &technicians); err != nil {
		return fmt.Errorf("failed to read local technicians: %w", err)
	}

	existingProducts, existingCustomers, existingTechnicians, err := m.targetCatalogNames(ctx)
	if err != nil {
		return err
	}

	for _, p := range products {
		if existingProducts[p.Name] {
			continue
		}
		m.pushCatalogItem(ctx, result, transport.OpAddProduct, "products", p.Name, p)
	}
	for _, c := range customers {
		if existingCustomers[c.Name] {
			continue
		}
		m.pushCatalogItem(ctx, result, transport.OpAddCustomer, "customers", c.Name, c)
	}
	for _, tech := range technicians {
		if existingTechnicians[tech.Name] {
			continue
		}
		m.pushCatalogItem(ctx, result, transport.OpAddTechnician, "technicians", tech.Name, tech)
	}
	return nil
}

func (m *Migrator) pushCatalogItem(ctx context.Context, result *Result, op, resource, name string, item interface{}) {
	if m.config.DryRun {
		m.logger.WithFields(logrus.Fields{"resource": resource, "name": name}).Info("DRY RUN: would migrate catalog item")
		result.CatalogMigrated++
		return
	}
	if _, err := m.target.Invoke(ctx, op, item); err != nil {
		result.Failed++
		result.Errors = append(result.Errors, ItemError{Resource: resource, Key: name, Error: err.Error()})
		m.logger.WithError(err).WithField("name", name).Error("Failed to migrate catalog item")
		return
	}
	result.CatalogMigrated++
}

func (m *Migrator) migrateOrders(ctx context.Context, result *Result) error {
	var lines []models.OrderLine
	if _, err := m.source.Get(kvstore.KeyOrders, &lines); err != nil {
		return fmt.Errorf("failed to read local orders: %w", err)
	}

	existing := make(map[string]bool)
	if m.config.SkipExisting {
		numbers, err := m.targetOrderNumbers(ctx)
		if err != nil {
			return err
		}
		existing = numbers
	}

	// Group lines into logical orders; the target's create expects one
	// call per order number.
	grouped := make(map[string][]models.OrderLine)
	var orderedNumbers []string
	for _, line := range lines {
		if _, ok := grouped[line.OrderNumber]; !ok {
			orderedNumbers = append(orderedNumbers, line.OrderNumber)
		}
		grouped[line.OrderNumber] = append(grouped[line.OrderNumber], line)
	}

	var toMigrate []string
	for _, number := range orderedNumbers {
		if existing[number] {
			result.OrdersSkipped++
			continue
		}
		toMigrate = append(toMigrate, number)
	}

	if len(toMigrate) == 0 {
		m.logger.Info("No orders need migration")
		return nil
	}
	if m.config.DryRun {
		m.logger.WithField("count", len(toMigrate)).Info("DRY RUN: would migrate orders")
		result.OrdersMigrated += len(toMigrate)
		return nil
	}

	batches := batchNumbers(toMigrate, m.config.BatchSize)

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, m.config.Concurrency)

	for _, batch := range batches {
		wg.Add(1)
		go func(numbers []string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				time.Sleep(m.config.Delay)
			}()

			for _, number := range numbers {
				select {
				case <-ctx.Done():
					return
				default:
				}

				err := m.pushOrder(ctx, number, grouped[number])
				mu.Lock()
				if err != nil {
					result.Failed++
					result.Errors = append(result.Errors, ItemError{Resource: "orders", Key: number, Error: err.Error()})
				} else {
					result.OrdersMigrated++
				}
				mu.Unlock()
			}
		}(batch)
	}
	wg.Wait()
	return nil
}

func (m *Migrator) pushOrder(ctx context.Context, number string, lines []models.OrderLine) error {
	newLines := make([]models.NewOrderLine, 0, len(lines))
	for _, l := range lines {
		newLines = append(newLines, models.NewOrderLine{
			OrderNumber:     l.OrderNumber,
			EquipmentNumber: l.EquipmentNumber,
			EquipmentName:   l.EquipmentName,
			CustomerName:    l.CustomerName,
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			ProductSpec:     l.ProductSpec,
			Category:        l.Category,
			CalibrationType: l.CalibrationType,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountRate:    l.DiscountRate,
			TargetDate:      l.TargetDate,
			Technicians:     l.Technicians,
			Notes:           l.Notes,
		})
	}

	if _, err := m.target.Invoke(ctx, transport.OpCreateOrder, transport.CreateOrderPayload{Lines: newLines}); err != nil {
		m.logger.WithError(err).WithField("order_number", number).Error("Failed to migrate order")
		return err
	}

	// The source's status and archive state are re-applied after the
	// create, which always lands as Pending.
	status := lines[0].Status
	if status != "" && status != models.StatusPending {
		if _, err := m.target.Invoke(ctx, transport.OpUpdateOrderStatusByNo, transport.StatusUpdatePayload{
			OrderNumber: number,
			Status:      status,
		}); err != nil {
			return fmt.Errorf("order created but status not applied: %w", err)
		}
	}

	m.logger.WithFields(logrus.Fields{
		"order_number": number,
		"line_count":   len(lines),
	}).Debug("Order migrated")
	return nil
}

func (m *Migrator) targetOrderNumbers(ctx context.Context) (map[string]bool, error) {
	raw, err := m.target.Invoke(ctx, transport.OpGetOrders, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read target orders: %w", err)
	}
	var lines []models.OrderLine
	if err := reencode(raw, &lines); err != nil {
		return nil, err
	}
	numbers := make(map[string]bool, len(lines))
	for _, l := range lines {
		numbers[l.OrderNumber] = true
	}
	return numbers, nil
}

func (m *Migrator) targetCatalogNames(ctx context.Context) (products, customers, technicians map[string]bool, err error) {
	products, err = m.targetNames(ctx, transport.OpGetProducts)
	if err != nil {
		return nil, nil, nil, err
	}
	customers, err = m.targetNames(ctx, transport.OpGetCustomers)
	if err != nil {
		return nil, nil, nil, err
	}
	technicians, err = m.targetNames(ctx, transport.OpGetTechnicians)
	if err != nil {
		return nil, nil, nil, err
	}
	return products, customers, technicians, nil
}

func (m *Migrator) targetNames(ctx context.Context, op string) (map[string]bool, error) {
	raw, err := m.target.Invoke(ctx, op, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read target %s: %w", op, err)
	}
	var items []struct {
		Name string `json:"name"`
	}
	if err := reencode(raw, &items); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(items))
	for _, item := range items {
		names[item.Name] = true
	}
	return names, nil
}

// Verify re-reads both sides after a migration and reports whether every
// local order number is present on the target.
func (m *Migrator) Verify(ctx context.Context) (*Verification, error) {
	var lines []models.OrderLine
	if _, err := m.source.Get(kvstore.KeyOrders, &lines); err != nil {
		return nil, fmt.Errorf("failed to read local orders: %w", err)
	}
	targetNumbers, err := m.targetOrderNumbers(ctx)
	if err != nil {
		return nil, err
	}

	sourceNumbers := make(map[string]bool)
	for _, l := range lines {
		sourceNumbers[l.OrderNumber] = true
	}

	v := &Verification{
		SourceOrders: len(sourceNumbers),
		TargetOrders: len(targetNumbers),
	}
	for number := range sourceNumbers {
		if !targetNumbers[number] {
			v.MissingOnTarget = append(v.MissingOnTarget, number)
		}
	}
	v.Complete = len(v.MissingOnTarget) == 0

	m.logger.WithFields(logrus.Fields{
		"source_orders":     v.SourceOrders,
		"target_orders":     v.TargetOrders,
		"missing_on_target": len(v.MissingOnTarget),
	}).Info("Migration verification completed")

	return v, nil
}

type Verification struct {
	SourceOrders    int      `json:"sourceOrders"`
	TargetOrders    int      `json:"targetOrders"`
	MissingOnTarget []string `json:"missingOnTarget"`
	Complete        bool     `json:"complete"`
}

func batchNumbers(numbers []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(numbers); i += size {
		end := i + size
		if end > len(numbers) {
			end = len(numbers)
		}
		batches = append(batches, numbers[i:end])
	}
	return batches
}

func reencode(raw, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to re-encode response: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
