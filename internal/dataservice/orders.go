package dataservice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/pkg/models"
)

// Markers of malformed rows that spreadsheet-backed transports are known to
// emit: exported header rows and concatenated column captions.
const (
	headerToken       = "ordernumber"
	joinedHeaderToken = "ID, OrderNumber"
)

// GetOrders returns the order-line collection: cached view when fresh,
// otherwise a transport read filtered for validity and cached.
func (s *Service) GetOrders(ctx context.Context, forceRefresh bool) ([]models.OrderLine, error) {
	if !forceRefresh {
		if v, ok := s.cache.Get(cacheKeyOrders); ok {
			return v.([]models.OrderLine), nil
		}
	}

	lines, err := s.FetchOrders(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyOrders, lines)
	return lines, nil
}

// FetchOrders reads the order collection straight from the active transport,
// bypassing the cache in both directions. The drift diagnostics use it to
// obtain the backend's truth without disturbing the optimistic view.
func (s *Service) FetchOrders(ctx context.Context) ([]models.OrderLine, error) {
	raw, err := s.invoke(ctx, transport.OpGetOrders, nil)
	if err != nil {
		return nil, err
	}
	var lines []models.OrderLine
	if err := decode(raw, &lines); err != nil {
		return nil, err
	}
	return filterValidLines(lines), nil
}

// CachedOrders exposes the current cached order view without triggering any
// fetch. ok is false when the cache holds nothing for the collection.
func (s *Service) CachedOrders() ([]models.OrderLine, bool) {
	v, ok := s.cache.Get(cacheKeyOrders)
	if !ok {
		return nil, false
	}
	return v.([]models.OrderLine), true
}

// filterValidLines drops malformed rows: empty order numbers, the literal
// header token, and rows carrying a joined header caption. Relative order of
// surviving lines is preserved.
func filterValidLines(lines []models.OrderLine) []models.OrderLine {
	kept := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		if line.OrderNumber == "" {
			continue
		}
		if strings.EqualFold(line.OrderNumber, headerToken) {
			continue
		}
		if strings.Contains(line.OrderNumber, joinedHeaderToken) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// CreateOrder validates and optimistically creates one logical order: every
// supplied line shares the order number, synthetic lines with temporary ids
// are prepended to the cached collection immediately, and the real create is
// fired in the background.
func (s *Service) CreateOrder(ctx context.Context, lines []models.NewOrderLine) ([]models.OrderLine, error) {
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "an order needs at least one line"}
	}
	orderNumber := lines[0].OrderNumber
	for _, line := range lines {
		switch {
		case line.OrderNumber == "":
			return nil, &ValidationError{Field: "orderNumber", Message: "order number is required"}
		case line.OrderNumber != orderNumber:
			return nil, &ValidationError{Field: "orderNumber", Message: "all lines of one order share a single order number"}
		case line.CustomerName == "":
			return nil, &ValidationError{Field: "customerName", Message: "customer name is required"}
		case line.ProductName == "":
			return nil, &ValidationError{Field: "productName", Message: "product name is required"}
		case line.Quantity <= 0:
			return nil, &ValidationError{Field: "quantity", Message: "quantity must be positive"}
		case line.DiscountRate < 0 || line.DiscountRate > 100:
			return nil, &ValidationError{Field: "discountRate", Message: "discount rate must be between 0 and 100"}
		}
	}

	existing, err := s.GetOrders(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, line := range existing {
		if line.OrderNumber == orderNumber {
			return nil, &DuplicateOrderError{OrderNumber: orderNumber}
		}
	}

	now := s.now()
	created := make([]models.OrderLine, 0, len(lines))
	for _, in := range lines {
		created = append(created, models.OrderLine{
			// Temporary id; the backend assigns the real one, and a
			// later fresh read replaces the whole collection anyway.
			ID:              "tmp-" + uuid.New().String(),
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

	s.applyOptimistic(func(cached []models.OrderLine) []models.OrderLine {
		return append(append([]models.OrderLine{}, created...), cached...)
	})
	s.fireAndForget(transport.OpCreateOrder, transport.CreateOrderPayload{Lines: lines})
	return created, nil
}

// UpdateOrderStatusByNo flips every line of the order to the new status and
// keeps the archive flag in lockstep: Completed archives, anything else
// unarchives.
func (s *Service) UpdateOrderStatusByNo(ctx context.Context, orderNumber string, status models.OrderStatus) error {
	if orderNumber == "" {
		return &ValidationError{Field: "orderNumber", Message: "order number is required"}
	}
	switch status {
	case models.StatusPending, models.StatusCalibrating, models.StatusCompleted:
	default:
		return &ValidationError{Field: "status", Message: "unknown order status"}
	}

	s.mutateByNumber(orderNumber, func(line *models.OrderLine) {
		line.Status = status
		line.IsArchived = status == models.StatusCompleted
	})
	s.fireAndForget(transport.OpUpdateOrderStatusByNo, transport.StatusUpdatePayload{
		OrderNumber: orderNumber,
		Status:      status,
	})
	return nil
}

func (s *Service) UpdateOrderTargetDateByNo(ctx context.Context, orderNumber string, targetDate time.Time) error {
	if orderNumber == "" {
		return &ValidationError{Field: "orderNumber", Message: "order number is required"}
	}

	s.mutateByNumber(orderNumber, func(line *models.OrderLine) {
		line.TargetDate = targetDate
	})
	s.fireAndForget(transport.OpUpdateOrderTargetByNo, transport.TargetDatePayload{
		OrderNumber: orderNumber,
		TargetDate:  targetDate,
	})
	return nil
}

func (s *Service) AppendOrderNotesByNo(ctx context.Context, orderNumber, note string) error {
	if orderNumber == "" {
		return &ValidationError{Field: "orderNumber", Message: "order number is required"}
	}
	if strings.TrimSpace(note) == "" {
		return &ValidationError{Field: "notes", Message: "note text is required"}
	}

	s.mutateByNumber(orderNumber, func(line *models.OrderLine) {
		if strings.TrimSpace(line.Notes) == "" {
			line.Notes = note
			return
		}
		line.Notes = line.Notes + "\n" + note
	})
	s.fireAndForget(transport.OpAppendOrderNotesByNo, transport.NotesPayload{
		OrderNumber: orderNumber,
		Notes:       note,
	})
	return nil
}

// RestoreOrderByNo pulls an archived order back into work: status returns to
// Pending, the archive flag clears, and the reason is recorded on every line.
func (s *Service) RestoreOrderByNo(ctx context.Context, orderNumber, reason string) error {
	if orderNumber == "" {
		return &ValidationError{Field: "orderNumber", Message: "order number is required"}
	}
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "reason", Message: "a restore reason is required"}
	}

	s.mutateByNumber(orderNumber, func(line *models.OrderLine) {
		line.Status = models.StatusPending
		line.IsArchived = false
		line.ResurrectReason = reason
	})
	s.fireAndForget(transport.OpRestoreOrderByNo, transport.RestorePayload{
		OrderNumber: orderNumber,
		Reason:      reason,
	})
	return nil
}

func (s *Service) DeleteOrderByNo(ctx context.Context, orderNumber string) error {
	if orderNumber == "" {
		return &ValidationError{Field: "orderNumber", Message: "order number is required"}
	}

	s.applyOptimistic(func(cached []models.OrderLine) []models.OrderLine {
		kept := make([]models.OrderLine, 0, len(cached))
		for _, line := range cached {
			if line.OrderNumber == orderNumber {
				continue
			}
			kept = append(kept, line)
		}
		return kept
	})
	s.fireAndForget(transport.OpDeleteOrderByNo, transport.OrderNumberPayload{OrderNumber: orderNumber})
	return nil
}

// applyOptimistic commits a locally-computed projection of the order
// collection to the cache: current cached view in (empty on miss, no fetch
// is triggered), post-mutation view out, written unconditionally. The
// projection is never invalidated afterward; it expires with the TTL.
func (s *Service) applyOptimistic(project func([]models.OrderLine) []models.OrderLine) {
	current, _ := s.CachedOrders()
	s.cache.Set(cacheKeyOrders, project(current))
}

func (s *Service) mutateByNumber(orderNumber string, mutate func(*models.OrderLine)) {
	s.applyOptimistic(func(cached []models.OrderLine) []models.OrderLine {
		out := make([]models.OrderLine, len(cached))
		copy(out, cached)
		for i := range out {
			if out[i].OrderNumber == orderNumber {
				mutate(&out[i])
			}
		}
		return out
	})
}
