package transport

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/calibworks/calibtrack/internal/kvstore"
	"github.com/calibworks/calibtrack/pkg/models"
)

func newTestLocalClient(t *testing.T) *LocalClient {
	t.Helper()
	store, err := kvstore.OpenFile(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	client := NewLocalClient(store, testLogger())
	client.DisableDelays()
	seq := 0
	client.newID = func() string {
		seq++
		return fmt.Sprintf("test-id-%d", seq)
	}
	return client
}

func TestLocalSeedsOnFirstAccess(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	result, err := client.Invoke(ctx, OpGetOrders, nil)
	if err != nil {
		t.Fatalf("getOrders: %v", err)
	}
	lines := result.([]models.OrderLine)
	if len(lines) == 0 {
		t.Fatal("expected seeded order lines on first access")
	}
	for _, line := range lines {
		if line.OrderNumber == "" {
			t.Error("seeded lines must carry an order number")
		}
	}

	products, err := client.Invoke(ctx, OpGetProducts, nil)
	if err != nil {
		t.Fatalf("getProducts: %v", err)
	}
	if len(products.([]models.Product)) == 0 {
		t.Error("expected seeded products")
	}
}

func TestLocalAdminPasswordFlow(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	ok, err := client.Invoke(ctx, OpCheckAdminPassword, PasswordPayload{Password: "0000"})
	if err != nil || ok != true {
		t.Fatalf("default password should be 0000, got ok=%v err=%v", ok, err)
	}

	changed, err := client.Invoke(ctx, OpChangeAdminPassword, ChangePasswordPayload{OldPassword: "0000", NewPassword: "1234"})
	if err != nil || changed != true {
		t.Fatalf("change with correct old password should succeed, got %v %v", changed, err)
	}

	ok, _ = client.Invoke(ctx, OpCheckAdminPassword, PasswordPayload{Password: "1234"})
	if ok != true {
		t.Error("new password should verify")
	}
	ok, _ = client.Invoke(ctx, OpCheckAdminPassword, PasswordPayload{Password: "0000"})
	if ok != false {
		t.Error("old password must no longer verify")
	}

	changed, err = client.Invoke(ctx, OpChangeAdminPassword, ChangePasswordPayload{OldPassword: "wrong", NewPassword: "x"})
	if err != nil || changed != false {
		t.Errorf("change with wrong old password should report false, got %v %v", changed, err)
	}
}

func TestLocalCreateOrderAssignsFieldsAndPrepends(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	before, _ := client.Invoke(ctx, OpGetOrders, nil)
	seeded := len(before.([]models.OrderLine))

	result, err := client.Invoke(ctx, OpCreateOrder, CreateOrderPayload{Lines: []models.NewOrderLine{
		{OrderNumber: "CAL-2024-099", CustomerName: "Acme", ProductName: "Gauge", Quantity: 2, UnitPrice: 1000, DiscountRate: 90},
	}})
	if err != nil {
		t.Fatalf("createOrder: %v", err)
	}
	created := result.([]models.OrderLine)
	if len(created) != 1 {
		t.Fatalf("expected 1 created line, got %d", len(created))
	}
	line := created[0]
	if line.ID == "" || line.Status != models.StatusPending || line.CreateDate.IsZero() {
		t.Errorf("created line missing assigned fields: %+v", line)
	}
	if line.TotalAmount != 1800 {
		t.Errorf("totalAmount = %v, want 1800", line.TotalAmount)
	}

	after, _ := client.Invoke(ctx, OpGetOrders, nil)
	lines := after.([]models.OrderLine)
	if len(lines) != seeded+1 {
		t.Fatalf("expected %d lines after create, got %d", seeded+1, len(lines))
	}
	if lines[0].OrderNumber != "CAL-2024-099" {
		t.Error("created lines should be prepended")
	}
}

func TestLocalStatusUpdateKeepsArchiveFlagInLockstep(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	touched, err := client.Invoke(ctx, OpUpdateOrderStatusByNo, StatusUpdatePayload{
		OrderNumber: "CAL-2024-001",
		Status:      models.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("updateOrderStatusByNo: %v", err)
	}
	if touched.(int) != 2 {
		t.Errorf("both lines of the order should be touched, got %v", touched)
	}

	result, _ := client.Invoke(ctx, OpGetOrders, nil)
	for _, line := range result.([]models.OrderLine) {
		if line.OrderNumber != "CAL-2024-001" {
			continue
		}
		if line.Status != models.StatusCompleted || !line.IsArchived {
			t.Errorf("line %s not completed+archived: %+v", line.ID, line)
		}
	}
}

func TestLocalRestoreResetsStatusAndReason(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	if _, err := client.Invoke(ctx, OpUpdateOrderStatusByNo, StatusUpdatePayload{OrderNumber: "CAL-2024-001", Status: models.StatusCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := client.Invoke(ctx, OpRestoreOrderByNo, RestorePayload{OrderNumber: "CAL-2024-001", Reason: "mistake"}); err != nil {
		t.Fatalf("restore: %v", err)
	}

	result, _ := client.Invoke(ctx, OpGetOrders, nil)
	for _, line := range result.([]models.OrderLine) {
		if line.OrderNumber != "CAL-2024-001" {
			continue
		}
		if line.Status != models.StatusPending || line.IsArchived || line.ResurrectReason != "mistake" {
			t.Errorf("restore not applied to line %s: %+v", line.ID, line)
		}
	}
}

func TestLocalAppendOrderNotesJoinsWithNewline(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	touched, err := client.Invoke(ctx, OpAppendOrderNotesByNo, NotesPayload{OrderNumber: "CAL-2024-001", Notes: "gauge drifting"})
	if err != nil {
		t.Fatalf("appendOrderNotesByNo: %v", err)
	}
	if touched.(int) != 2 {
		t.Errorf("both lines of the order should be touched, got %v", touched)
	}
	if _, err := client.Invoke(ctx, OpAppendOrderNotesByNo, NotesPayload{OrderNumber: "CAL-2024-001", Notes: "replacement sensor ordered"}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	result, _ := client.Invoke(ctx, OpGetOrders, nil)
	for _, line := range result.([]models.OrderLine) {
		if line.OrderNumber != "CAL-2024-001" {
			continue
		}
		want := "gauge drifting\nreplacement sensor ordered"
		if line.Notes != want {
			t.Errorf("line %s notes = %q, want %q", line.ID, line.Notes, want)
		}
	}

	if _, err := client.Invoke(ctx, OpAppendOrderNotesByNo, NotesPayload{OrderNumber: "CAL-9999-404", Notes: "x"}); err == nil {
		t.Error("appending to a missing order should fail")
	}
}

func TestLocalUpdateOrderTargetDateByNo(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	target := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	touched, err := client.Invoke(ctx, OpUpdateOrderTargetByNo, TargetDatePayload{OrderNumber: "CAL-2024-001", TargetDate: target})
	if err != nil {
		t.Fatalf("updateOrderTargetDateByNo: %v", err)
	}
	if touched.(int) != 2 {
		t.Errorf("both lines of the order should be touched, got %v", touched)
	}

	result, _ := client.Invoke(ctx, OpGetOrders, nil)
	for _, line := range result.([]models.OrderLine) {
		if line.OrderNumber != "CAL-2024-001" {
			continue
		}
		if !line.TargetDate.Equal(target) {
			t.Errorf("line %s targetDate = %v, want %v", line.ID, line.TargetDate, target)
		}
	}
}

func TestLocalDeleteOrderRemovesWholeOrder(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	removed, err := client.Invoke(ctx, OpDeleteOrderByNo, OrderNumberPayload{OrderNumber: "CAL-2024-001"})
	if err != nil {
		t.Fatalf("deleteOrderByNo: %v", err)
	}
	if removed.(int) != 2 {
		t.Errorf("expected 2 lines removed, got %v", removed)
	}

	result, _ := client.Invoke(ctx, OpGetOrders, nil)
	for _, line := range result.([]models.OrderLine) {
		if line.OrderNumber == "CAL-2024-001" {
			t.Error("deleted order lines still present")
		}
	}

	if _, err := client.Invoke(ctx, OpDeleteOrderByNo, OrderNumberPayload{OrderNumber: "CAL-2024-001"}); err == nil {
		t.Error("deleting a missing order should fail")
	}
}

func TestLocalTechnicianLifecycle(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	added, err := client.Invoke(ctx, OpAddTechnician, models.Technician{Name: "New Tech"})
	if err != nil {
		t.Fatalf("addTechnician: %v", err)
	}
	tech := added.(models.Technician)
	if tech.ID == "" {
		t.Fatal("technician id must be assigned by the backend")
	}

	if _, err := client.Invoke(ctx, OpDeleteTechnician, IDPayload{ID: tech.ID}); err != nil {
		t.Fatalf("deleteTechnician: %v", err)
	}

	result, _ := client.Invoke(ctx, OpGetTechnicians, nil)
	for _, got := range result.([]models.Technician) {
		if got.ID == tech.ID {
			t.Error("deleted technician still present")
		}
	}
}

func TestLocalUpdateProductStampsLastUpdated(t *testing.T) {
	client := newTestLocalClient(t)
	ctx := context.Background()

	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return base }

	result, _ := client.Invoke(ctx, OpGetProducts, nil)
	product := result.([]models.Product)[0]
	product.StandardPrice = 1500

	updated, err := client.Invoke(ctx, OpUpdateProduct, product)
	if err != nil {
		t.Fatalf("updateProduct: %v", err)
	}
	got := updated.(models.Product)
	if !got.LastUpdated.Equal(base) {
		t.Errorf("lastUpdated not stamped on write: %v", got.LastUpdated)
	}
	if got.StandardPrice != 1500 {
		t.Errorf("price not updated: %v", got.StandardPrice)
	}
}

func TestLocalRejectsUnknownOperation(t *testing.T) {
	client := newTestLocalClient(t)
	if _, err := client.Invoke(context.Background(), "fetchEverything", nil); err == nil {
		t.Error("unknown operations must be rejected")
	}
}
