package records

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestReconcileLedgersCreatesThenUpdates(t *testing.T) {
	service, db := newTestService(t, []string{"run-1", "run-2"})
	tenantID := mustTenantID(t, "T1")

	batch := []LedgerRecord{
		{Code: "C1", Name: "Alpha", Place: "Kochi"},
		{Code: "C2", Name: "Beta"},
	}

	first, err := service.ReconcileLedgers(context.Background(), tenantID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Created != 2 || first.Updated != 0 || first.Total != 2 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := service.ReconcileLedgers(context.Background(), tenantID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created != 0 || second.Updated != 2 || second.Total != 2 {
		t.Fatalf("unexpected second result: %+v", second)
	}

	var count int64
	if err := db.Model(&LedgerMaster{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored rows, got %d", count)
	}
}

func TestReconcileLedgersLastOccurrenceWinsInBatch(t *testing.T) {
	service, db := newTestService(t, []string{"run-1", "run-2"})
	tenantID := mustTenantID(t, "T1")

	batch := []LedgerRecord{
		{Code: "C1", Name: "Alpha"},
		{Code: "C2", Name: "Beta"},
		{Code: "C1", Name: "Alpha-Updated"},
	}

	result, err := service.ReconcileLedgers(context.Background(), tenantID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 2 || result.Updated != 0 || result.Total != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var stored LedgerMaster
	if err := db.Where("client_id = ? AND code = ?", "T1", "C1").Take(&stored).Error; err != nil {
		t.Fatalf("failed to load row: %v", err)
	}
	if stored.Name != "Alpha-Updated" {
		t.Fatalf("expected last occurrence to win, got name %q", stored.Name)
	}

	resubmitted, err := service.ReconcileLedgers(context.Background(), tenantID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resubmitted.Created != 0 || resubmitted.Updated != 2 || resubmitted.Total != 3 {
		t.Fatalf("unexpected resubmission result: %+v", resubmitted)
	}
}

func TestReconcileLedgersDuplicateOnlyBatchAccounting(t *testing.T) {
	service, _ := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	result, err := service.ReconcileLedgers(context.Background(), tenantID, []LedgerRecord{
		{Code: "C1", Name: "First"},
		{Code: "C1", Name: "Second"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 || result.Updated != 0 || result.Total != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestReconcileLedgersTenantIsolation(t *testing.T) {
	service, db := newTestService(t, []string{"run-1", "run-2"})
	tenantA := mustTenantID(t, "T1")
	tenantB := mustTenantID(t, "T2")

	if _, err := service.ReconcileLedgers(context.Background(), tenantA, []LedgerRecord{{Code: "C1", Name: "A-name"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := service.ReconcileLedgers(context.Background(), tenantB, []LedgerRecord{{Code: "C1", Name: "B-name"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 || result.Updated != 0 {
		t.Fatalf("expected tenant B row to be a fresh create, got %+v", result)
	}

	var count int64
	if err := db.Model(&LedgerMaster{}).Where("code = ?", "C1").Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected independent rows per tenant, got %d", count)
	}

	var storedA LedgerMaster
	if err := db.Where("client_id = ? AND code = ?", "T1", "C1").Take(&storedA).Error; err != nil {
		t.Fatalf("failed to load tenant A row: %v", err)
	}
	if storedA.Name != "A-name" {
		t.Fatalf("tenant A row must not be touched by tenant B batch, got %q", storedA.Name)
	}
}

func TestReconcileLedgersRejectsMissingNaturalKey(t *testing.T) {
	service, db := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	batch := []LedgerRecord{
		{Code: "C1", Name: "Valid"},
		{Code: "   ", Name: "Broken"},
	}

	_, err := service.ReconcileLedgers(context.Background(), tenantID, batch)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if KindOf(err) != ErrorKindValidation {
		t.Fatalf("expected validation kind, got %v", KindOf(err))
	}

	var rowCount int64
	if err := db.Model(&LedgerMaster{}).Count(&rowCount).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if rowCount != 0 {
		t.Fatalf("malformed batch must not persist any row, found %d", rowCount)
	}
	var runCount int64
	if err := db.Model(&SyncRun{}).Count(&runCount).Error; err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if runCount != 0 {
		t.Fatalf("rejected batch must not record a sync run, found %d", runCount)
	}
}

func TestReconcileLedgersRequiresTenant(t *testing.T) {
	service, db := newTestService(t, []string{"run-1"})

	_, err := service.ReconcileLedgers(context.Background(), TenantID(""), []LedgerRecord{{Code: "C1"}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if KindOf(err) != ErrorKindValidation {
		t.Fatalf("expected validation kind, got %v", KindOf(err))
	}

	var rowCount int64
	if err := db.Model(&LedgerMaster{}).Count(&rowCount).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if rowCount != 0 {
		t.Fatalf("missing tenant must reject the batch before any write, found %d rows", rowCount)
	}
}

func TestReconcileFirmsRejectsEmptyFirmName(t *testing.T) {
	service, _ := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	_, err := service.ReconcileFirms(context.Background(), tenantID, []FirmRecord{{Address1: "No name"}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if KindOf(err) != ErrorKindValidation {
		t.Fatalf("expected validation kind, got %v", KindOf(err))
	}
}

func TestReconcileFirmsIdempotent(t *testing.T) {
	service, db := newTestService(t, []string{"run-1", "run-2"})
	tenantID := mustTenantID(t, "T1")

	batch := []FirmRecord{{FirmName: "IMC Traders", Address1: "MG Road"}}

	first, err := service.ReconcileFirms(context.Background(), tenantID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Created != 1 || first.Updated != 0 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	batch[0].Address1 = "MG Road, 2nd Floor"
	second, err := service.ReconcileFirms(context.Background(), tenantID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created != 0 || second.Updated != 1 {
		t.Fatalf("unexpected second result: %+v", second)
	}

	var stored FirmInfo
	if err := db.Where("client_id = ? AND firm_name = ?", "T1", "IMC Traders").Take(&stored).Error; err != nil {
		t.Fatalf("failed to load firm row: %v", err)
	}
	if stored.Address1 != "MG Road, 2nd Floor" {
		t.Fatalf("expected payload overwrite, got %q", stored.Address1)
	}
}

func TestReconcileInvoicesRejectsMissingSerial(t *testing.T) {
	service, _ := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	_, err := service.ReconcileInvoices(context.Background(), tenantID, []InvoiceRecord{{CustomerID: "CUST-1"}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if KindOf(err) != ErrorKindValidation {
		t.Fatalf("expected validation kind, got %v", KindOf(err))
	}
}

func TestReconcileInvoicesDecimalFidelity(t *testing.T) {
	service, _ := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	invDate := mustDate(t, "2026-01-15")
	net := decimal.NullDecimal{Decimal: decimal.RequireFromString("12345.678"), Valid: true}
	_, err := service.ReconcileInvoices(context.Background(), tenantID, []InvoiceRecord{{
		Slno:       int64Ref(1001),
		InvDate:    &invDate,
		CustomerID: "CUST-1",
		NetTotal:   net,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := service.GetInvoice(context.Background(), tenantID, 1001)
	if err != nil {
		t.Fatalf("failed to load invoice: %v", err)
	}
	if !stored.NetTotal.Valid || !stored.NetTotal.Decimal.Equal(decimal.RequireFromString("12345.678")) {
		t.Fatalf("expected nettotal to round-trip exactly, got %v", stored.NetTotal)
	}
	if stored.InvDate == nil || stored.InvDate.String() != "2026-01-15" {
		t.Fatalf("expected invoice date to round-trip, got %v", stored.InvDate)
	}
}

func TestReconcileBatchSharesSyncedAt(t *testing.T) {
	service, db := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	_, err := service.ReconcileLedgers(context.Background(), tenantID, []LedgerRecord{
		{Code: "C1"}, {Code: "C2"}, {Code: "C3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []LedgerMaster
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("failed to load rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := time.Unix(batchClockSeconds, 0).UTC()
	for _, row := range rows {
		if !row.SyncedAt.Equal(want) {
			t.Fatalf("expected shared synced_at %v, got %v for code %s", want, row.SyncedAt, row.Code)
		}
	}
}

func TestReconcileRecordsSyncRun(t *testing.T) {
	service, db := newTestService(t, []string{"run-1"})
	tenantID := mustTenantID(t, "T1")

	_, err := service.ReconcileLedgers(context.Background(), tenantID, []LedgerRecord{
		{Code: "C1"}, {Code: "C2"}, {Code: "C1", Name: "Again"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var run SyncRun
	if err := db.Take(&run).Error; err != nil {
		t.Fatalf("failed to load sync run: %v", err)
	}
	if run.RunID != "run-1" {
		t.Fatalf("unexpected run id %q", run.RunID)
	}
	if run.ClientID != "T1" || run.Kind != RecordKindLedger {
		t.Fatalf("unexpected run scope: %+v", run)
	}
	if run.Created != 2 || run.Updated != 0 || run.Total != 3 {
		t.Fatalf("unexpected run counts: %+v", run)
	}
}

func TestReconcileEmptyBatchIsNoop(t *testing.T) {
	service, db := newTestService(t, nil)
	tenantID := mustTenantID(t, "T1")

	result, err := service.ReconcileLedgers(context.Background(), tenantID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 0 || result.Updated != 0 || result.Total != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var runCount int64
	if err := db.Model(&SyncRun{}).Count(&runCount).Error; err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if runCount != 0 {
		t.Fatalf("empty batch must not record a sync run, found %d", runCount)
	}
}
