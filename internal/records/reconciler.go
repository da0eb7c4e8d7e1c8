package records

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opReconcileLedgers  = "records.reconcile_ledgers"
	opReconcileFirms    = "records.reconcile_firms"
	opReconcileInvoices = "records.reconcile_invoices"

	reasonMissingNaturalKey   = "missing_natural_key"
	reasonExistingLookupError = "existing_lookup_failed"
	reasonBatchWriteError     = "batch_write_failed"
	reasonRunIDError          = "run_id_generation_failed"
	reasonRunInsertError      = "run_insert_failed"
)

// keyedRow pairs a normalized natural key with the row it addresses.
type keyedRow[M any] struct {
	key string
	row M
}

// batchPlan carries the kind-specific pieces of a reconciliation: the
// conflict target for the atomic upsert and the existence probe used to
// classify keys as created or updated.
type batchPlan[M any] struct {
	operation string
	kind      RecordKind
	conflict  clause.OnConflict
	existing  func(tx *gorm.DB, tenantID string, keys []string) (map[string]struct{}, error)
}

// ReconcileLedgers merges a batch of ledger master records for one tenant.
func (service *Service) ReconcileLedgers(ctx context.Context, tenantID TenantID, submitted []LedgerRecord) (ReconcileResult, error) {
	syncedAt, err := service.beginBatch(opReconcileLedgers, tenantID)
	if err != nil {
		return ReconcileResult{}, err
	}

	rows := make([]keyedRow[LedgerMaster], 0, len(submitted))
	for position, record := range submitted {
		code := strings.TrimSpace(record.Code)
		if code == "" {
			service.logError(opReconcileLedgers, reasonMissingNaturalKey, nil,
				zap.String(fieldTenantID, tenantID.String()),
				zap.Int("position", position))
			return ReconcileResult{}, newValidationError(opReconcileLedgers, reasonMissingNaturalKey,
				fmt.Errorf("record %d: code is required", position))
		}
		rows = append(rows, keyedRow[LedgerMaster]{key: code, row: LedgerMaster{
			Code:        code,
			Name:        record.Name,
			Place:       record.Place,
			ExRegNoDate: record.ExRegNoDate,
			SuperCode:   record.SuperCode,
			Phone2:      record.Phone2,
			ClientID:    tenantID.String(),
			SyncedAt:    syncedAt,
		}})
	}

	plan := batchPlan[LedgerMaster]{
		operation: opReconcileLedgers,
		kind:      RecordKindLedger,
		conflict: clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "place", "exregnodate", "super_code", "phone2", "synced_at"}),
		},
		existing: func(tx *gorm.DB, tenant string, keys []string) (map[string]struct{}, error) {
			var found []string
			err := tx.Model(&LedgerMaster{}).
				Where("client_id = ? AND code IN ?", tenant, keys).
				Pluck("code", &found).Error
			return keySet(found), err
		},
	}
	return reconcileBatch(service, ctx, plan, tenantID, syncedAt, int64(len(submitted)), rows)
}

// ReconcileFirms merges a batch of firm metadata records for one tenant.
func (service *Service) ReconcileFirms(ctx context.Context, tenantID TenantID, submitted []FirmRecord) (ReconcileResult, error) {
	syncedAt, err := service.beginBatch(opReconcileFirms, tenantID)
	if err != nil {
		return ReconcileResult{}, err
	}

	rows := make([]keyedRow[FirmInfo], 0, len(submitted))
	for position, record := range submitted {
		firmName := strings.TrimSpace(record.FirmName)
		if firmName == "" {
			service.logError(opReconcileFirms, reasonMissingNaturalKey, nil,
				zap.String(fieldTenantID, tenantID.String()),
				zap.Int("position", position))
			return ReconcileResult{}, newValidationError(opReconcileFirms, reasonMissingNaturalKey,
				fmt.Errorf("record %d: firm_name is required", position))
		}
		rows = append(rows, keyedRow[FirmInfo]{key: firmName, row: FirmInfo{
			FirmName: firmName,
			Address1: record.Address1,
			ClientID: tenantID.String(),
			SyncedAt: syncedAt,
		}})
	}

	plan := batchPlan[FirmInfo]{
		operation: opReconcileFirms,
		kind:      RecordKindFirm,
		conflict: clause.OnConflict{
			Columns:   []clause.Column{{Name: "firm_name"}, {Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"address1", "synced_at"}),
		},
		existing: func(tx *gorm.DB, tenant string, keys []string) (map[string]struct{}, error) {
			var found []string
			err := tx.Model(&FirmInfo{}).
				Where("client_id = ? AND firm_name IN ?", tenant, keys).
				Pluck("firm_name", &found).Error
			return keySet(found), err
		},
	}
	return reconcileBatch(service, ctx, plan, tenantID, syncedAt, int64(len(submitted)), rows)
}

// ReconcileInvoices merges a batch of invoice records for one tenant.
func (service *Service) ReconcileInvoices(ctx context.Context, tenantID TenantID, submitted []InvoiceRecord) (ReconcileResult, error) {
	syncedAt, err := service.beginBatch(opReconcileInvoices, tenantID)
	if err != nil {
		return ReconcileResult{}, err
	}

	rows := make([]keyedRow[Invoice], 0, len(submitted))
	for position, record := range submitted {
		if record.Slno == nil {
			service.logError(opReconcileInvoices, reasonMissingNaturalKey, nil,
				zap.String(fieldTenantID, tenantID.String()),
				zap.Int("position", position))
			return ReconcileResult{}, newValidationError(opReconcileInvoices, reasonMissingNaturalKey,
				fmt.Errorf("record %d: slno is required", position))
		}
		rows = append(rows, keyedRow[Invoice]{key: strconv.FormatInt(*record.Slno, 10), row: Invoice{
			Slno:       *record.Slno,
			InvDate:    record.InvDate,
			CustomerID: record.CustomerID,
			NetTotal:   record.NetTotal,
			ClientID:   tenantID.String(),
			SyncedAt:   syncedAt,
		}})
	}

	plan := batchPlan[Invoice]{
		operation: opReconcileInvoices,
		kind:      RecordKindInvoice,
		conflict: clause.OnConflict{
			Columns:   []clause.Column{{Name: "slno"}, {Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"invdate", "customerid", "nettotal", "synced_at"}),
		},
		existing: func(tx *gorm.DB, tenant string, keys []string) (map[string]struct{}, error) {
			serials := make([]int64, 0, len(keys))
			for _, key := range keys {
				serial, parseErr := strconv.ParseInt(key, 10, 64)
				if parseErr != nil {
					return nil, parseErr
				}
				serials = append(serials, serial)
			}
			var found []int64
			err := tx.Model(&Invoice{}).
				Where("client_id = ? AND slno IN ?", tenant, serials).
				Pluck("slno", &found).Error
			set := make(map[string]struct{}, len(found))
			for _, serial := range found {
				set[strconv.FormatInt(serial, 10)] = struct{}{}
			}
			return set, err
		},
	}
	return reconcileBatch(service, ctx, plan, tenantID, syncedAt, int64(len(submitted)), rows)
}

// beginBatch runs the shared batch preconditions and samples the clock once,
// so every row written by the batch carries the same synced_at.
func (service *Service) beginBatch(operation string, tenantID TenantID) (time.Time, error) {
	if service.db == nil {
		service.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return time.Time{}, newStorageError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if service.idProvider == nil {
		service.logError(operation, reasonMissingIDProvider, errMissingIDProvider)
		return time.Time{}, newStorageError(operation, reasonMissingIDProvider, errMissingIDProvider)
	}
	if strings.TrimSpace(tenantID.String()) == "" {
		service.logError(operation, reasonMissingTenant, errMissingTenantID)
		return time.Time{}, newValidationError(operation, reasonMissingTenant, errMissingTenantID)
	}
	return service.clock().UTC(), nil
}

// reconcileBatch collapses in-batch duplicates (last occurrence wins),
// classifies distinct keys against the store, and applies the whole batch as
// one transaction. Classification runs inside the same transaction as the
// write, so the reported counts match what this batch actually did under the
// engine's isolation level; concurrent batches for the same tenant settle by
// commit order.
func reconcileBatch[M any](service *Service, ctx context.Context, plan batchPlan[M], tenantID TenantID, syncedAt time.Time, total int64, rows []keyedRow[M]) (ReconcileResult, error) {
	if len(rows) == 0 {
		return ReconcileResult{}, nil
	}

	deduped := make([]keyedRow[M], 0, len(rows))
	position := make(map[string]int, len(rows))
	for _, candidate := range rows {
		if at, seen := position[candidate.key]; seen {
			deduped[at].row = candidate.row
			continue
		}
		position[candidate.key] = len(deduped)
		deduped = append(deduped, candidate)
	}

	keys := make([]string, len(deduped))
	models := make([]M, len(deduped))
	for index, candidate := range deduped {
		keys[index] = candidate.key
		models[index] = candidate.row
	}

	var created int64
	txErr := service.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := plan.existing(tx, tenantID.String(), keys)
		if err != nil {
			service.logError(plan.operation, reasonExistingLookupError, err,
				zap.String(fieldTenantID, tenantID.String()))
			return newStorageError(plan.operation, reasonExistingLookupError, err)
		}

		for _, key := range keys {
			if _, exists := stored[key]; !exists {
				created++
			}
		}

		if err := tx.Clauses(plan.conflict).Create(&models).Error; err != nil {
			service.logError(plan.operation, reasonBatchWriteError, err,
				zap.String(fieldTenantID, tenantID.String()),
				zap.String(fieldKind, string(plan.kind)),
				zap.Int("batch_size", len(models)))
			return newStorageError(plan.operation, reasonBatchWriteError, err)
		}

		runID, err := service.idProvider.NewID()
		if err != nil {
			service.logError(plan.operation, reasonRunIDError, err,
				zap.String(fieldTenantID, tenantID.String()))
			return newStorageError(plan.operation, reasonRunIDError, err)
		}
		run := SyncRun{
			RunID:    runID,
			ClientID: tenantID.String(),
			Kind:     plan.kind,
			Created:  created,
			Updated:  int64(len(deduped)) - created,
			Total:    total,
			SyncedAt: syncedAt,
		}
		if err := tx.Create(&run).Error; err != nil {
			service.logError(plan.operation, reasonRunInsertError, err,
				zap.String(fieldTenantID, tenantID.String()))
			return newStorageError(plan.operation, reasonRunInsertError, err)
		}
		return nil
	})
	if txErr != nil {
		return ReconcileResult{}, txErr
	}

	return ReconcileResult{
		Created: created,
		Updated: int64(len(deduped)) - created,
		Total:   total,
	}, nil
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}
