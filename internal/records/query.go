package records

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opListLedgers       = "records.list_ledgers"
	opGetLedger         = "records.get_ledger"
	opListFirms         = "records.list_firms"
	opListInvoices      = "records.list_invoices"
	opGetInvoice        = "records.get_invoice"
	opSummarizeInvoices = "records.summarize_invoices"
	opTruncateLedgers   = "records.truncate_ledgers"
	opTruncateFirms     = "records.truncate_firms"
	opTruncateInvoices  = "records.truncate_invoices"

	reasonQueryFailed  = "query_failed"
	reasonRowNotFound  = "row_not_found"
	reasonDeleteFailed = "delete_failed"
)

// LedgerFilter narrows ledger listings; every populated field is a
// case-sensitive substring match.
type LedgerFilter struct {
	Code  string
	Name  string
	Place string
}

// InvoiceFilter narrows invoice listings by date range and customer.
type InvoiceFilter struct {
	From       *Date
	To         *Date
	CustomerID string
}

// InvoiceSummaryRow is one aggregate bucket of the invoice summary.
type InvoiceSummaryRow struct {
	ClientID     string          `gorm:"column:client_id" json:"client_id"`
	CustomerID   string          `gorm:"column:customerid" json:"customerid,omitempty"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount" json:"total_amount"`
	InvoiceCount int64           `gorm:"column:invoice_count" json:"invoice_count"`
}

// ListLedgers returns the tenant's ledger rows ordered by code.
func (service *Service) ListLedgers(ctx context.Context, tenantID TenantID, filter LedgerFilter) ([]LedgerMaster, error) {
	if err := service.readyForRead(opListLedgers, tenantID); err != nil {
		return nil, err
	}

	query := service.db.WithContext(ctx).
		Where("client_id = ?", tenantID.String()).
		Order("code ASC")
	if filter.Code != "" {
		query = query.Where("code LIKE ?", contains(filter.Code))
	}
	if filter.Name != "" {
		query = query.Where("name LIKE ?", contains(filter.Name))
	}
	if filter.Place != "" {
		query = query.Where("place LIKE ?", contains(filter.Place))
	}

	var rows []LedgerMaster
	if err := query.Find(&rows).Error; err != nil {
		service.logError(opListLedgers, reasonQueryFailed, err, zap.String(fieldTenantID, tenantID.String()))
		return nil, newStorageError(opListLedgers, reasonQueryFailed, err)
	}
	return rows, nil
}

// GetLedger returns one ledger row by code within the tenant's scope.
func (service *Service) GetLedger(ctx context.Context, tenantID TenantID, code string) (LedgerMaster, error) {
	if err := service.readyForRead(opGetLedger, tenantID); err != nil {
		return LedgerMaster{}, err
	}

	var row LedgerMaster
	err := service.db.WithContext(ctx).
		Where("client_id = ? AND code = ?", tenantID.String(), code).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LedgerMaster{}, newNotFoundError(opGetLedger, reasonRowNotFound, err)
	}
	if err != nil {
		service.logError(opGetLedger, reasonQueryFailed, err, zap.String(fieldTenantID, tenantID.String()))
		return LedgerMaster{}, newStorageError(opGetLedger, reasonQueryFailed, err)
	}
	return row, nil
}

// ListFirms returns the tenant's firm metadata rows.
func (service *Service) ListFirms(ctx context.Context, tenantID TenantID) ([]FirmInfo, error) {
	if err := service.readyForRead(opListFirms, tenantID); err != nil {
		return nil, err
	}

	var rows []FirmInfo
	if err := service.db.WithContext(ctx).
		Where("client_id = ?", tenantID.String()).
		Order("firm_name ASC").
		Find(&rows).Error; err != nil {
		service.logError(opListFirms, reasonQueryFailed, err, zap.String(fieldTenantID, tenantID.String()))
		return nil, newStorageError(opListFirms, reasonQueryFailed, err)
	}
	return rows, nil
}

// ListInvoices returns the tenant's invoices, newest first.
func (service *Service) ListInvoices(ctx context.Context, tenantID TenantID, filter InvoiceFilter) ([]Invoice, error) {
	if err := service.readyForRead(opListInvoices, tenantID); err != nil {
		return nil, err
	}

	query := service.db.WithContext(ctx).
		Where("client_id = ?", tenantID.String()).
		Order("invdate DESC").
		Order("slno DESC")
	if filter.From != nil {
		query = query.Where("invdate >= ?", filter.From.Time())
	}
	if filter.To != nil {
		query = query.Where("invdate <= ?", filter.To.Time())
	}
	if filter.CustomerID != "" {
		query = query.Where("customerid = ?", filter.CustomerID)
	}

	var rows []Invoice
	if err := query.Find(&rows).Error; err != nil {
		service.logError(opListInvoices, reasonQueryFailed, err, zap.String(fieldTenantID, tenantID.String()))
		return nil, newStorageError(opListInvoices, reasonQueryFailed, err)
	}
	return rows, nil
}

// GetInvoice returns one invoice by serial number within the tenant's scope.
func (service *Service) GetInvoice(ctx context.Context, tenantID TenantID, slno int64) (Invoice, error) {
	if err := service.readyForRead(opGetInvoice, tenantID); err != nil {
		return Invoice{}, err
	}

	var row Invoice
	err := service.db.WithContext(ctx).
		Where("client_id = ? AND slno = ?", tenantID.String(), slno).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Invoice{}, newNotFoundError(opGetInvoice, reasonRowNotFound, err)
	}
	if err != nil {
		service.logError(opGetInvoice, reasonQueryFailed, err, zap.String(fieldTenantID, tenantID.String()))
		return Invoice{}, newStorageError(opGetInvoice, reasonQueryFailed, err)
	}
	return row, nil
}

// SummarizeInvoices aggregates invoice amount and count for the tenant,
// optionally bucketed per customer. Sums run over the decimal column in SQL,
// never through floats.
func (service *Service) SummarizeInvoices(ctx context.Context, tenantID TenantID, groupByCustomer bool) ([]InvoiceSummaryRow, error) {
	if err := service.readyForRead(opSummarizeInvoices, tenantID); err != nil {
		return nil, err
	}

	query := service.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("client_id = ?", tenantID.String())
	if groupByCustomer {
		query = query.
			Select("client_id, customerid, COALESCE(SUM(nettotal), 0) AS total_amount, COUNT(*) AS invoice_count").
			Group("client_id").
			Group("customerid").
			Order("customerid ASC")
	} else {
		query = query.
			Select("client_id, COALESCE(SUM(nettotal), 0) AS total_amount, COUNT(*) AS invoice_count").
			Group("client_id")
	}

	var rows []InvoiceSummaryRow
	if err := query.Scan(&rows).Error; err != nil {
		service.logError(opSummarizeInvoices, reasonQueryFailed, err, zap.String(fieldTenantID, tenantID.String()))
		return nil, newStorageError(opSummarizeInvoices, reasonQueryFailed, err)
	}
	return rows, nil
}

// TruncateLedgers deletes every ledger row belonging to the tenant.
func (service *Service) TruncateLedgers(ctx context.Context, tenantID TenantID) (int64, error) {
	return service.truncate(ctx, opTruncateLedgers, tenantID, &LedgerMaster{})
}

// TruncateFirms deletes every firm metadata row belonging to the tenant.
func (service *Service) TruncateFirms(ctx context.Context, tenantID TenantID) (int64, error) {
	return service.truncate(ctx, opTruncateFirms, tenantID, &FirmInfo{})
}

// TruncateInvoices deletes every invoice row belonging to the tenant.
func (service *Service) TruncateInvoices(ctx context.Context, tenantID TenantID) (int64, error) {
	return service.truncate(ctx, opTruncateInvoices, tenantID, &Invoice{})
}

func (service *Service) truncate(ctx context.Context, operation string, tenantID TenantID, model any) (int64, error) {
	if err := service.readyForRead(operation, tenantID); err != nil {
		return 0, err
	}

	result := service.db.WithContext(ctx).
		Where("client_id = ?", tenantID.String()).
		Delete(model)
	if result.Error != nil {
		service.logError(operation, reasonDeleteFailed, result.Error, zap.String(fieldTenantID, tenantID.String()))
		return 0, newStorageError(operation, reasonDeleteFailed, result.Error)
	}
	return result.RowsAffected, nil
}

func (service *Service) readyForRead(operation string, tenantID TenantID) error {
	if service.db == nil {
		service.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return newStorageError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if strings.TrimSpace(tenantID.String()) == "" {
		service.logError(operation, reasonMissingTenant, errMissingTenantID)
		return newValidationError(operation, reasonMissingTenant, errMissingTenantID)
	}
	return nil
}

func contains(term string) string {
	return "%" + term + "%"
}
