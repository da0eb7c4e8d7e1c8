package records

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind identifies which synced table a batch targets.
type RecordKind string

const (
	// RecordKindLedger addresses ledger master rows.
	RecordKindLedger RecordKind = "ledger_master"
	// RecordKindFirm addresses firm metadata rows.
	RecordKindFirm RecordKind = "firm_info"
	// RecordKindInvoice addresses invoice rows.
	RecordKindInvoice RecordKind = "invoice"
)

const maxTenantIDLength = 50

// ErrInvalidTenantID indicates that a tenant identifier is empty or exceeds storage bounds.
var ErrInvalidTenantID = errors.New("records: invalid tenant id")

// TenantID represents a validated client installation identifier.
type TenantID string

// NewTenantID validates raw input and returns a TenantID.
func NewTenantID(rawInput string) (TenantID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTenantID)
	}
	if len(trimmed) > maxTenantIDLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidTenantID, maxTenantIDLength)
	}
	return TenantID(trimmed), nil
}

// String returns the underlying string identifier.
func (id TenantID) String() string {
	return string(id)
}

// LedgerMaster is a synced ledger account row. Identity is the pair
// (code, client_id); the auto-increment id exists only to satisfy the
// storage layer and never participates in reconciliation.
type LedgerMaster struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Code        string    `gorm:"column:code;size:30;not null;uniqueIndex:idx_acc_master_code_client,priority:1" json:"code"`
	Name        string    `gorm:"column:name;size:250" json:"name"`
	Place       string    `gorm:"column:place;size:60" json:"place"`
	ExRegNoDate string    `gorm:"column:exregnodate;size:30" json:"exregnodate"`
	SuperCode   string    `gorm:"column:super_code;size:5" json:"super_code"`
	Phone2      string    `gorm:"column:phone2;size:60" json:"phone2"`
	ClientID    string    `gorm:"column:client_id;size:50;not null;index;uniqueIndex:idx_acc_master_code_client,priority:2" json:"client_id"`
	SyncedAt    time.Time `gorm:"column:synced_at;not null" json:"synced_at"`
}

// TableName provides the explicit table binding for GORM.
func (LedgerMaster) TableName() string {
	return "acc_master_sync"
}

// FirmInfo is a synced firm metadata row keyed by (firm_name, client_id).
type FirmInfo struct {
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirmName string    `gorm:"column:firm_name;size:150;not null;uniqueIndex:idx_misel_firm_client,priority:1" json:"firm_name"`
	Address1 string    `gorm:"column:address1;size:50" json:"address1"`
	ClientID string    `gorm:"column:client_id;size:50;not null;index;uniqueIndex:idx_misel_firm_client,priority:2" json:"client_id"`
	SyncedAt time.Time `gorm:"column:synced_at;not null" json:"synced_at"`
}

// TableName provides the explicit table binding for GORM.
func (FirmInfo) TableName() string {
	return "misel_sync"
}

// Invoice is a synced invoice header row keyed by (slno, client_id).
// NetTotal stays a fixed-precision decimal end to end so aggregates do not
// pick up floating-point drift.
type Invoice struct {
	ID         int64               `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Slno       int64               `gorm:"column:slno;not null;uniqueIndex:idx_acc_invmast_slno_client,priority:1" json:"slno"`
	InvDate    *Date               `gorm:"column:invdate;type:date" json:"invdate"`
	CustomerID string              `gorm:"column:customerid;size:30" json:"customerid"`
	NetTotal   decimal.NullDecimal `gorm:"column:nettotal;type:decimal(16,3)" json:"nettotal"`
	ClientID   string              `gorm:"column:client_id;size:50;not null;index;uniqueIndex:idx_acc_invmast_slno_client,priority:2" json:"client_id"`
	SyncedAt   time.Time           `gorm:"column:synced_at;not null" json:"synced_at"`
}

// TableName provides the explicit table binding for GORM.
func (Invoice) TableName() string {
	return "acc_invmast_sync"
}

// SyncRun captures an append-only audit trail of reconciliation calls.
type SyncRun struct {
	RunID    string     `gorm:"column:run_id;primaryKey;size:190;not null" json:"run_id"`
	ClientID string     `gorm:"column:client_id;size:50;not null;index:idx_sync_runs_client_time,priority:1" json:"client_id"`
	Kind     RecordKind `gorm:"column:kind;size:30;not null" json:"kind"`
	Created  int64      `gorm:"column:created_count;not null" json:"created"`
	Updated  int64      `gorm:"column:updated_count;not null" json:"updated"`
	Total    int64      `gorm:"column:total_count;not null" json:"total"`
	SyncedAt time.Time  `gorm:"column:synced_at;not null;index:idx_sync_runs_client_time,priority:2" json:"synced_at"`
}

// TableName provides the explicit table binding for GORM.
func (SyncRun) TableName() string {
	return "sync_runs"
}
