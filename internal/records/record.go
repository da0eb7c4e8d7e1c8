package records

import (
	"github.com/shopspring/decimal"
)

// LedgerRecord is one candidate ledger row inside a bulk submission. Unknown
// wire fields are dropped during decoding; only the natural key (code) is
// mandatory, every payload field defaults to its zero value when omitted.
type LedgerRecord struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Place       string `json:"place"`
	ExRegNoDate string `json:"exregnodate"`
	SuperCode   string `json:"super_code"`
	Phone2      string `json:"phone2"`
}

// FirmRecord is one candidate firm metadata row inside a bulk submission.
type FirmRecord struct {
	FirmName string `json:"firm_name"`
	Address1 string `json:"address1"`
}

// InvoiceRecord is one candidate invoice row inside a bulk submission. Slno
// is a pointer so a missing serial number is distinguishable from zero.
type InvoiceRecord struct {
	Slno       *int64              `json:"slno"`
	InvDate    *Date               `json:"invdate"`
	CustomerID string              `json:"customerid"`
	NetTotal   decimal.NullDecimal `json:"nettotal"`
}

// ReconcileResult summarizes one bulk reconciliation call. Created and
// Updated count distinct natural keys; Total counts the raw submitted
// records, so in-batch duplicates keep Total above Created+Updated.
type ReconcileResult struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	Total   int64 `json:"total"`
}
