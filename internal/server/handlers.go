package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imcbs/vsaver-backend/internal/records"
)

func (h *httpHandler) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "v-saver-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

type bulkLedgerPayload struct {
	ClientID string                 `json:"client_id"`
	Records  []records.LedgerRecord `json:"records"`
}

type bulkFirmPayload struct {
	ClientID string               `json:"client_id"`
	Records  []records.FirmRecord `json:"records"`
}

type bulkInvoicePayload struct {
	ClientID string                  `json:"client_id"`
	Records  []records.InvoiceRecord `json:"records"`
}

// bulkTenant resolves the tenant for a bulk call: the body's client_id wins,
// the ambient query/header value is the fallback.
func (h *httpHandler) bulkTenant(c *gin.Context, bodyClientID string) (records.TenantID, bool) {
	raw := bodyClientID
	if raw == "" {
		raw = tenantFromRequest(c)
	}
	tenantID, err := records.NewTenantID(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_client_id"})
		return "", false
	}
	return tenantID, true
}

func (h *httpHandler) handleLedgerBulk(c *gin.Context) {
	var payload bulkLedgerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	tenantID, ok := h.bulkTenant(c, payload.ClientID)
	if !ok {
		return
	}

	result, err := h.recordsService.ReconcileLedgers(c.Request.Context(), tenantID, payload.Records)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.logger.Info("ledger batch reconciled",
		zap.String("client_id", tenantID.String()),
		zap.Int64("created", result.Created),
		zap.Int64("updated", result.Updated),
		zap.Int64("total", result.Total))
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleFirmBulk(c *gin.Context) {
	var payload bulkFirmPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	tenantID, ok := h.bulkTenant(c, payload.ClientID)
	if !ok {
		return
	}

	result, err := h.recordsService.ReconcileFirms(c.Request.Context(), tenantID, payload.Records)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.logger.Info("firm batch reconciled",
		zap.String("client_id", tenantID.String()),
		zap.Int64("created", result.Created),
		zap.Int64("updated", result.Updated),
		zap.Int64("total", result.Total))
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleInvoiceBulk(c *gin.Context) {
	var payload bulkInvoicePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	tenantID, ok := h.bulkTenant(c, payload.ClientID)
	if !ok {
		return
	}

	result, err := h.recordsService.ReconcileInvoices(c.Request.Context(), tenantID, payload.Records)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.logger.Info("invoice batch reconciled",
		zap.String("client_id", tenantID.String()),
		zap.Int64("created", result.Created),
		zap.Int64("updated", result.Updated),
		zap.Int64("total", result.Total))
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleLedgerList(c *gin.Context) {
	filter := records.LedgerFilter{
		Code:  c.Query("code"),
		Name:  c.Query("name"),
		Place: c.Query("place"),
	}
	rows, err := h.recordsService.ListLedgers(c.Request.Context(), h.tenantID(c), filter)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleLedgerDetail(c *gin.Context) {
	row, err := h.recordsService.GetLedger(c.Request.Context(), h.tenantID(c), c.Param("code"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *httpHandler) handleLedgerTruncate(c *gin.Context) {
	deleted, err := h.recordsService.TruncateLedgers(c.Request.Context(), h.tenantID(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *httpHandler) handleFirmList(c *gin.Context) {
	rows, err := h.recordsService.ListFirms(c.Request.Context(), h.tenantID(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleFirmTruncate(c *gin.Context) {
	deleted, err := h.recordsService.TruncateFirms(c.Request.Context(), h.tenantID(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *httpHandler) handleInvoiceList(c *gin.Context) {
	filter := records.InvoiceFilter{CustomerID: c.Query("customerid")}
	if raw := c.Query("from"); raw != "" {
		parsed, err := records.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := records.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return
		}
		filter.To = &parsed
	}

	rows, err := h.recordsService.ListInvoices(c.Request.Context(), h.tenantID(c), filter)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleInvoiceDetail(c *gin.Context) {
	slno, err := strconv.ParseInt(c.Param("slno"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_slno"})
		return
	}
	row, err := h.recordsService.GetInvoice(c.Request.Context(), h.tenantID(c), slno)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *httpHandler) handleInvoiceSummary(c *gin.Context) {
	groupByCustomer := c.Query("group_by") == "customer"
	rows, err := h.recordsService.SummarizeInvoices(c.Request.Context(), h.tenantID(c), groupByCustomer)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleInvoiceTruncate(c *gin.Context) {
	deleted, err := h.recordsService.TruncateInvoices(c.Request.Context(), h.tenantID(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
