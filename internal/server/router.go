package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imcbs/vsaver-backend/internal/records"
)

const (
	tenantIDContextKey = "vsaver_tenant_id"
	tenantQueryParam   = "client_id"
	tenantHeader       = "X-Client-ID"
)

var errMissingRecordsService = errors.New("records service dependency required")

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	RecordsService *records.Service
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router serving the sync API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.RecordsService == nil {
		return nil, errMissingRecordsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		recordsService: deps.RecordsService,
		logger:         logger,
	}

	router.GET("/vsaver/status", handler.handleStatus)

	// Bulk routes resolve the tenant from the request body first, so they
	// sit outside the tenant-guard group.
	router.POST("/debtors/bulk", handler.handleLedgerBulk)
	router.POST("/misel/bulk", handler.handleFirmBulk)
	router.POST("/invoices/bulk", handler.handleInvoiceBulk)

	guarded := router.Group("/")
	guarded.Use(handler.requireTenant)
	guarded.GET("/debtors", handler.handleLedgerList)
	guarded.GET("/debtors/:code", handler.handleLedgerDetail)
	guarded.DELETE("/debtors", handler.handleLedgerTruncate)
	guarded.GET("/misel", handler.handleFirmList)
	guarded.DELETE("/misel", handler.handleFirmTruncate)
	guarded.GET("/invoices", handler.handleInvoiceList)
	guarded.GET("/invoices/summary", handler.handleInvoiceSummary)
	guarded.GET("/invoices/:slno", handler.handleInvoiceDetail)
	guarded.DELETE("/invoices", handler.handleInvoiceTruncate)

	return router, nil
}

type httpHandler struct {
	recordsService *records.Service
	logger         *zap.Logger
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", tenantHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// requireTenant is the single precondition check for tenant-scoped reads:
// the client installation id arrives as a query parameter or header and is
// validated once, here, before any handler runs.
func (h *httpHandler) requireTenant(c *gin.Context) {
	tenantID, err := records.NewTenantID(tenantFromRequest(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_client_id"})
		return
	}
	c.Set(tenantIDContextKey, tenantID)
	c.Next()
}

func tenantFromRequest(c *gin.Context) string {
	if value := c.Query(tenantQueryParam); value != "" {
		return value
	}
	return c.GetHeader(tenantHeader)
}

func (h *httpHandler) tenantID(c *gin.Context) records.TenantID {
	value, exists := c.Get(tenantIDContextKey)
	if !exists {
		return ""
	}
	tenantID, ok := value.(records.TenantID)
	if !ok {
		return ""
	}
	return tenantID
}

// respondServiceError maps the service error taxonomy onto HTTP statuses:
// validation to 400, not-found to 404, storage to 500. The stable error code
// rides along so clients can branch without parsing messages.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	var serviceErr *records.ServiceError
	if !errors.As(err, &serviceErr) {
		h.logger.Error("unclassified service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	switch serviceErr.Kind() {
	case records.ErrorKindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "code": serviceErr.Code()})
	case records.ErrorKindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "code": serviceErr.Code()})
	default:
		h.logger.Error("records service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_error", "code": serviceErr.Code()})
	}
}
