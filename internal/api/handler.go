package api

import (
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders *service.OrderService
	ledger *service.StockLedger
	units  *service.UnitService
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, ledger *service.StockLedger, units *service.UnitService) *Handler {
	return &Handler{
		orders: orders,
		ledger: ledger,
		units:  units,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PUT("/orders/:id", h.updateOrder)
		v1.DELETE("/orders/:id", h.deleteOrder)
		v1.POST("/orders/:id/receive", h.receiveItems)
		v1.PUT("/orders/:id/status", h.updateOrderStatus)
		v1.GET("/orders/:id/history", h.getOrderHistory)

		v1.GET("/stock", h.getStock)
		v1.POST("/stock/reserve", h.reserveStock)
		v1.POST("/stock/unreserve", h.unreserveStock)
		v1.POST("/stock/transfer", h.transferStock)

		v1.GET("/units", h.listUnits)
		v1.GET("/units/:id", h.getUnit)
		v1.DELETE("/units/:id", h.deleteUnit)
		v1.PUT("/units/:id/status", h.updateUnitStatus)
		v1.POST("/units/:id/override-status", h.overrideUnitStatus)

		v1.GET("/transactions", h.listTransactions)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// actorID resolves the acting user from the X-Actor-ID header. Every mutating
// core call takes it as an explicit parameter; there is no ambient user.
func actorID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing or invalid X-Actor-ID header",
		})
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// statusForError maps the core error taxonomy to HTTP statuses.
func statusForError(err error) int {
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsQuantityViolation(err):
		return http.StatusUnprocessableEntity
	case apperr.IsStateConflict(err), apperr.IsUniqueness(err), apperr.IsRetryable(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	body := gin.H{"error": err.Error()}
	if apperr.IsRetryable(err) {
		body["retryable"] = true
	}
	c.JSON(status, body)
}

// createOrder handles purchase order creation
func (h *Handler) createOrder(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	snap, err := h.orders.CreateOrder(c.Request.Context(), &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	snap, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// updateOrder handles header/line edits of a PENDING order
func (h *Handler) updateOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	snap, err := h.orders.UpdateOrder(c.Request.Context(), id, &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// deleteOrder handles deletion of a PENDING or CANCELLED order
func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// receiveItems handles receiving against an order
func (h *Handler) receiveItems(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req service.ReceiveItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	snap, err := h.orders.ReceiveItems(c.Request.Context(), id, &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// updateOrderStatus handles explicit order status transitions
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	snap, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getOrderHistory handles the order audit trail, newest first
func (h *Handler) getOrderHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	history, err := h.orders.GetHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "history": history})
}

// getStock handles paged stock listing
func (h *Handler) getStock(c *gin.Context) {
	warehouseID, _ := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	productID, _ := strconv.ParseInt(c.Query("product_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, err := h.ledger.ListStock(c.Request.Context(), store.StockFilter{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": rows, "limit": limit, "offset": offset})
}

type stockOpRequest struct {
	WarehouseID int64 `json:"warehouse_id" binding:"required"`
	ProductID   int64 `json:"product_id" binding:"required"`
	VariantID   int64 `json:"variant_id"`
	Quantity    int   `json:"quantity" binding:"required,min=1"`
}

// reserveStock handles soft holds for external fulfillment callers
func (h *Handler) reserveStock(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var req stockOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	row, err := h.ledger.Reserve(c.Request.Context(), models.StockKey{
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
	}, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// unreserveStock releases a soft hold
func (h *Handler) unreserveStock(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var req stockOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	row, err := h.ledger.Unreserve(c.Request.Context(), models.StockKey{
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
	}, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type transferRequest struct {
	SrcWarehouseID int64 `json:"src_warehouse_id" binding:"required"`
	DstWarehouseID int64 `json:"dst_warehouse_id" binding:"required"`
	ProductID      int64 `json:"product_id" binding:"required"`
	VariantID      int64 `json:"variant_id"`
	Quantity       int   `json:"quantity" binding:"required,min=1"`
}

// transferStock moves aggregate stock between warehouses
func (h *Handler) transferStock(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.ledger.Transfer(c.Request.Context(),
		req.SrcWarehouseID, req.DstWarehouseID, req.ProductID, req.VariantID, req.Quantity, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// listUnits handles paged serialized unit listing
func (h *Handler) listUnits(c *gin.Context) {
	warehouseID, _ := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	productID, _ := strconv.ParseInt(c.Query("product_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	units, err := h.units.ListUnits(c.Request.Context(), store.UnitFilter{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Status:      c.Query("status"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "limit": limit, "offset": offset})
}

// getUnit handles get unit by ID
func (h *Handler) getUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	unit, err := h.units.GetUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// deleteUnit handles unit tombstoning
func (h *Handler) deleteUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.units.DeleteUnit(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type unitStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	Note            string `json:"note"`
	DestWarehouseID int64  `json:"dest_warehouse_id"`
}

// updateUnitStatus handles lifecycle transitions of a serialized unit.
// Entering TRANSFERRING requires dest_warehouse_id and routes to dispatch.
func (h *Handler) updateUnitStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req unitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var unit *models.SerializedUnit
	var err error
	if req.Status == models.UnitStatusTransferring && req.DestWarehouseID != 0 {
		unit, err = h.units.Dispatch(c.Request.Context(), id, req.DestWarehouseID, req.Note, actor)
	} else {
		unit, err = h.units.UpdateStatus(c.Request.Context(), id, req.Status, req.Note, actor)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

type overrideStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// overrideUnitStatus handles the logged administrative correction path
func (h *Handler) overrideUnitStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	unit, err := h.units.OverrideStatus(c.Request.Context(), id, req.Status, actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// listTransactions handles the read path over the audit ledger
func (h *Handler) listTransactions(c *gin.Context) {
	warehouseID, _ := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	productID, _ := strconv.ParseInt(c.Query("product_id"), 10, 64)
	referenceID, _ := strconv.ParseInt(c.Query("reference_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	recs, err := h.orders.ListTransactions(c.Request.Context(), store.TransactionFilter{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Type:        c.Query("type"),
		ReferenceID: referenceID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": recs, "limit": limit, "offset": offset})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
