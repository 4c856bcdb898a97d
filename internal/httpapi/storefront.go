package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/order"
	"gamelo-backend/pkg/logger"
)

// productView is a product plus its live stock count for digital products.
type productView struct {
	catalog.Product
	Stock *int `json:"stock,omitempty"`
}

func (h *Handler) withStock(c *gin.Context, p catalog.Product) productView {
	v := productView{Product: p}
	if p.Type != catalog.TypeDigitalCode {
		return v
	}
	n, err := h.Products.StockCount(c.Request.Context(), p.ID)
	if err != nil {
		logger.FromGin(c).Warn("stock count failed", "product_id", p.ID, "error", err)
		return v
	}
	v.Stock = &n
	return v
}

func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.Products.List(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]productView, 0, len(list))
	for _, p := range list {
		out = append(out, h.withStock(c, p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !p.IsActive {
		respondError(c, catalog.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, h.withStock(c, p))
}

func (h *Handler) GetWallet(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	b, err := h.Wallets.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) GetWalletHistory(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	entries, err := h.Wallets.History(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type previewDiscountRequest struct {
	Code     string `json:"code" binding:"required"`
	Product  string `json:"product" binding:"required"`
	Variant  string `json:"variant_id"`
	Quantity int    `json:"quantity"`
}

// PreviewDiscount quotes a code against a cart without consuming it.
func (h *Handler) PreviewDiscount(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req previewDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	ctx := c.Request.Context()
	p, err := h.Products.Get(ctx, req.Product)
	if err != nil {
		respondError(c, err)
		return
	}
	unitPrice, err := catalog.ResolvePrice(p, req.Variant)
	if err != nil {
		respondError(c, err)
		return
	}
	fulfilled, err := h.Orders.CountFulfilled(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.Discounts.QuoteCode(ctx, discount.QuoteInput{
		Code:            req.Code,
		UserID:          userID,
		ProductID:       p.ID,
		CategoryID:      p.CategoryID,
		SubtotalMinor:   unitPrice * int64(req.Quantity),
		ItemCount:       req.Quantity,
		IsFirstPurchase: fulfilled == 0,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":           q.Discount.Code,
		"subtotal_minor": q.SubtotalMinor,
		"discount_minor": q.DiscountMinor,
		"total_minor":    q.TotalMinor,
	})
}

type createOrderRequest struct {
	Product      string `json:"product" binding:"required"`
	VariantID    string `json:"variant_id"`
	Quantity     int    `json:"quantity"`
	DiscountCode string `json:"discount_code"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}

	release, ok := h.acquireCheckoutSlot(c, userID)
	if !ok {
		return
	}
	defer release()

	o, err := h.Orders.Create(c.Request.Context(), order.CreateInput{
		UserID:       userID,
		Product:      req.Product,
		VariantID:    req.VariantID,
		Quantity:     req.Quantity,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListMyOrders(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Orders.ListByUser(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// RevealOrderCodes returns the decrypted codes of a fulfilled digital order.
func (h *Handler) RevealOrderCodes(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Orders.Reveal(c.Request.Context(), c.Param("id"), userID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": out})
}

type createDisputeRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

func (h *Handler) CreateDispute(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req createDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	d, err := h.Disputes.Create(c.Request.Context(), req.OrderID, userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListMyDisputes(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Disputes.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": list})
}

func (h *Handler) GetDispute(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	d, msgs, err := h.Disputes.Get(c.Request.Context(), c.Param("id"), userID, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispute": d, "messages": msgs})
}

type disputeMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *Handler) ReplyToDispute(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	// Buyers may only write into their own disputes.
	if _, _, err := h.Disputes.Get(c.Request.Context(), c.Param("id"), userID, false); err != nil {
		respondError(c, err)
		return
	}
	var req disputeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	m, err := h.Disputes.Reply(c.Request.Context(), c.Param("id"), userID, "buyer", req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Notifications.ListByUser(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
