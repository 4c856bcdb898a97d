package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/dispute"
	"gamelo-backend/internal/order"
	"gamelo-backend/internal/wallet"
	"gamelo-backend/pkg/logger"
)

type createProductRequest struct {
	Slug        string `json:"slug" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required"`
	PriceMinor  int64  `json:"price_minor"`
	CategoryID  string `json:"category_id"`
	Variants    []struct {
		Label      string `json:"label"`
		PriceMinor int64  `json:"price_minor"`
	} `json:"variants"`
}

func (h *Handler) AdminCreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	in := catalog.CreateInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Type:        catalog.ProductType(req.Type),
		PriceMinor:  req.PriceMinor,
		CategoryID:  req.CategoryID,
	}
	for _, v := range req.Variants {
		in.Variants = append(in.Variants, catalog.Variant{Label: v.Label, PriceMinor: v.PriceMinor})
	}
	p, err := h.Products.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) AdminUpdateProduct(c *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		PriceMinor  *int64  `json:"price_minor"`
		CategoryID  *string `json:"category_id"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	p, err := h.Products.Update(c.Request.Context(), c.Param("id"), catalog.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type uploadCodesRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

// AdminUploadCodes adds plaintext codes to a product's pool. Duplicates are
// reported, not rejected.
func (h *Handler) AdminUploadCodes(c *gin.Context) {
	actorID, actorRole, ok := identity(c)
	if !ok {
		return
	}
	var req uploadCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}

	ctx := c.Request.Context()
	p, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.Pool.Upload(ctx, p.ID, req.Codes)
	if err != nil {
		respondError(c, err)
		return
	}
	h.Products.InvalidateStock(ctx, p.ID)

	if err := h.Auditor.LogAdminAction(ctx, actorID, actorRole, c.ClientIP(), "codes uploaded",
		fmt.Sprintf(`{"product_id":%q,"added":%d,"duplicates":%d}`, p.ID, res.Added, res.Duplicates)); err != nil {
		logger.FromGin(c).Error("upload audit failed", "error", err)
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdminListOrders(c *gin.Context) {
	list, err := h.Orders.ListByStatus(c.Request.Context(), order.Status(c.Query("status")), 100)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) AdminGetOrderHistory(c *gin.Context) {
	ctx := c.Request.Context()
	o, err := h.Orders.GetAny(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	hist, err := h.Orders.History(ctx, o.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "history": hist})
}

type setOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) AdminSetOrderStatus(c *gin.Context) {
	actorID, actorRole, ok := identity(c)
	if !ok {
		return
	}
	var req setOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	o, err := h.Orders.SetStatus(c.Request.Context(), c.Param("id"), order.Status(req.Status), actorID, actorRole, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type deliverOrderRequest struct {
	Note string `json:"note" binding:"required"`
}

func (h *Handler) AdminDeliverOrder(c *gin.Context) {
	actorID, actorRole, ok := identity(c)
	if !ok {
		return
	}
	var req deliverOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	o, err := h.Orders.Deliver(c.Request.Context(), c.Param("id"), actorID, actorRole, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type createDiscountRequest struct {
	Code                 string     `json:"code" binding:"required"`
	Type                 string     `json:"type" binding:"required"`
	Value                int64      `json:"value" binding:"required"`
	MinPurchaseMinor     int64      `json:"min_purchase_minor"`
	MaxDiscountMinor     int64      `json:"max_discount_minor"`
	MaxUses              int        `json:"max_uses"`
	MaxUsesPerUser       int        `json:"max_uses_per_user"`
	ValidFrom            *time.Time `json:"valid_from"`
	ValidUntil           *time.Time `json:"valid_until"`
	ApplicableProducts   []string   `json:"applicable_products"`
	ApplicableCategories []string   `json:"applicable_categories"`
	FirstPurchaseOnly    bool       `json:"first_purchase_only"`
	RequiresMinItems     int        `json:"requires_min_items"`
}

func (h *Handler) AdminCreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	d, err := h.Discounts.Create(c.Request.Context(), discount.CreateInput{
		Code:                 req.Code,
		Type:                 discount.Type(req.Type),
		Value:                req.Value,
		MinPurchaseMinor:     req.MinPurchaseMinor,
		MaxDiscountMinor:     req.MaxDiscountMinor,
		MaxUses:              req.MaxUses,
		MaxUsesPerUser:       req.MaxUsesPerUser,
		ValidFrom:            req.ValidFrom,
		ValidUntil:           req.ValidUntil,
		ApplicableProducts:   req.ApplicableProducts,
		ApplicableCategories: req.ApplicableCategories,
		FirstPurchaseOnly:    req.FirstPurchaseOnly,
		RequiresMinItems:     req.RequiresMinItems,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

type updateDiscountRequest struct {
	Value             *int64     `json:"value"`
	MinPurchaseMinor  *int64     `json:"min_purchase_minor"`
	MaxDiscountMinor  *int64     `json:"max_discount_minor"`
	MaxUses           *int       `json:"max_uses"`
	MaxUsesPerUser    *int       `json:"max_uses_per_user"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidUntil        *time.Time `json:"valid_until"`
	FirstPurchaseOnly *bool      `json:"first_purchase_only"`
	RequiresMinItems  *int       `json:"requires_min_items"`
	IsActive          *bool      `json:"is_active"`
}

// AdminUpdateDiscount rejects unknown fields: a typo in a field name must not
// silently leave a live code unchanged.
func (h *Handler) AdminUpdateDiscount(c *gin.Context) {
	var req updateDiscountRequest
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(c, "حقول غير معروفة في الطلب")
		return
	}
	d, err := h.Discounts.UpdateDiscount(c.Request.Context(), c.Param("id"), discount.UpdateInput{
		Value:             req.Value,
		MinPurchaseMinor:  req.MinPurchaseMinor,
		MaxDiscountMinor:  req.MaxDiscountMinor,
		MaxUses:           req.MaxUses,
		MaxUsesPerUser:    req.MaxUsesPerUser,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		FirstPurchaseOnly: req.FirstPurchaseOnly,
		RequiresMinItems:  req.RequiresMinItems,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) AdminListDiscounts(c *gin.Context) {
	list, err := h.Discounts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discounts": list})
}

func (h *Handler) AdminListDisputes(c *gin.Context) {
	list, err := h.Disputes.ListUnresolved(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": list})
}

func (h *Handler) AdminGetDispute(c *gin.Context) {
	d, msgs, err := h.Disputes.Get(c.Request.Context(), c.Param("id"), "", true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispute": d, "messages": msgs})
}

func (h *Handler) AdminReplyToDispute(c *gin.Context) {
	actorID, actorRole, ok := identity(c)
	if !ok {
		return
	}
	var req disputeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	m, err := h.Disputes.Reply(c.Request.Context(), c.Param("id"), actorID, actorRole, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

type resolveDisputeRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

func (h *Handler) AdminResolveDispute(c *gin.Context) {
	actorID, actorRole, ok := identity(c)
	if !ok {
		return
	}
	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}
	d, err := h.Disputes.Resolve(c.Request.Context(), c.Param("id"), actorID, actorRole, dispute.Decision(req.Decision), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type walletAdjustRequest struct {
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// AdminCreditWallet tops up a user's wallet. Every adjustment is audit-logged
// with the acting admin.
func (h *Handler) AdminCreditWallet(c *gin.Context) {
	h.adminAdjustWallet(c, false)
}

// AdminDeductWallet removes funds; fails if the balance cannot cover it.
func (h *Handler) AdminDeductWallet(c *gin.Context) {
	h.adminAdjustWallet(c, true)
}

func (h *Handler) adminAdjustWallet(c *gin.Context, deduct bool) {
	actorID, actorRole, ok := identity(c)
	if !ok {
		return
	}
	var req walletAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "بيانات غير صالحة")
		return
	}

	ctx := c.Request.Context()
	targetUser := c.Param("user_id")
	var (
		entry wallet.Entry
		err   error
	)
	if deduct {
		entry, err = h.Wallets.Debit(ctx, targetUser, req.AmountMinor, wallet.EntryTypeDebit, req.Reason, "admin:"+actorID)
	} else {
		entry, err = h.Wallets.Credit(ctx, targetUser, req.AmountMinor, wallet.EntryTypeCredit, req.Reason, "admin:"+actorID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	action := "wallet credit"
	if deduct {
		action = "wallet deduct"
	}
	if err := h.Auditor.LogAdminAction(ctx, actorID, actorRole, c.ClientIP(), action,
		fmt.Sprintf(`{"user_id":%q,"amount_minor":%d,"reason":%q}`, targetUser, req.AmountMinor, req.Reason)); err != nil {
		logger.FromGin(c).Error("wallet audit failed", "error", err)
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) AdminGetWallet(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("user_id")
	b, err := h.Wallets.GetBalance(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := h.Wallets.History(ctx, userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": b, "entries": entries})
}

func (h *Handler) AdminOrdersReport(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		badRequest(c, "نطاق التاريخ غير صالح")
		return
	}
	sum, err := h.Reports.Orders(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) AdminWalletReport(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		badRequest(c, "نطاق التاريخ غير صالح")
		return
	}
	sum, err := h.Reports.Wallet(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errors.New("inverted range")
	}
	return from, to, nil
}
