// Package httpapi contains the gin handlers. Handlers stay thin: bind, call a
// service, map the error, encode the result.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gamelo-backend/internal/audit"
	"gamelo-backend/internal/auth"
	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/codes"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/dispute"
	"gamelo-backend/internal/notify"
	"gamelo-backend/internal/order"
	"gamelo-backend/internal/reporting"
	"gamelo-backend/internal/wallet"
	"gamelo-backend/pkg/logger"
	"gamelo-backend/pkg/utils"
)

type Handler struct {
	Wallets       *wallet.Service
	Pool          *codes.Service
	Products      *catalog.Service
	Discounts     *discount.Service
	Orders        *order.Service
	Disputes      *dispute.Service
	Notifications *notify.Service
	Reports       *reporting.Service
	Auditor       *audit.Service

	// RDB powers the per-user checkout concurrency cap; nil disables it.
	RDB         *redis.Client
	CheckoutCap int

	Log *slog.Logger
}

// identity pulls the authenticated caller out of the request context. The
// auth middleware guarantees it on protected routes.
func identity(c *gin.Context) (userID, role string, ok bool) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "يرجى تسجيل الدخول"})
		return "", "", false
	}
	role, _ = auth.Role(c.Request.Context())
	return userID, role, true
}

// acquireCheckoutSlot caps in-flight checkouts per user. Open (no redis or
// redis failure) rather than closed: the store-level locks still guarantee
// correctness, the cap only sheds retry storms.
func (h *Handler) acquireCheckoutSlot(c *gin.Context, userID string) (release func(), ok bool) {
	if h.RDB == nil {
		return func() {}, true
	}
	key := "checkout:" + userID
	acquired, err := utils.AcquireConcurrencyCap(c.Request.Context(), h.RDB, key, h.CheckoutCap, 30*time.Second)
	if err != nil {
		logger.FromGin(c).Warn("checkout cap unavailable", "error", err)
		return func() {}, true
	}
	if !acquired {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too_many_requests", "message": "لديك عملية شراء قيد التنفيذ، يرجى المحاولة بعد قليل"})
		return nil, false
	}
	return func() {
		if err := utils.ReleaseConcurrencyCap(c.Request.Context(), h.RDB, key); err != nil {
			logger.FromGin(c).Warn("checkout cap release failed", "error", err)
		}
	}, true
}
