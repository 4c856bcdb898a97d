package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gamelo-backend/internal/auth"
	"gamelo-backend/internal/httpapi"
	"gamelo-backend/internal/rbac"
	"gamelo-backend/pkg/utils"
)

func registerRoutes(r *gin.Engine, h *httpapi.Handler, db *sql.DB, authManager *auth.Manager) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	// Public storefront: browsing needs no token.
	v1.GET("/products", h.ListProducts)
	v1.GET("/products/:id", h.GetProduct)

	// Buyer surface.
	authed := v1.Group("")
	authed.Use(auth.RequireAccessToken(authManager))
	{
		authed.GET("/wallet", h.GetWallet)
		authed.GET("/wallet/history", h.GetWalletHistory)

		authed.POST("/discounts/preview", h.PreviewDiscount)

		authed.POST("/orders", h.CreateOrder)
		authed.GET("/orders", h.ListMyOrders)
		authed.GET("/orders/:id", h.GetOrder)
		authed.POST("/orders/:id/reveal", h.RevealOrderCodes)

		authed.POST("/disputes", h.CreateDispute)
		authed.GET("/disputes", h.ListMyDisputes)
		authed.GET("/disputes/:id", h.GetDispute)
		authed.POST("/disputes/:id/messages", h.ReplyToDispute)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)
	}

	// Back office. Permission checks per route group.
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAccessToken(authManager))
	{
		products := admin.Group("", rbac.RequirePermission(rbac.PermManageProducts))
		{
			products.POST("/products", h.AdminCreateProduct)
			products.PATCH("/products/:id", h.AdminUpdateProduct)
			products.POST("/products/:id/codes", h.AdminUploadCodes)
		}

		orders := admin.Group("", rbac.RequirePermission(rbac.PermManageOrders))
		{
			orders.GET("/orders", h.AdminListOrders)
			orders.GET("/orders/:id", h.AdminGetOrderHistory)
			orders.POST("/orders/:id/status", h.AdminSetOrderStatus)
			orders.POST("/orders/:id/deliver", h.AdminDeliverOrder)
		}

		discounts := admin.Group("", rbac.RequirePermission(rbac.PermManageDiscounts))
		{
			discounts.GET("/discounts", h.AdminListDiscounts)
			discounts.POST("/discounts", h.AdminCreateDiscount)
			discounts.PATCH("/discounts/:id", h.AdminUpdateDiscount)
		}

		disputes := admin.Group("", rbac.RequirePermission(rbac.PermManageDisputes))
		{
			disputes.GET("/disputes", h.AdminListDisputes)
			disputes.GET("/disputes/:id", h.AdminGetDispute)
			disputes.POST("/disputes/:id/messages", h.AdminReplyToDispute)
			disputes.POST("/disputes/:id/resolve", h.AdminResolveDispute)
		}

		wallets := admin.Group("", rbac.RequirePermission(rbac.PermManageWallets))
		{
			wallets.GET("/wallets/:user_id", h.AdminGetWallet)
			wallets.POST("/wallets/:user_id/credit", h.AdminCreditWallet)
			wallets.POST("/wallets/:user_id/deduct", h.AdminDeductWallet)
		}

		reports := admin.Group("", rbac.RequirePermission(rbac.PermViewAnalytics))
		{
			reports.GET("/reports/orders", h.AdminOrdersReport)
			reports.GET("/reports/wallet", h.AdminWalletReport)
		}
	}
}
