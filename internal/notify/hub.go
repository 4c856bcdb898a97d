package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"gamelo-backend/internal/dispute"
	"gamelo-backend/internal/order"
)

// Hub fans business events out to in-app notifications and the Telegram ops
// channel. It implements order.Notifier and dispute.Notifier. All delivery is
// best-effort: failures are logged, never returned.
type Hub struct {
	users *Service
	tg    *Telegram // nil disables the ops channel
	log   *slog.Logger
}

func NewHub(users *Service, tg *Telegram, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{users: users, tg: tg, log: log}
}

func (h *Hub) OrderCreated(ctx context.Context, o order.Order) {
	h.push(ctx, o.UserID, TypeOrderCreated,
		"تم إنشاء طلبك",
		fmt.Sprintf("تم إنشاء طلبك لمنتج %s بمبلغ %s دينار", o.ProductName, formatMinor(o.TotalMinor)))

	if h.tg != nil && h.tg.NotifyNewOrders {
		h.tg.Send(ctx, fmt.Sprintf(
			"🛒 <b>طلب جديد</b>\nالمنتج: %s\nالكمية: %d\nالمبلغ: %s JOD\nالطلب: <code>%s</code>",
			html.EscapeString(o.ProductName), o.Quantity, formatMinor(o.TotalMinor), o.OrderNumber))
	}
}

func (h *Hub) OrderStatusChanged(ctx context.Context, o order.Order, from order.Status) {
	h.push(ctx, o.UserID, TypeOrderStatus,
		"تحديث حالة الطلب",
		fmt.Sprintf("تغيرت حالة طلبك لمنتج %s إلى %s", o.ProductName, statusArabic(o.Status)))
}

func (h *Hub) DisputeOpened(ctx context.Context, d dispute.Dispute) {
	h.push(ctx, d.UserID, TypeDisputeOpened,
		"تم استلام شكواك",
		"تم فتح نزاع على طلبك وسيقوم فريق الدعم بمراجعته")

	if h.tg != nil && h.tg.NotifyDisputes {
		h.tg.Send(ctx, fmt.Sprintf(
			"⚠️ <b>نزاع جديد</b>\nالطلب: <code>%s</code>\nالسبب: %s",
			d.OrderID, html.EscapeString(d.Reason)))
	}
}

func (h *Hub) DisputeResolved(ctx context.Context, d dispute.Dispute) {
	h.push(ctx, d.UserID, TypeDisputeResolved,
		"تم حل النزاع",
		fmt.Sprintf("تم حل النزاع على طلبك: %s", decisionArabic(d.Decision)))

	if h.tg != nil && h.tg.NotifyDisputes {
		h.tg.Send(ctx, fmt.Sprintf(
			"✅ <b>تم حل نزاع</b>\nالطلب: <code>%s</code>\nالقرار: %s",
			d.OrderID, string(d.Decision)))
	}
}

func (h *Hub) push(ctx context.Context, userID, typ, title, body string) {
	if h.users == nil {
		return
	}
	if err := h.users.Push(ctx, userID, typ, title, body); err != nil {
		h.log.Error("notification push failed", "user_id", userID, "type", typ, "error", err)
	}
}

// formatMinor renders minor units as a two-decimal amount.
func formatMinor(m int64) string {
	neg := ""
	if m < 0 {
		neg = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", neg, m/100, m%100)
}

func statusArabic(s order.Status) string {
	switch s {
	case order.StatusCompleted:
		return "مكتمل"
	case order.StatusDelivered:
		return "تم التسليم"
	case order.StatusAwaitingAdmin:
		return "بانتظار الإدارة"
	case order.StatusCancelled:
		return "ملغي"
	case order.StatusRefunded:
		return "مسترد"
	case order.StatusDisputed:
		return "متنازع عليه"
	case order.StatusProcessing:
		return "قيد المعالجة"
	case order.StatusPendingPayment:
		return "بانتظار الدفع"
	case order.StatusPaymentFailed:
		return "فشل الدفع"
	}
	return string(s)
}

func decisionArabic(d dispute.Decision) string {
	switch d {
	case dispute.DecisionRefund:
		return "تم استرداد المبلغ إلى محفظتك"
	case dispute.DecisionReject:
		return "تم رفض النزاع بعد المراجعة"
	case dispute.DecisionRedeliver:
		return "سيتم إعادة تسليم طلبك"
	}
	return string(d)
}
