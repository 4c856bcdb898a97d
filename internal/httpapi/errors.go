package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/codes"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/dispute"
	"gamelo-backend/internal/notify"
	"gamelo-backend/internal/order"
	"gamelo-backend/internal/reporting"
	"gamelo-backend/internal/wallet"
	"gamelo-backend/pkg/logger"
)

// apiError is the stable wire shape: a machine-readable kind plus a message
// for the (Arabic-speaking) storefront.
type apiError struct {
	status  int
	kind    string
	message string
}

var errTable = []struct {
	match error
	out   apiError
}{
	{wallet.ErrInsufficientFunds, apiError{http.StatusPaymentRequired, "insufficient_funds", "رصيد المحفظة غير كافٍ"}},
	{codes.ErrInsufficientStock, apiError{http.StatusConflict, "insufficient_stock", "الكمية المطلوبة غير متوفرة حالياً"}},

	{catalog.ErrNotFound, apiError{http.StatusNotFound, "not_found", "المنتج غير موجود"}},
	{catalog.ErrVariantNotFound, apiError{http.StatusNotFound, "not_found", "الفئة المختارة غير متوفرة"}},
	{order.ErrNotFound, apiError{http.StatusNotFound, "not_found", "الطلب غير موجود"}},
	{codes.ErrNotFound, apiError{http.StatusNotFound, "not_found", "لا توجد أكواد لهذا الطلب"}},
	{dispute.ErrNotFound, apiError{http.StatusNotFound, "not_found", "النزاع غير موجود"}},

	{order.ErrForbidden, apiError{http.StatusForbidden, "forbidden", "غير مصرح لك بالوصول إلى هذا الطلب"}},

	{order.ErrInvalidTransition, apiError{http.StatusConflict, "invalid_state", "لا يمكن تغيير حالة الطلب من وضعها الحالي"}},
	{order.ErrNotRevealable, apiError{http.StatusConflict, "invalid_state", "لا يمكن عرض الأكواد لهذا الطلب"}},
	{dispute.ErrDisputeOpen, apiError{http.StatusConflict, "already_exists", "يوجد نزاع مفتوح على هذا الطلب"}},
	{dispute.ErrResolved, apiError{http.StatusConflict, "invalid_state", "تم حل هذا النزاع مسبقاً"}},
	{discount.ErrAlreadyExists, apiError{http.StatusConflict, "already_exists", "كود الخصم موجود مسبقاً"}},

	{discount.ErrNotFound, apiError{http.StatusBadRequest, "discount_invalid", "كود الخصم غير صالح"}},
	{discount.ErrNotStarted, apiError{http.StatusBadRequest, "discount_not_started", "كود الخصم غير فعال بعد"}},
	{discount.ErrExpired, apiError{http.StatusBadRequest, "discount_expired", "انتهت صلاحية كود الخصم"}},
	{discount.ErrMaxUsesReached, apiError{http.StatusBadRequest, "discount_exhausted", "تم استنفاد كود الخصم"}},
	{discount.ErrUserLimitReached, apiError{http.StatusBadRequest, "discount_user_limit", "لقد استخدمت هذا الكود من قبل"}},
	{discount.ErrFirstPurchaseOnly, apiError{http.StatusBadRequest, "discount_first_purchase_only", "هذا الكود مخصص للطلب الأول فقط"}},
	{discount.ErrMinItems, apiError{http.StatusBadRequest, "discount_min_items", "عدد القطع أقل من الحد المطلوب للكود"}},
	{discount.ErrMinPurchase, apiError{http.StatusBadRequest, "discount_min_purchase", "قيمة الطلب أقل من الحد الأدنى للكود"}},
	{discount.ErrNotApplicable, apiError{http.StatusBadRequest, "discount_not_applicable", "كود الخصم لا ينطبق على هذا المنتج"}},
	{dispute.ErrInvalidDecision, apiError{http.StatusBadRequest, "validation_error", "قرار غير صالح"}},
	{reporting.ErrInvalidRange, apiError{http.StatusBadRequest, "validation_error", "نطاق التاريخ غير صالح"}},

	{wallet.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
	{codes.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
	{catalog.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
	{discount.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
	{order.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
	{dispute.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
	{notify.ErrInvalidArgument, apiError{http.StatusBadRequest, "validation_error", "بيانات غير صالحة"}},
}

// respondError maps domain sentinels onto the wire. Unknown errors become a
// 500 without leaking internals; the request logger keeps the details.
func respondError(c *gin.Context, err error) {
	for _, row := range errTable {
		if errors.Is(err, row.match) {
			c.JSON(row.out.status, gin.H{"error": row.out.kind, "message": row.out.message})
			return
		}
	}
	logger.FromGin(c).Error("unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "حدث خطأ غير متوقع"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": message})
}
