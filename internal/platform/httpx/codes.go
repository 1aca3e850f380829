package httpx

// Stable machine-readable error codes shared by handlers. Clients branch on
// these codes, never on message text.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidArgument = "invalid_argument"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal"

	// Order lifecycle.
	CodeOrderNotFound          = "order_not_found"
	CodeOrderNotCancellable    = "order_not_cancellable"
	CodeOrderInvalidTransition = "order_invalid_transition"
	CodeReturnNotEligible      = "return_not_eligible"
	CodeReturnWindowExpired    = "return_window_expired"
	CodeReturnAlreadyRequested = "return_already_requested"
	CodeReturnNotCancellable   = "return_not_cancellable"
	CodeBankDetailsRequired    = "bank_details_required"
	CodeRefundNotAllowed       = "refund_not_allowed"

	// Checkout.
	CodePaymentFailed = "payment_failed"

	// Cart and pricing.
	CodeCartNotFound      = "cart_not_found"
	CodeCartItemNotFound  = "cart_item_not_found"
	CodeCouponNotFound    = "coupon_not_found"
	CodeCouponExpired     = "coupon_expired"
	CodeCouponMinSubtotal = "coupon_min_subtotal"
	CodeOutOfStock        = "out_of_stock"

	// Catalog.
	CodeProductNotFound  = "product_not_found"
	CodeProductSKUTaken  = "product_sku_taken"
	CodeProductSlugTaken = "product_slug_taken"

	// Auth.
	CodeOTPInvalid     = "otp_invalid"
	CodeOTPExpired     = "otp_expired"
	CodeOTPMaxAttempts = "otp_max_attempts"

	// Reviews.
	CodeReviewNotAllowed = "review_not_allowed"
	CodeReviewExists     = "review_exists"
)
