package orders

import "github.com/JairHAM/pos-api/internal/apperr"

var (
	ErrEmptyItems          = apperr.Validation("empty_items", "order must contain at least one item")
	ErrTableNumberRequired = apperr.Validation("table_number_required", "tableNumber is required")
	ErrInvalidQuantity     = apperr.Validation("invalid_quantity", "quantity must be a positive integer")
	ErrInvalidPrice        = apperr.Validation("invalid_price", "price must be a non-negative amount with at most 4 decimals")
	ErrInvalidAmount       = apperr.Validation("invalid_amount", "amounts must be non-negative, with at most 4 decimals and below 10^14")
	ErrNegativeTotal       = apperr.Validation("negative_total", "discount exceeds subtotal plus tax")
	ErrInvalidPayment      = apperr.Validation("invalid_payment_method", "paymentMethod must be CASH, CARD or OTHER")
	ErrInvalidStatus       = apperr.Validation("invalid_status", "invalid status")
	ErrMissingProductID    = apperr.Validation("missing_product_id", "productId is required")
	ErrProductInactive     = apperr.Validation("product_inactive", "product is not available")
	ErrMissingUser         = apperr.Unauthorized("missing_user", "authenticated user required")

	ErrProductNotFound = apperr.NotFound("product_not_found", "product not found")
	ErrOrderNotFound   = apperr.NotFound("order_not_found", "order not found")

	ErrInsufficientStock     = apperr.Conflict("insufficient_stock", "insufficient stock")
	ErrDuplicateOrderNumber  = apperr.Conflict("duplicate_order_number", "order number already issued")
	ErrOrderNumberConflict   = apperr.Conflict("order_number_conflict", "could not assign a unique order number")
	ErrInvalidTransition     = apperr.Conflict("invalid_transition", "status transition not allowed")
	ErrIdempotencyInProgress = apperr.Conflict("idempotency_in_progress", "a request with this idempotency key is in progress")
)
