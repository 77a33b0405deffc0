package payment

import "errors"

// Sentinel errors for the payment pipeline. Controllers translate these into
// HTTP statuses; nothing below the controller layer knows about HTTP.
var (
	// ErrInvalidPlan is returned when a requested plan ID is not in the catalog.
	ErrInvalidPlan = errors.New("payment: unknown plan")

	// ErrGatewayUnavailable is returned when the gateway integration is not
	// configured (missing credentials) or the gateway cannot be reached.
	// Callers should treat it as retryable.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")

	// ErrOrderNotFound is returned when the gateway has no record of an order.
	ErrOrderNotFound = errors.New("payment: order not found")

	// ErrOrderUnattributed is returned when an order carries no user
	// attribution in its gateway-side notes. Orders created through the order
	// service always carry one, so this indicates an order we did not create.
	ErrOrderUnattributed = errors.New("payment: order has no user attribution")

	// ErrUserMismatch is returned when the authenticated caller does not match
	// the user recorded in the order's gateway-side notes.
	ErrUserMismatch = errors.New("payment: order belongs to another user")

	// ErrPaymentNotFound is returned when the gateway has no record of a payment.
	ErrPaymentNotFound = errors.New("payment: payment not found")

	// ErrPaymentIncomplete is returned when the gateway-side payment status is
	// neither captured nor authorized.
	ErrPaymentIncomplete = errors.New("payment: payment not captured")

	// ErrUnknownPlanAmount is returned when a paid amount matches no catalog
	// plan and no plan was recorded in the order notes. Never coerced to a
	// default plan.
	ErrUnknownPlanAmount = errors.New("payment: amount matches no plan")

	// ErrInvalidSignature is returned for forged or garbled signatures, both
	// on the verify path and the webhook path.
	ErrInvalidSignature = errors.New("payment: invalid signature")

	// ErrNoActiveSubscription is returned when cancel is requested for a user
	// without a paid subscription.
	ErrNoActiveSubscription = errors.New("payment: no active subscription")
)
