package fulfillment

import "strings"

// LocalStatus is the storefront's order status vocabulary.
type LocalStatus string

const (
	StatusPaid       LocalStatus = "paid"
	StatusProcessing LocalStatus = "processing"
	StatusShipped    LocalStatus = "shipped"
	StatusDelivered  LocalStatus = "delivered"
	StatusCanceled   LocalStatus = "canceled"
)

// AllStatuses returns every local status in lifecycle order.
func AllStatuses() []LocalStatus {
	return []LocalStatus{StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCanceled}
}

// IsValid checks if the status is known
func (s LocalStatus) IsValid() bool {
	switch s {
	case StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// String returns the string representation
func (s LocalStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the order can no longer change.
func (s LocalStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// rank orders the forward lifecycle. Canceled sits outside it.
func (s LocalStatus) rank() int {
	switch s {
	case StatusPaid:
		return 0
	case StatusProcessing:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	default:
		return -1
	}
}

// Provider status vocabulary. The provider may add values at any time.
const (
	ProviderStatusPending      = "pending"
	ProviderStatusInProduction = "in-production"
	ProviderStatusFulfilled    = "fulfilled"
	ProviderStatusShipped      = "shipped"
	ProviderStatusDelivered    = "delivered"
	ProviderStatusCanceled     = "canceled"
)

// MapProviderStatus translates a provider status into the local vocabulary.
// Unknown values map to processing so an unrecognised but real progression
// stays visible.
func MapProviderStatus(external string) LocalStatus {
	switch strings.ToLower(strings.TrimSpace(external)) {
	case ProviderStatusPending:
		return StatusPaid
	case ProviderStatusInProduction:
		return StatusProcessing
	case ProviderStatusFulfilled, ProviderStatusShipped:
		return StatusShipped
	case ProviderStatusDelivered:
		return StatusDelivered
	case ProviderStatusCanceled, "cancelled":
		return StatusCanceled
	default:
		return StatusProcessing
	}
}

// Transition is the outcome of comparing a current and a proposed status.
type Transition int

const (
	// TransitionApply means the proposed status is forward progress.
	TransitionApply Transition = iota
	// TransitionUnchanged means the order already has the proposed status.
	TransitionUnchanged
	// TransitionRegression means the proposed status would move the order backward.
	TransitionRegression
	// TransitionTerminal means the order is delivered or canceled.
	TransitionTerminal
)

// String returns the string representation
func (t Transition) String() string {
	switch t {
	case TransitionApply:
		return "applied"
	case TransitionUnchanged:
		return "unchanged"
	case TransitionRegression:
		return "regression"
	case TransitionTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// DecideTransition applies the monotonic progress rule:
// paid < processing < shipped < delivered, canceled reachable from any
// non-terminal status, delivered and canceled final.
func DecideTransition(from, to LocalStatus) Transition {
	if from == to {
		return TransitionUnchanged
	}
	if from.IsTerminal() {
		return TransitionTerminal
	}
	if to == StatusCanceled {
		return TransitionApply
	}
	if to.rank() > from.rank() {
		return TransitionApply
	}
	return TransitionRegression
}

// Predecessors lists the statuses from which to may be applied. It is used to
// gate the status write at the storage layer.
func Predecessors(to LocalStatus) []LocalStatus {
	var from []LocalStatus
	for _, s := range AllStatuses() {
		if DecideTransition(s, to) == TransitionApply {
			from = append(from, s)
		}
	}
	return from
}
