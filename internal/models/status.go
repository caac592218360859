package models

// AllowedTransitions is the order lifecycle as a directed graph. Routing
// only ever moves orders between AWAITING_QUOTES, PREPARING and CANCELLED;
// the remaining edges belong to the pharmacy/driver fulfillment flow.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPendingAnalysis: {StatusAwaitingQuotes, StatusCancelled},
	StatusAwaitingQuotes:  {StatusPreparing, StatusCancelled},
	StatusPreparing:       {StatusReadyForPickup},
	StatusReadyForPickup:  {StatusOutForDelivery},
	StatusOutForDelivery:  {StatusDelivered},
	// Terminal states.
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
