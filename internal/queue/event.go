// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds carried on the request.events queue.
const (
	KindRequestCreated   = "request_created"
	KindProviderAssigned = "provider_assigned"
	KindStatusChanged    = "status_changed"
)

// RequestEvent is published when a maintenance request is filed, assigned or
// moved through its lifecycle. It carries enough information for the
// notification consumer to write rows for every affected user without
// querying the primary tables again. ProviderID is zero while unassigned.
type RequestEvent struct {
	Kind            string `json:"kind"`
	RequestID       uint64 `json:"request_id"`
	RequestTitle    string `json:"request_title"`
	PropertyID      uint64 `json:"property_id"`
	PropertyTitle   string `json:"property_title"`
	RequesterID     uint64 `json:"requester_id"`
	PropertyOwnerID uint64 `json:"property_owner_id"`
	ProviderID      uint64 `json:"provider_id"`
	Status          string `json:"status"`
	OccurredAt      string `json:"occurred_at"`
}
