package services

type EntityKind string

const (
	EntityGoal       EntityKind = "goal"
	EntityKeyResult  EntityKind = "kr"
	EntityInitiative EntityKind = "initiative"
)

type ChangeKind string

const (
	ChangeCreated ChangeKind = "create"
	ChangeUpdated ChangeKind = "update"
	ChangeDeleted ChangeKind = "delete"
	ChangeStatus  ChangeKind = "status"
)

// ChangeEvent is emitted once after every mutation that changed the store.
// Subscribers recompute whatever they display from the session; no completion
// value travels with the event.
type ChangeEvent struct {
	Entity EntityKind
	Kind   ChangeKind
	ID     string
	// Saved is false when the snapshot save after the change failed.
	Saved bool
}
