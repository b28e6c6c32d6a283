package models

// Status is the progress state of an Initiative.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

const (
	MinWeightLevel = 1
	MaxWeightLevel = 5
)

var weightLevelLabels = map[int]string{
	1: "Lowest Priority",
	2: "Low Priority",
	3: "Medium Priority",
	4: "High Priority",
	5: "Highest Priority",
}

// WeightLevelLabel returns the display label for an initiative weight level,
// or an empty string for values outside 1..5.
func WeightLevelLabel(level int) string {
	return weightLevelLabels[level]
}

type Goal struct {
	ID        string `json:"id" bson:"id"`
	Title     string `json:"title" bson:"title"`
	CreatedAt int64  `json:"createdAt" bson:"created_at"`
}

// KeyResult belongs to exactly one Goal. Weight is its percentage share of
// the goal and is not normalised against sibling weights.
type KeyResult struct {
	ID          string  `json:"id" bson:"id"`
	GoalID      string  `json:"goalId" bson:"goal_id"`
	Description string  `json:"description" bson:"description"`
	Weight      float64 `json:"weight" bson:"weight"`
	CreatedAt   int64   `json:"createdAt" bson:"created_at"`
}

type Initiative struct {
	ID          string `json:"id" bson:"id"`
	KrID        string `json:"krId" bson:"kr_id"`
	Description string `json:"description" bson:"description"`
	WeightLevel int    `json:"weightLevel" bson:"weight_level"`
	Status      Status `json:"status" bson:"status"`
	CreatedAt   int64  `json:"createdAt" bson:"created_at"`
}

// Snapshot is the flat, foreign-key linked representation written to and read
// from every persistence backend.
type Snapshot struct {
	Goals        []Goal       `json:"goals" bson:"goals"`
	KeyResults   []KeyResult  `json:"keyResults" bson:"key_results"`
	Initiatives  []Initiative `json:"initiatives" bson:"initiatives"`
	LastModified int64        `json:"lastModified,omitempty" bson:"last_modified,omitempty"`
}

// GoalTree is the nested read view of a goal with derived completion values.
type GoalTree struct {
	Goal
	Completion float64         `json:"completion"`
	Tier       string          `json:"tier"`
	KRs        []KeyResultTree `json:"krs"`
}

type KeyResultTree struct {
	KeyResult
	Completion  float64      `json:"completion"`
	Tier        string       `json:"tier"`
	Initiatives []Initiative `json:"initiatives"`
}
