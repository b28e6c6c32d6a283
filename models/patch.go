package models

// InitiativePatch is a partial update; nil fields are left untouched.
type InitiativePatch struct {
	Description *string `json:"description,omitempty"`
	WeightLevel *int    `json:"weightLevel,omitempty" validate:"omitempty,min=1,max=5"`
	Status      *Status `json:"status,omitempty" validate:"omitempty,oneof=Pending 'In Progress' Done"`
}

func (p InitiativePatch) Empty() bool {
	return p.Description == nil && p.WeightLevel == nil && p.Status == nil
}

// Request bodies accepted by the HTTP handlers.

type GoalRequest struct {
	Title string `json:"title" validate:"required"`
}

type KeyResultRequest struct {
	Description string  `json:"description" validate:"required"`
	Weight      float64 `json:"weight" validate:"min=0,max=100"`
}

type InitiativeRequest struct {
	Description string `json:"description" validate:"required"`
	WeightLevel int    `json:"weightLevel" validate:"min=1,max=5"`
	Status      Status `json:"status" validate:"omitempty,oneof=Pending 'In Progress' Done"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=Pending 'In Progress' Done"`
}

type SuggestRequest struct {
	Title string `json:"title" validate:"required"`
}

// TierStats summarises goals sharing a progress tier.
type TierStats struct {
	Tier          string  `json:"tier"`
	Count         int     `json:"count"`
	AvgCompletion float64 `json:"avgCompletion"`
	TotalKRs      int     `json:"totalKrs"`
}
