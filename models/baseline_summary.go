package models

import "time"

// BaselineSummary is the listing projection of a BaselineRequest.
type BaselineSummary struct {
	RequestID         int        `json:"request_id"`
	RequestNo         string     `json:"request_no"`
	Title             string     `json:"title"`
	Status            string     `json:"status"`
	ApprovalStatus    string     `json:"approval_status"`
	CurrentStep       string     `json:"current_step"`
	PendingActionType *string    `json:"pending_action_type,omitempty"`
	OwnerID           string     `json:"owner_id"`
	OwnerName         string     `json:"owner_name"`
	ReviewerID        *string    `json:"reviewer_id,omitempty"`
	ReviewerName      *string    `json:"reviewer_name,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
}

// SummaryFromRequest builds the listing projection for a request.
func SummaryFromRequest(req *BaselineRequest) BaselineSummary {
	return BaselineSummary{
		RequestID:         req.RequestID,
		RequestNo:         req.RequestNo,
		Title:             req.Title,
		Status:            req.Status,
		ApprovalStatus:    req.ApprovalStatus,
		CurrentStep:       req.CurrentStep,
		PendingActionType: req.PendingActionType,
		OwnerID:           req.OwnerID,
		OwnerName:         req.OwnerName,
		ReviewerID:        req.ReviewerID,
		ReviewerName:      req.ReviewerName,
		CreatedAt:         req.CreatedAt,
		UpdatedAt:         req.UpdatedAt,
		PublishedAt:       req.PublishedAt,
	}
}

// BaselineTaskSummary joins a task with the fields of its owning request that
// a reviewer needs in a worklist, without exposing the entities themselves.
type BaselineTaskSummary struct {
	TaskID       int        `gorm:"column:task_id" json:"task_id"`
	RequestID    int        `gorm:"column:request_id" json:"request_id"`
	StepCode     string     `gorm:"column:step_code" json:"step_code"`
	AssigneeRole string     `gorm:"column:assignee_role" json:"assignee_role"`
	AssigneeID   string     `gorm:"column:assignee_id" json:"assignee_id"`
	AssigneeName string     `gorm:"column:assignee_name" json:"assignee_name"`
	Status       string     `gorm:"column:status" json:"status"`
	Decision     *string    `gorm:"column:decision" json:"decision,omitempty"`
	Comment      *string    `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	ActedAt      *time.Time `gorm:"column:acted_at" json:"acted_at,omitempty"`

	RequestNo         string  `gorm:"column:request_no" json:"request_no"`
	Title             string  `gorm:"column:title" json:"title"`
	BaselineStatus    string  `gorm:"column:baseline_status" json:"baseline_status"`
	ApprovalStatus    string  `gorm:"column:approval_status" json:"approval_status"`
	PendingActionType *string `gorm:"column:pending_action_type" json:"pending_action_type,omitempty"`
	CurrentStep       string  `gorm:"column:current_step" json:"current_step"`
}

// Page is the pagination envelope returned by listing queries.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
