package models

import "time"

// BaselineRequest is the aggregate root of the review workflow: one row per
// baseline document. Version is the optimistic-lock column; every persisted
// mutation must carry the version that was read or the write is rejected.
type BaselineRequest struct {
	RequestID         int        `gorm:"primaryKey;column:request_id" json:"request_id"`
	RequestNo         string     `gorm:"column:request_no;size:64;uniqueIndex" json:"request_no"`
	Title             string     `gorm:"column:title;size:255" json:"title"`
	OwnerID           string     `gorm:"column:owner_id;size:64" json:"owner_id"`
	OwnerName         string     `gorm:"column:owner_name;size:128" json:"owner_name"`
	ReviewerID        *string    `gorm:"column:reviewer_id;size:64" json:"reviewer_id,omitempty"`
	ReviewerName      *string    `gorm:"column:reviewer_name;size:128" json:"reviewer_name,omitempty"`
	Status            string     `gorm:"column:status;size:32" json:"status"`
	ApprovalStatus    string     `gorm:"column:approval_status;size:32" json:"approval_status"`
	CurrentStep       string     `gorm:"column:current_step;size:32" json:"current_step"`
	PendingActionType *string    `gorm:"column:pending_action_type;size:32" json:"pending_action_type,omitempty"`
	SubmittedAt       *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	LastReviewedAt    *time.Time `gorm:"column:last_reviewed_at" json:"last_reviewed_at,omitempty"`
	PublishedAt       *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	RetiredAt         *time.Time `gorm:"column:retired_at" json:"retired_at,omitempty"`
	Version           int        `gorm:"column:version;not null;default:0" json:"version"`
	CreatedBy         string     `gorm:"column:created_by;size:64" json:"created_by"`
	CreatedAt         time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedBy         string     `gorm:"column:updated_by;size:64" json:"updated_by"`
	UpdatedAt         time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// BaselineTask is one human review decision for a workflow step. A task is
// created PENDING and decided exactly once; it is never mutated afterward.
type BaselineTask struct {
	TaskID       int        `gorm:"primaryKey;column:task_id" json:"task_id"`
	RequestID    int        `gorm:"column:request_id;index" json:"request_id"`
	StepCode     string     `gorm:"column:step_code;size:32" json:"step_code"`
	AssigneeRole string     `gorm:"column:assignee_role;size:32" json:"assignee_role"`
	AssigneeID   string     `gorm:"column:assignee_id;size:64" json:"assignee_id"`
	AssigneeName string     `gorm:"column:assignee_name;size:128" json:"assignee_name"`
	Status       string     `gorm:"column:status;size:32" json:"status"`
	Decision     *string    `gorm:"column:decision;size:16" json:"decision,omitempty"`
	Comment      *string    `gorm:"column:comment;type:text" json:"comment,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	ActedAt      *time.Time `gorm:"column:acted_at" json:"acted_at,omitempty"`

	Request *BaselineRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
}

// BaselineEvent is an append-only audit log entry. EventID is auto-increment
// so same-timestamp events keep their insert order when the timeline is read.
type BaselineEvent struct {
	EventID   int       `gorm:"primaryKey;column:event_id" json:"event_id"`
	RequestID int       `gorm:"column:request_id;index" json:"request_id"`
	TaskID    *int      `gorm:"column:task_id" json:"task_id,omitempty"`
	EventType string    `gorm:"column:event_type;size:32" json:"event_type"`
	ActorRole string    `gorm:"column:actor_role;size:32" json:"actor_role"`
	ActorID   *string   `gorm:"column:actor_id;size:64" json:"actor_id,omitempty"`
	ActorName string    `gorm:"column:actor_name;size:128" json:"actor_name"`
	Message   string    `gorm:"column:message;size:512" json:"message"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides
func (BaselineRequest) TableName() string {
	return "baseline_request"
}

func (BaselineTask) TableName() string {
	return "baseline_task"
}

func (BaselineEvent) TableName() string {
	return "baseline_event"
}

// Baseline lifecycle status
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusRetired   = "RETIRED"
)

// Approval status
const (
	ApprovalNotRequired = "NOT_REQUIRED"
	ApprovalPending     = "PENDING"
	ApprovalApproved    = "APPROVED"
	ApprovalRejected    = "REJECTED"
)

// Workflow steps
const (
	StepOwnerSubmit      = "OWNER_SUBMIT"
	StepSMEReview        = "SME_REVIEW"
	StepPostActionReview = "POST_ACTION_REVIEW"
	StepEnd              = "END"
)

// Post-publish action types
const (
	PendingActionRetire = "RETIRE"
	PendingActionDelete = "DELETE"
)

// Task status
const (
	TaskStatusPending   = "PENDING"
	TaskStatusApproved  = "APPROVED"
	TaskStatusRejected  = "REJECTED"
	TaskStatusCancelled = "CANCELLED"
)

// Decisions
const (
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
)

// Actor roles
const (
	RoleOwner  = "OWNER"
	RoleSME    = "CYBER_SME"
	RoleSystem = "SYSTEM"
)

// Event types
const (
	EventSubmit            = "SUBMIT"
	EventReviewRequested   = "REVIEW_REQUESTED"
	EventApprove           = "APPROVE"
	EventReject            = "REJECT"
	EventPublish           = "PUBLISH"
	EventPostActionRequest = "POST_ACTION_REQUEST"
	EventPostActionApprove = "POST_ACTION_APPROVE"
	EventPostActionReject  = "POST_ACTION_REJECT"
)
