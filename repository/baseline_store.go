package repository

import (
	"errors"

	"baseline-review-api/models"
)

var (
	// ErrNotFound is returned when a request or task id is unknown.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrencyConflict is returned when a request write carries a stale
	// version; the caller read the row before a concurrent writer changed it.
	ErrConcurrencyConflict = errors.New("record was modified concurrently")

	// ErrTaskNotPending is returned when a decision write finds the task no
	// longer PENDING; exactly one of two racing deciders gets the row.
	ErrTaskNotPending = errors.New("task is not pending")
)

// RequestFilter narrows baseline listings. Empty fields are not constrained;
// set fields are exact matches.
type RequestFilter struct {
	Status            string
	ApprovalStatus    string
	OwnerID           string
	ReviewerID        string
	PendingActionType string
}

// TaskFilter narrows task worklist queries.
type TaskFilter struct {
	AssigneeID   string
	AssigneeRole string
	Status       string
	StepCode     string
}

// PageRequest carries 1-based pagination plus an optional sort column.
type PageRequest struct {
	Page int
	Size int
	Sort string
	Desc bool
}

// Normalize clamps page/size to usable values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	return p
}

// BaselineStore is the persistence contract consumed by the workflow engine.
// The engine is the sole writer of all three baseline tables.
type BaselineStore interface {
	// SaveRequest inserts a new request (RequestID zero) or updates an
	// existing one guarded by its version column. On success the in-memory
	// version is advanced to the stored one.
	SaveRequest(req *models.BaselineRequest) error
	// UpdateRequestNo assigns the final human-readable number to a newly
	// inserted request. The write does not advance the version column.
	UpdateRequestNo(requestID int, requestNo string) error
	FindRequestByID(id int) (*models.BaselineRequest, error)
	FindRequestByNo(requestNo string) (*models.BaselineRequest, error)
	ListRequests(filter RequestFilter, page PageRequest) (models.Page[models.BaselineRequest], error)

	SaveTask(task *models.BaselineTask) error
	// DecideTask writes the decision fields with a compare-and-swap on
	// status=PENDING. ErrTaskNotPending means another decider won the race
	// or the task was already decided.
	DecideTask(task *models.BaselineTask) error
	FindTaskByID(id int) (*models.BaselineTask, error)
	ListTaskSummaries(filter TaskFilter, page PageRequest) (models.Page[models.BaselineTaskSummary], error)

	// AppendEvent is insert-only; events are never updated or deleted.
	AppendEvent(event *models.BaselineEvent) error
	// ListEvents returns the full audit trail of a request in insert order.
	ListEvents(requestID int) ([]models.BaselineEvent, error)

	// InTransaction runs fn against a store bound to one database
	// transaction; all writes inside commit or roll back together.
	InTransaction(fn func(BaselineStore) error) error
}
