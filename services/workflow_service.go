package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"baseline-review-api/models"
	"baseline-review-api/repository"

	"github.com/google/uuid"
)

const systemActorName = "System"

// CreateBaselineRequest is the payload for creating a draft.
type CreateBaselineRequest struct {
	Title        string `json:"title" binding:"required"`
	OwnerID      string `json:"owner_id" binding:"required"`
	OwnerName    string `json:"owner_name" binding:"required"`
	ReviewerID   string `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name"`
}

// SubmitBaselineRequest is the payload for submitting a draft for review.
type SubmitBaselineRequest struct {
	ReviewerID   string `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name"`
	ActorID      string `json:"actor_id"`
	ActorName    string `json:"actor_name"`
	ActorRole    string `json:"actor_role"`
}

// PostActionRequest asks for review of a post-publish action (RETIRE/DELETE).
type PostActionRequest struct {
	ActionType   string `json:"action_type" binding:"required"`
	ReviewerID   string `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name"`
	Reason       string `json:"reason"`
	ActorID      string `json:"actor_id"`
	ActorName    string `json:"actor_name"`
	ActorRole    string `json:"actor_role"`
}

// TaskDecisionRequest records an APPROVE/REJECT decision on a pending task.
type TaskDecisionRequest struct {
	Decision  string `json:"decision" binding:"required"`
	Comment   string `json:"comment"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	ActorRole string `json:"actor_role"`
}

// WorkflowOptions tunes engine behavior.
type WorkflowOptions struct {
	// ResubmitOnReject resets currentStep to OWNER_SUBMIT when the initial
	// review is rejected so the owner can fix and resubmit. Off by default:
	// the stock behavior parks a rejected baseline at END.
	ResubmitOnReject bool
}

// WorkflowService drives the baseline approval state machine. It is the sole
// writer of baseline_request, baseline_task and baseline_event; every mutating
// operation runs inside one store transaction.
type WorkflowService struct {
	store    repository.BaselineStore
	notifier Notifier
	opts     WorkflowOptions
}

func NewWorkflowService(store repository.BaselineStore, notifier Notifier, opts WorkflowOptions) *WorkflowService {
	return &WorkflowService{store: store, notifier: notifier, opts: opts}
}

// CreateDraft creates a new baseline in DRAFT with a final request number
// derived from the allocated id.
func (s *WorkflowService) CreateDraft(req CreateBaselineRequest) (*models.BaselineRequest, error) {
	title := strings.TrimSpace(req.Title)
	ownerID := strings.TrimSpace(req.OwnerID)
	ownerName := strings.TrimSpace(req.OwnerName)
	if title == "" || ownerID == "" || ownerName == "" {
		return nil, validationErrorf("title, owner_id and owner_name are required")
	}

	now := time.Now()
	baseline := &models.BaselineRequest{
		RequestNo:      tempRequestNo(),
		Title:          title,
		OwnerID:        ownerID,
		OwnerName:      ownerName,
		ReviewerID:     trimToNull(req.ReviewerID),
		ReviewerName:   trimToNull(req.ReviewerName),
		Status:         models.StatusDraft,
		ApprovalStatus: models.ApprovalNotRequired,
		CurrentStep:    models.StepOwnerSubmit,
		Version:        0,
		CreatedBy:      ownerID,
		CreatedAt:      now,
		UpdatedBy:      ownerID,
		UpdatedAt:      now,
	}

	err := s.store.InTransaction(func(tx repository.BaselineStore) error {
		if err := tx.SaveRequest(baseline); err != nil {
			return err
		}
		baseline.RequestNo = formatRequestNo(baseline.RequestID, now)
		return tx.UpdateRequestNo(baseline.RequestID, baseline.RequestNo)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Baseline draft created requestId=%d requestNo=%s ownerId=%s",
		baseline.RequestID, baseline.RequestNo, baseline.OwnerID)
	return baseline, nil
}

// SubmitBaseline moves a draft into SME review and opens the review task.
func (s *WorkflowService) SubmitBaseline(id int, req SubmitBaselineRequest) (*models.BaselineRequest, error) {
	var baseline *models.BaselineRequest
	var task *models.BaselineTask

	err := s.store.InTransaction(func(tx repository.BaselineStore) error {
		var err error
		baseline, err = s.loadBaseline(tx, id)
		if err != nil {
			return err
		}

		if baseline.Status != models.StatusDraft || baseline.CurrentStep != models.StepOwnerSubmit {
			return invalidStateErrorf("baseline %s is not in a submittable draft state", baseline.RequestNo)
		}

		reviewerID := resolveValue(req.ReviewerID, baseline.ReviewerID)
		reviewerName := resolveValue(req.ReviewerName, baseline.ReviewerName)
		if reviewerID == "" || reviewerName == "" {
			return validationErrorf("reviewer information is required to submit")
		}

		now := time.Now()
		act := resolveActor(req.ActorID, req.ActorName, req.ActorRole,
			baseline.OwnerID, baseline.OwnerName, models.RoleOwner)

		baseline.ReviewerID = &reviewerID
		baseline.ReviewerName = &reviewerName
		baseline.ApprovalStatus = models.ApprovalPending
		baseline.CurrentStep = models.StepSMEReview
		baseline.SubmittedAt = &now
		baseline.UpdatedBy = act.idOrEmpty()
		baseline.UpdatedAt = now
		if err := tx.SaveRequest(baseline); err != nil {
			return err
		}

		task = &models.BaselineTask{
			RequestID:    baseline.RequestID,
			StepCode:     models.StepSMEReview,
			AssigneeRole: models.RoleSME,
			AssigneeID:   reviewerID,
			AssigneeName: reviewerName,
			Status:       models.TaskStatusPending,
			CreatedAt:    now,
		}
		if err := tx.SaveTask(task); err != nil {
			return err
		}

		if err := saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventSubmit,
			act, "Submitted baseline request", now); err != nil {
			return err
		}
		return saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventReviewRequested,
			systemActor(), "Review requested for baseline", now)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Baseline submitted requestId=%d requestNo=%s reviewerId=%s",
		baseline.RequestID, baseline.RequestNo, task.AssigneeID)
	s.notifyReviewRequested(baseline, task)
	return baseline, nil
}

// RequestPostAction records a RETIRE/DELETE request against a published
// baseline and opens its review task.
func (s *WorkflowService) RequestPostAction(id int, req PostActionRequest) (*models.BaselineRequest, error) {
	actionType := normalizeUpper(req.ActionType)
	if actionType != models.PendingActionRetire && actionType != models.PendingActionDelete {
		return nil, validationErrorf("unsupported post-action type: %s", req.ActionType)
	}

	var baseline *models.BaselineRequest
	var task *models.BaselineTask

	err := s.store.InTransaction(func(tx repository.BaselineStore) error {
		var err error
		baseline, err = s.loadBaseline(tx, id)
		if err != nil {
			return err
		}

		if baseline.Status != models.StatusPublished {
			return invalidStateErrorf("post-action requests are only allowed for published baselines")
		}
		if baseline.PendingActionType != nil {
			return invalidStateErrorf("a post-action request is already pending for baseline %s", baseline.RequestNo)
		}

		reviewerID := resolveValue(req.ReviewerID, baseline.ReviewerID)
		reviewerName := resolveValue(req.ReviewerName, baseline.ReviewerName)
		if reviewerID == "" || reviewerName == "" {
			return validationErrorf("reviewer information is required for post-action review")
		}

		now := time.Now()
		act := resolveActor(req.ActorID, req.ActorName, req.ActorRole,
			baseline.OwnerID, baseline.OwnerName, models.RoleOwner)

		baseline.PendingActionType = &actionType
		baseline.ReviewerID = &reviewerID
		baseline.ReviewerName = &reviewerName
		baseline.UpdatedBy = act.idOrEmpty()
		baseline.UpdatedAt = now
		if err := tx.SaveRequest(baseline); err != nil {
			return err
		}

		task = &models.BaselineTask{
			RequestID:    baseline.RequestID,
			StepCode:     models.StepPostActionReview,
			AssigneeRole: models.RoleSME,
			AssigneeID:   reviewerID,
			AssigneeName: reviewerName,
			Status:       models.TaskStatusPending,
			CreatedAt:    now,
		}
		if err := tx.SaveTask(task); err != nil {
			return err
		}

		message := fmt.Sprintf("Requested %s", actionType)
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			message = fmt.Sprintf("Requested %s: %s", actionType, reason)
		}
		return saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventPostActionRequest,
			act, message, now)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Baseline post-action requested requestId=%d requestNo=%s action=%s",
		baseline.RequestID, baseline.RequestNo, actionType)
	s.notifyReviewRequested(baseline, task)
	return baseline, nil
}

// DecideTask applies an APPROVE/REJECT decision to a pending task and runs
// the step-specific transition on the owning request.
func (s *WorkflowService) DecideTask(taskID int, req TaskDecisionRequest) (*models.BaselineRequest, error) {
	decision := normalizeUpper(req.Decision)

	var baseline *models.BaselineRequest

	err := s.store.InTransaction(func(tx repository.BaselineStore) error {
		task, err := tx.FindTaskByID(taskID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundErrorf("task not found for id=%d", taskID)
			}
			return err
		}

		if task.Status != models.TaskStatusPending {
			return invalidStateErrorf("task %d is not pending and cannot be decided", taskID)
		}

		// Checked only once the task is known to exist and be pending.
		if decision != models.DecisionApprove && decision != models.DecisionReject {
			return validationErrorf("unsupported decision: %s", req.Decision)
		}

		apply, err := s.decisionHandlerFor(task.StepCode)
		if err != nil {
			return err
		}

		baseline, err = s.loadBaseline(tx, task.RequestID)
		if err != nil {
			return err
		}

		now := time.Now()
		act := resolveActor(req.ActorID, req.ActorName, req.ActorRole,
			task.AssigneeID, task.AssigneeName, models.RoleSME)

		task.Decision = &decision
		task.Comment = trimToNull(req.Comment)
		if decision == models.DecisionApprove {
			task.Status = models.TaskStatusApproved
		} else {
			task.Status = models.TaskStatusRejected
		}
		task.ActedAt = &now
		if err := tx.DecideTask(task); err != nil {
			if errors.Is(err, repository.ErrTaskNotPending) {
				return invalidStateErrorf("task %d is not pending and cannot be decided", taskID)
			}
			return err
		}

		return apply(tx, baseline, task, decision, req.Comment, act, now)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Task decision recorded taskId=%d requestId=%d decision=%s",
		taskID, baseline.RequestID, decision)
	return baseline, nil
}

// decisionHandler applies a step-specific request transition after the task
// row has been decided, inside the same transaction.
type decisionHandler func(tx repository.BaselineStore, baseline *models.BaselineRequest,
	task *models.BaselineTask, decision, comment string, act actor, now time.Time) error

func (s *WorkflowService) decisionHandlerFor(stepCode string) (decisionHandler, error) {
	switch stepCode {
	case models.StepSMEReview:
		return s.applyInitialReviewDecision, nil
	case models.StepPostActionReview:
		return s.applyPostActionDecision, nil
	default:
		return nil, &UnsupportedStepError{StepCode: stepCode}
	}
}

func (s *WorkflowService) applyInitialReviewDecision(tx repository.BaselineStore,
	baseline *models.BaselineRequest, task *models.BaselineTask,
	decision, comment string, act actor, now time.Time) error {

	baseline.LastReviewedAt = &now
	baseline.UpdatedBy = act.idOrEmpty()
	baseline.UpdatedAt = now

	if decision == models.DecisionApprove {
		baseline.ApprovalStatus = models.ApprovalApproved
		baseline.Status = models.StatusPublished
		baseline.CurrentStep = models.StepEnd
		baseline.PublishedAt = &now
		if err := tx.SaveRequest(baseline); err != nil {
			return err
		}

		if err := saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventApprove,
			act, decisionMessage("Approved baseline request", comment), now); err != nil {
			return err
		}
		return saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventPublish,
			systemActor(), "Published baseline", now)
	}

	baseline.ApprovalStatus = models.ApprovalRejected
	baseline.CurrentStep = models.StepEnd
	if s.opts.ResubmitOnReject {
		baseline.CurrentStep = models.StepOwnerSubmit
	}
	if baseline.Status != models.StatusRetired {
		baseline.Status = models.StatusDraft
	}
	if err := tx.SaveRequest(baseline); err != nil {
		return err
	}

	return saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventReject,
		act, decisionMessage("Rejected baseline request", comment), now)
}

func (s *WorkflowService) applyPostActionDecision(tx repository.BaselineStore,
	baseline *models.BaselineRequest, task *models.BaselineTask,
	decision, comment string, act actor, now time.Time) error {

	if baseline.PendingActionType == nil {
		return invalidStateErrorf("no pending post-action found for baseline %s", baseline.RequestNo)
	}
	actionType := *baseline.PendingActionType

	baseline.LastReviewedAt = &now
	baseline.UpdatedBy = act.idOrEmpty()
	baseline.UpdatedAt = now
	baseline.PendingActionType = nil

	if decision == models.DecisionApprove {
		baseline.Status = models.StatusRetired
		baseline.RetiredAt = &now
		if err := tx.SaveRequest(baseline); err != nil {
			return err
		}
		return saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventPostActionApprove,
			act, decisionMessage("Approved "+actionType+" request", comment), now)
	}

	if err := tx.SaveRequest(baseline); err != nil {
		return err
	}
	return saveEvent(tx, baseline.RequestID, &task.TaskID, models.EventPostActionReject,
		act, decisionMessage("Rejected "+actionType+" request", comment), now)
}

// GetBaseline loads one request by id.
func (s *WorkflowService) GetBaseline(id int) (*models.BaselineRequest, error) {
	return s.loadBaseline(s.store, id)
}

// GetBaselineByNo loads one request by its human-readable number.
func (s *WorkflowService) GetBaselineByNo(requestNo string) (*models.BaselineRequest, error) {
	baseline, err := s.store.FindRequestByNo(strings.TrimSpace(requestNo))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundErrorf("baseline not found for requestNo=%s", requestNo)
		}
		return nil, err
	}
	return baseline, nil
}

// GetTimeline returns the audit trail of a request in insert order.
func (s *WorkflowService) GetTimeline(id int) ([]models.BaselineEvent, error) {
	if _, err := s.loadBaseline(s.store, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(id)
}

// ListBaselines returns summary projections matching the filter.
func (s *WorkflowService) ListBaselines(filter repository.RequestFilter, page repository.PageRequest) (models.Page[models.BaselineSummary], error) {
	filter.Status = normalizeUpper(filter.Status)
	filter.ApprovalStatus = normalizeUpper(filter.ApprovalStatus)
	filter.OwnerID = strings.TrimSpace(filter.OwnerID)
	filter.ReviewerID = strings.TrimSpace(filter.ReviewerID)
	filter.PendingActionType = normalizeUpper(filter.PendingActionType)

	requests, err := s.store.ListRequests(filter, page)
	if err != nil {
		return models.Page[models.BaselineSummary]{}, err
	}

	result := models.Page[models.BaselineSummary]{
		Items: make([]models.BaselineSummary, 0, len(requests.Items)),
		Total: requests.Total,
		Page:  requests.Page,
		Size:  requests.Size,
	}
	for i := range requests.Items {
		result.Items = append(result.Items, models.SummaryFromRequest(&requests.Items[i]))
	}
	return result, nil
}

// ListMyTasks returns the task worklist for an assignee.
func (s *WorkflowService) ListMyTasks(filter repository.TaskFilter, page repository.PageRequest) (models.Page[models.BaselineTaskSummary], error) {
	filter.AssigneeID = strings.TrimSpace(filter.AssigneeID)
	filter.AssigneeRole = normalizeUpper(filter.AssigneeRole)
	filter.Status = normalizeUpper(filter.Status)
	filter.StepCode = normalizeUpper(filter.StepCode)
	return s.store.ListTaskSummaries(filter, page)
}

func (s *WorkflowService) loadBaseline(store repository.BaselineStore, id int) (*models.BaselineRequest, error) {
	baseline, err := store.FindRequestByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundErrorf("baseline not found for id=%d", id)
		}
		return nil, err
	}
	return baseline, nil
}

func (s *WorkflowService) notifyReviewRequested(baseline *models.BaselineRequest, task *models.BaselineTask) {
	if s.notifier == nil || task == nil {
		return
	}
	s.notifier.ReviewRequested(baseline, task)
}

// actor identifies who performed a workflow operation for audit purposes.
type actor struct {
	role string
	id   *string
	name string
}

func (a actor) idOrEmpty() string {
	if a.id == nil {
		return ""
	}
	return *a.id
}

func systemActor() actor {
	return actor{role: models.RoleSystem, id: nil, name: systemActorName}
}

// resolveActor prefers explicit actor fields from the payload and falls back
// to the record's natural owner/assignee with a step-appropriate default role.
func resolveActor(actorID, actorName, actorRole, fallbackID, fallbackName, fallbackRole string) actor {
	id := strings.TrimSpace(actorID)
	if id == "" {
		id = strings.TrimSpace(fallbackID)
	}
	name := strings.TrimSpace(actorName)
	if name == "" {
		name = strings.TrimSpace(fallbackName)
	}
	if name == "" {
		name = systemActorName
	}
	role := normalizeUpper(actorRole)
	if role == "" {
		role = fallbackRole
	}
	return actor{role: role, id: trimToNull(id), name: name}
}

func saveEvent(tx repository.BaselineStore, requestID int, taskID *int,
	eventType string, act actor, message string, now time.Time) error {
	return tx.AppendEvent(&models.BaselineEvent{
		RequestID: requestID,
		TaskID:    taskID,
		EventType: eventType,
		ActorRole: act.role,
		ActorID:   act.id,
		ActorName: act.name,
		Message:   message,
		CreatedAt: now,
	})
}

func decisionMessage(base, comment string) string {
	if c := strings.TrimSpace(comment); c != "" {
		return base + ": " + c
	}
	return base
}

func trimToNull(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func resolveValue(provided string, fallback *string) string {
	if v := strings.TrimSpace(provided); v != "" {
		return v
	}
	if fallback != nil {
		return strings.TrimSpace(*fallback)
	}
	return ""
}

func normalizeUpper(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func tempRequestNo() string {
	return "TEMP-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func formatRequestNo(id int, now time.Time) string {
	return fmt.Sprintf("BR-%d-%04d", now.Year(), id)
}
