package services

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"baseline-review-api/models"
	"baseline-review-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestWorkflow(t *testing.T, opts WorkflowOptions) (*WorkflowService, repository.BaselineStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.BaselineRequest{},
		&models.BaselineTask{},
		&models.BaselineEvent{},
	))

	store := repository.NewGormStore(db)
	return NewWorkflowService(store, nil, opts), store
}

func createDraft(t *testing.T, svc *WorkflowService, reviewerID, reviewerName string) *models.BaselineRequest {
	t.Helper()
	baseline, err := svc.CreateDraft(CreateBaselineRequest{
		Title:        "Server hardening baseline",
		OwnerID:      "u-owner",
		OwnerName:    "Olivia Owner",
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
	})
	require.NoError(t, err)
	return baseline
}

func pendingTaskID(t *testing.T, store repository.BaselineStore, assigneeID string) int {
	t.Helper()
	page, err := store.ListTaskSummaries(repository.TaskFilter{
		AssigneeID: assigneeID,
		Status:     models.TaskStatusPending,
	}, repository.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "expected exactly one pending task for %s", assigneeID)
	return page.Items[0].TaskID
}

func publishBaseline(t *testing.T, svc *WorkflowService, store repository.BaselineStore) *models.BaselineRequest {
	t.Helper()
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)
	published, err := svc.DecideTask(pendingTaskID(t, store, "u-sme"), TaskDecisionRequest{
		Decision: models.DecisionApprove,
	})
	require.NoError(t, err)
	return published
}

func TestCreateDraft(t *testing.T) {
	svc, _ := newTestWorkflow(t, WorkflowOptions{})

	baseline := createDraft(t, svc, "", "")

	assert.Equal(t, models.StatusDraft, baseline.Status)
	assert.Equal(t, models.ApprovalNotRequired, baseline.ApprovalStatus)
	assert.Equal(t, models.StepOwnerSubmit, baseline.CurrentStep)
	assert.Equal(t, 0, baseline.Version)
	assert.Nil(t, baseline.PendingActionType)
	assert.Nil(t, baseline.SubmittedAt)

	pattern := fmt.Sprintf(`^BR-%d-\d{4,}$`, time.Now().Year())
	assert.Regexp(t, regexp.MustCompile(pattern), baseline.RequestNo)

	loaded, err := svc.GetBaseline(baseline.RequestID)
	require.NoError(t, err)
	assert.Equal(t, baseline.RequestNo, loaded.RequestNo)
	assert.Equal(t, 0, loaded.Version)
}

func TestCreateDraftValidation(t *testing.T) {
	svc, _ := newTestWorkflow(t, WorkflowOptions{})

	_, err := svc.CreateDraft(CreateBaselineRequest{Title: "  ", OwnerID: "u-1", OwnerName: "A"})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.CreateDraft(CreateBaselineRequest{Title: "T", OwnerID: "", OwnerName: "A"})
	assert.ErrorAs(t, err, &validation)
}

func TestSubmitWithoutReviewerFails(t *testing.T) {
	svc, _ := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "", "")

	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	// Nothing was persisted: version and workflow fields are untouched,
	// and the timeline is still empty.
	loaded, err := svc.GetBaseline(baseline.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Version)
	assert.Equal(t, models.ApprovalNotRequired, loaded.ApprovalStatus)
	assert.Nil(t, loaded.SubmittedAt)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSubmitBaseline(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "", "")

	submitted, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{
		ReviewerID:   "u-sme",
		ReviewerName: "Sam Reviewer",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, submitted.Status)
	assert.Equal(t, models.ApprovalPending, submitted.ApprovalStatus)
	assert.Equal(t, models.StepSMEReview, submitted.CurrentStep)
	assert.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, 1, submitted.Version)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventSubmit, events[0].EventType)
	assert.Equal(t, models.RoleOwner, events[0].ActorRole)
	assert.Equal(t, models.EventReviewRequested, events[1].EventType)
	assert.Equal(t, models.RoleSystem, events[1].ActorRole)
	assert.Equal(t, "System", events[1].ActorName)
	assert.Nil(t, events[1].ActorID)

	taskID := pendingTaskID(t, store, "u-sme")
	task, err := store.FindTaskByID(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.StepSMEReview, task.StepCode)
	assert.Equal(t, models.RoleSME, task.AssigneeRole)
}

func TestSubmitBaselineUsesStoredReviewer(t *testing.T) {
	svc, _ := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")

	submitted, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)
	require.NotNil(t, submitted.ReviewerID)
	assert.Equal(t, "u-sme", *submitted.ReviewerID)
}

func TestSubmitNonDraftFails(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := publishBaseline(t, svc, store)

	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	var invalidState *InvalidStateError
	assert.ErrorAs(t, err, &invalidState)
}

func TestApproveInitialReview(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)

	decided, err := svc.DecideTask(pendingTaskID(t, store, "u-sme"), TaskDecisionRequest{
		Decision: models.DecisionApprove,
		Comment:  "looks good",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPublished, decided.Status)
	assert.Equal(t, models.ApprovalApproved, decided.ApprovalStatus)
	assert.Equal(t, models.StepEnd, decided.CurrentStep)
	assert.NotNil(t, decided.PublishedAt)
	assert.NotNil(t, decided.LastReviewedAt)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, models.EventApprove, events[2].EventType)
	assert.Equal(t, "Approved baseline request: looks good", events[2].Message)
	assert.Equal(t, models.EventPublish, events[3].EventType)
	assert.Equal(t, models.RoleSystem, events[3].ActorRole)
}

func TestRejectInitialReview(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)

	decided, err := svc.DecideTask(pendingTaskID(t, store, "u-sme"), TaskDecisionRequest{
		Decision: models.DecisionReject,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, decided.Status)
	assert.Equal(t, models.ApprovalRejected, decided.ApprovalStatus)
	assert.Equal(t, models.StepEnd, decided.CurrentStep)
	assert.Nil(t, decided.PublishedAt)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.EventReject, events[2].EventType)
	assert.Equal(t, "Rejected baseline request", events[2].Message)
}

func TestRejectWithResubmitOption(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{ResubmitOnReject: true})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)

	decided, err := svc.DecideTask(pendingTaskID(t, store, "u-sme"), TaskDecisionRequest{
		Decision: models.DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StepOwnerSubmit, decided.CurrentStep)
	assert.Equal(t, models.ApprovalRejected, decided.ApprovalStatus)

	// The owner can submit again.
	resubmitted, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, resubmitted.ApprovalStatus)
}

func TestDecideTaskTwiceFails(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)

	taskID := pendingTaskID(t, store, "u-sme")
	_, err = svc.DecideTask(taskID, TaskDecisionRequest{Decision: models.DecisionApprove})
	require.NoError(t, err)

	before, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)

	_, err = svc.DecideTask(taskID, TaskDecisionRequest{Decision: models.DecisionReject})
	var invalidState *InvalidStateError
	require.ErrorAs(t, err, &invalidState)

	after, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestDecideTaskValidation(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)

	taskID := pendingTaskID(t, store, "u-sme")
	_, err = svc.DecideTask(taskID, TaskDecisionRequest{Decision: "MAYBE"})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.DecideTask(99999, TaskDecisionRequest{Decision: models.DecisionApprove})
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	// An unknown task wins over a bad decision.
	_, err = svc.DecideTask(99999, TaskDecisionRequest{Decision: "MAYBE"})
	assert.ErrorAs(t, err, &notFound)

	// A decided task wins over a bad decision.
	_, err = svc.DecideTask(taskID, TaskDecisionRequest{Decision: models.DecisionApprove})
	require.NoError(t, err)
	_, err = svc.DecideTask(taskID, TaskDecisionRequest{Decision: "MAYBE"})
	var invalidState *InvalidStateError
	assert.ErrorAs(t, err, &invalidState)
}

func TestDecideTaskConcurrentDeciders(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)
	taskID := pendingTaskID(t, store, "u-sme")

	decisions := []string{models.DecisionApprove, models.DecisionReject}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i := range decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.DecideTask(taskID, TaskDecisionRequest{Decision: decisions[i]})
		}(i)
	}
	wg.Wait()

	// Exactly one decider wins; the loser gets a conflict-class error.
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var invalidState *InvalidStateError
		if !errors.As(err, &invalidState) {
			assert.ErrorIs(t, err, repository.ErrConcurrencyConflict)
		}
	}
	assert.Equal(t, 1, successes)

	task, err := store.FindTaskByID(taskID)
	require.NoError(t, err)
	assert.NotEqual(t, models.TaskStatusPending, task.Status)

	// The request reflects exactly one applied decision.
	loaded, err := svc.GetBaseline(baseline.RequestID)
	require.NoError(t, err)
	if task.Status == models.TaskStatusApproved {
		assert.Equal(t, models.StatusPublished, loaded.Status)
		assert.Equal(t, models.ApprovalApproved, loaded.ApprovalStatus)
	} else {
		assert.Equal(t, models.StatusDraft, loaded.Status)
		assert.Equal(t, models.ApprovalRejected, loaded.ApprovalStatus)
	}
}

func TestDecideTaskUnsupportedStep(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")

	rogue := &models.BaselineTask{
		RequestID:    baseline.RequestID,
		StepCode:     "LEGAL_REVIEW",
		AssigneeRole: models.RoleSME,
		AssigneeID:   "u-sme",
		AssigneeName: "Sam Reviewer",
		Status:       models.TaskStatusPending,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.SaveTask(rogue))

	_, err := svc.DecideTask(rogue.TaskID, TaskDecisionRequest{Decision: models.DecisionApprove})
	var unsupported *UnsupportedStepError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "LEGAL_REVIEW", unsupported.StepCode)

	// The task is untouched and no events were written.
	stored, err := store.FindTaskByID(rogue.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, stored.Status)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostActionRetireApproved(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := publishBaseline(t, svc, store)

	requested, err := svc.RequestPostAction(baseline.RequestID, PostActionRequest{
		ActionType: "retire",
		Reason:     "superseded by v2",
	})
	require.NoError(t, err)
	require.NotNil(t, requested.PendingActionType)
	assert.Equal(t, models.PendingActionRetire, *requested.PendingActionType)
	assert.Equal(t, models.StatusPublished, requested.Status)

	decided, err := svc.DecideTask(pendingTaskID(t, store, "u-sme"), TaskDecisionRequest{
		Decision: models.DecisionApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRetired, decided.Status)
	assert.Nil(t, decided.PendingActionType)
	assert.NotNil(t, decided.RetiredAt)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, models.EventPostActionApprove, last.EventType)
	assert.Equal(t, "Approved RETIRE request", last.Message)

	requestEvent := events[len(events)-2]
	assert.Equal(t, models.EventPostActionRequest, requestEvent.EventType)
	assert.Equal(t, "Requested RETIRE: superseded by v2", requestEvent.Message)
}

func TestPostActionRejectedStaysPublished(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})
	baseline := publishBaseline(t, svc, store)

	_, err := svc.RequestPostAction(baseline.RequestID, PostActionRequest{ActionType: models.PendingActionDelete})
	require.NoError(t, err)

	decided, err := svc.DecideTask(pendingTaskID(t, store, "u-sme"), TaskDecisionRequest{
		Decision: models.DecisionReject,
		Comment:  "still referenced by audits",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPublished, decided.Status)
	assert.Nil(t, decided.PendingActionType)
	assert.Nil(t, decided.RetiredAt)

	events, err := svc.GetTimeline(baseline.RequestID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, models.EventPostActionReject, last.EventType)
	assert.Equal(t, "Rejected DELETE request: still referenced by audits", last.Message)
}

func TestRequestPostActionGuards(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})

	draft := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.RequestPostAction(draft.RequestID, PostActionRequest{ActionType: models.PendingActionRetire})
	var invalidState *InvalidStateError
	assert.ErrorAs(t, err, &invalidState)

	published := publishBaseline(t, svc, store)
	_, err = svc.RequestPostAction(published.RequestID, PostActionRequest{ActionType: "ARCHIVE"})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.RequestPostAction(published.RequestID, PostActionRequest{ActionType: models.PendingActionRetire})
	require.NoError(t, err)

	// Only one pending post-action at a time.
	_, err = svc.RequestPostAction(published.RequestID, PostActionRequest{ActionType: models.PendingActionDelete})
	assert.ErrorAs(t, err, &invalidState)
}

func TestListBaselinesFilters(t *testing.T) {
	svc, store := newTestWorkflow(t, WorkflowOptions{})

	published := publishBaseline(t, svc, store)
	_ = createDraft(t, svc, "", "")

	page, err := svc.ListBaselines(repository.RequestFilter{Status: "published"}, repository.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, published.RequestNo, page.Items[0].RequestNo)
	assert.Equal(t, models.StatusPublished, page.Items[0].Status)

	page, err = svc.ListBaselines(repository.RequestFilter{Status: models.StatusDraft}, repository.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StatusDraft, page.Items[0].Status)

	page, err = svc.ListBaselines(repository.RequestFilter{}, repository.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 2, page.Total)
}

func TestListMyTasksDefaults(t *testing.T) {
	svc, _ := newTestWorkflow(t, WorkflowOptions{})
	baseline := createDraft(t, svc, "u-sme", "Sam Reviewer")
	_, err := svc.SubmitBaseline(baseline.RequestID, SubmitBaselineRequest{})
	require.NoError(t, err)

	page, err := svc.ListMyTasks(repository.TaskFilter{
		AssigneeID: " u-sme ",
		Status:     "pending",
	}, repository.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StepSMEReview, page.Items[0].StepCode)
	assert.Equal(t, baseline.RequestID, page.Items[0].RequestID)
}

func TestGetTimelineUnknownBaseline(t *testing.T) {
	svc, _ := newTestWorkflow(t, WorkflowOptions{})

	_, err := svc.GetTimeline(4242)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
