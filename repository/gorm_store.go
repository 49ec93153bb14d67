package repository

import (
	"errors"
	"strings"

	"baseline-review-api/models"

	"gorm.io/gorm"
)

// GormStore implements BaselineStore on top of a *gorm.DB handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) InTransaction(fn func(BaselineStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) SaveRequest(req *models.BaselineRequest) error {
	if req.RequestID == 0 {
		return s.db.Create(req).Error
	}

	readVersion := req.Version
	result := s.db.Model(&models.BaselineRequest{}).
		Where("request_id = ? AND version = ?", req.RequestID, readVersion).
		Updates(map[string]interface{}{
			"request_no":          req.RequestNo,
			"title":               req.Title,
			"owner_id":            req.OwnerID,
			"owner_name":          req.OwnerName,
			"reviewer_id":         req.ReviewerID,
			"reviewer_name":       req.ReviewerName,
			"status":              req.Status,
			"approval_status":     req.ApprovalStatus,
			"current_step":        req.CurrentStep,
			"pending_action_type": req.PendingActionType,
			"submitted_at":        req.SubmittedAt,
			"last_reviewed_at":    req.LastReviewedAt,
			"published_at":        req.PublishedAt,
			"retired_at":          req.RetiredAt,
			"updated_by":          req.UpdatedBy,
			"updated_at":          req.UpdatedAt,
			"version":             readVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	req.Version = readVersion + 1
	return nil
}

func (s *GormStore) UpdateRequestNo(requestID int, requestNo string) error {
	result := s.db.Model(&models.BaselineRequest{}).
		Where("request_id = ?", requestID).
		Update("request_no", requestNo)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindRequestByID(id int) (*models.BaselineRequest, error) {
	var req models.BaselineRequest
	if err := s.db.First(&req, "request_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) FindRequestByNo(requestNo string) (*models.BaselineRequest, error) {
	var req models.BaselineRequest
	if err := s.db.First(&req, "request_no = ?", requestNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

var requestSortWhitelist = map[string]bool{
	"created_at": true, "updated_at": true, "request_no": true,
	"title": true, "status": true, "published_at": true,
}

func safeRequestSort(s string) string {
	col := strings.ToLower(strings.TrimSpace(s))
	if requestSortWhitelist[col] {
		return col
	}
	return "updated_at"
}

func (s *GormStore) ListRequests(filter RequestFilter, page PageRequest) (models.Page[models.BaselineRequest], error) {
	page = page.Normalize()
	result := models.Page[models.BaselineRequest]{Page: page.Page, Size: page.Size}

	q := s.db.Model(&models.BaselineRequest{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ApprovalStatus != "" {
		q = q.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.ReviewerID != "" {
		q = q.Where("reviewer_id = ?", filter.ReviewerID)
	}
	if filter.PendingActionType != "" {
		q = q.Where("pending_action_type = ?", filter.PendingActionType)
	}

	if err := q.Count(&result.Total).Error; err != nil {
		return result, err
	}

	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	err := q.Order(safeRequestSort(page.Sort) + " " + dir).
		Order("request_id DESC").
		Limit(page.Size).
		Offset((page.Page - 1) * page.Size).
		Find(&result.Items).Error
	return result, err
}

func (s *GormStore) SaveTask(task *models.BaselineTask) error {
	return s.db.Create(task).Error
}

func (s *GormStore) DecideTask(task *models.BaselineTask) error {
	result := s.db.Model(&models.BaselineTask{}).
		Where("task_id = ? AND status = ?", task.TaskID, models.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":   task.Status,
			"decision": task.Decision,
			"comment":  task.Comment,
			"acted_at": task.ActedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotPending
	}
	return nil
}

func (s *GormStore) FindTaskByID(id int) (*models.BaselineTask, error) {
	var task models.BaselineTask
	if err := s.db.First(&task, "task_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

const taskSummarySelect = "t.task_id, t.request_id, t.step_code, t.assignee_role, t.assignee_id, " +
	"t.assignee_name, t.status, t.decision, t.comment, t.created_at, t.acted_at, " +
	"r.request_no, r.title, r.status AS baseline_status, r.approval_status, " +
	"r.pending_action_type, r.current_step"

func (s *GormStore) ListTaskSummaries(filter TaskFilter, page PageRequest) (models.Page[models.BaselineTaskSummary], error) {
	page = page.Normalize()
	result := models.Page[models.BaselineTaskSummary]{Page: page.Page, Size: page.Size}

	q := s.db.Table("baseline_task AS t").
		Joins("JOIN baseline_request AS r ON r.request_id = t.request_id")
	if filter.AssigneeID != "" {
		q = q.Where("t.assignee_id = ?", filter.AssigneeID)
	}
	if filter.AssigneeRole != "" {
		q = q.Where("t.assignee_role = ?", filter.AssigneeRole)
	}
	if filter.Status != "" {
		q = q.Where("t.status = ?", filter.Status)
	}
	if filter.StepCode != "" {
		q = q.Where("t.step_code = ?", filter.StepCode)
	}

	if err := q.Count(&result.Total).Error; err != nil {
		return result, err
	}

	err := q.Select(taskSummarySelect).
		Order("t.created_at DESC").
		Order("t.task_id DESC").
		Limit(page.Size).
		Offset((page.Page - 1) * page.Size).
		Scan(&result.Items).Error
	return result, err
}

func (s *GormStore) AppendEvent(event *models.BaselineEvent) error {
	return s.db.Create(event).Error
}

func (s *GormStore) ListEvents(requestID int) ([]models.BaselineEvent, error) {
	var events []models.BaselineEvent
	err := s.db.Where("request_id = ?", requestID).
		Order("created_at ASC").
		Order("event_id ASC").
		Find(&events).Error
	return events, err
}
