package services

import (
	"fmt"
	"log"

	"baseline-review-api/config"
	"baseline-review-api/models"

	"gorm.io/gorm"
)

// Notifier is told when a review task has been assigned. Implementations are
// best-effort: a delivery failure must never fail the workflow operation.
type Notifier interface {
	ReviewRequested(baseline *models.BaselineRequest, task *models.BaselineTask)
}

// MailNotifier emails the assigned reviewer, resolving the address from the
// users table.
type MailNotifier struct {
	db *gorm.DB
}

func NewMailNotifier(db *gorm.DB) *MailNotifier {
	return &MailNotifier{db: db}
}

func (n *MailNotifier) ReviewRequested(baseline *models.BaselineRequest, task *models.BaselineTask) {
	var user models.User
	if err := n.db.Where("user_id = ? AND deleted_at IS NULL", task.AssigneeID).
		First(&user).Error; err != nil {
		log.Printf("Reviewer notification skipped: no user for assigneeId=%s", task.AssigneeID)
		return
	}

	subject := fmt.Sprintf("[Baseline Review] %s awaits your decision", baseline.RequestNo)
	body := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Baseline <strong>%s</strong> (&quot;%s&quot;) has a pending <strong>%s</strong> task assigned to you.</p>
<p>Please review it in the baseline console.</p>`,
		task.AssigneeName, baseline.RequestNo, baseline.Title, task.StepCode)

	if err := config.SendMail([]string{user.Email}, subject, body); err != nil {
		log.Printf("Failed to send reviewer notification for taskId=%d: %v", task.TaskID, err)
	}
}
