package controllers

import (
	"net/http"
	"strings"

	"baseline-review-api/models"
	"baseline-review-api/repository"
	"baseline-review-api/services"

	"github.com/gin-gonic/gin"
)

// GetMyTasks lists review tasks for an assignee, joined with their baselines.
// GET /api/v1/tasks/my?assigneeId=&assigneeRole=&status=&stepCode=&page=&size=
func GetMyTasks(c *gin.Context) {
	assigneeID := strings.TrimSpace(c.Query("assigneeId"))
	if assigneeID == "" {
		assigneeID = contextString(c, "userID")
	}
	if assigneeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assigneeId is required"})
		return
	}

	filter := repository.TaskFilter{
		AssigneeID:   assigneeID,
		AssigneeRole: c.DefaultQuery("assigneeRole", models.RoleSME),
		Status:       c.DefaultQuery("status", models.TaskStatusPending),
		StepCode:     c.Query("stepCode"),
	}

	result, err := workflow.ListMyTasks(filter, pageFromQuery(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Items,
		"meta": gin.H{
			"page":  result.Page,
			"size":  result.Size,
			"total": result.Total,
		},
	})
}

// DecideTask records an APPROVE/REJECT decision on a pending review task.
func DecideTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	var req services.TaskDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	fillActorFromContext(c, &req.ActorID, &req.ActorName)

	baseline, err := workflow.DecideTask(taskID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "baseline": baseline})
}
