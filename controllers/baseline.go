package controllers

import (
	"net/http"

	"baseline-review-api/repository"
	"baseline-review-api/services"
	"baseline-review-api/utils"

	"github.com/gin-gonic/gin"
)

// GetBaselines lists baseline summaries with optional exact-match filters.
// GET /api/v1/baselines?status=&approvalStatus=&ownerId=&reviewerId=&pendingActionType=&page=&size=&sort=&dir=
func GetBaselines(c *gin.Context) {
	filter := repository.RequestFilter{
		Status:            c.Query("status"),
		ApprovalStatus:    c.Query("approvalStatus"),
		OwnerID:           c.Query("ownerId"),
		ReviewerID:        c.Query("reviewerId"),
		PendingActionType: c.Query("pendingActionType"),
	}

	result, err := workflow.ListBaselines(filter, pageFromQuery(c))
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

// GetBaseline returns one baseline request by id.
func GetBaseline(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	baseline, err := workflow.GetBaseline(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "baseline": baseline})
}

// GetBaselineByNo returns one baseline request by its request number.
func GetBaselineByNo(c *gin.Context) {
	baseline, err := workflow.GetBaselineByNo(c.Param("requestNo"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "baseline": baseline})
}

// GetBaselineTimeline returns the full audit trail of a baseline in order.
func GetBaselineTimeline(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	events, err := workflow.GetTimeline(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "events": events, "total": len(events)})
}

// CreateBaseline creates a new draft. Owner defaults to the authenticated user.
func CreateBaseline(c *gin.Context) {
	var req services.CreateBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req.Title = utils.SanitizeInput(req.Title)
	if req.OwnerID == "" {
		req.OwnerID = contextString(c, "userID")
		req.OwnerName = contextString(c, "userName")
	}

	baseline, err := workflow.CreateDraft(req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "baseline": baseline})
}

// SubmitBaseline moves a draft into SME review.
func SubmitBaseline(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitBaselineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	fillActorFromContext(c, &req.ActorID, &req.ActorName)

	baseline, err := workflow.SubmitBaseline(id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "baseline": baseline})
}

// RequestPostAction asks for review of a RETIRE/DELETE on a published baseline.
func RequestPostAction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.PostActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	fillActorFromContext(c, &req.ActorID, &req.ActorName)

	baseline, err := workflow.RequestPostAction(id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "baseline": baseline})
}

// fillActorFromContext defaults the audit actor to the authenticated user
// when the payload does not name one.
func fillActorFromContext(c *gin.Context, actorID, actorName *string) {
	if *actorID == "" {
		*actorID = contextString(c, "userID")
	}
	if *actorName == "" {
		*actorName = contextString(c, "userName")
	}
}
