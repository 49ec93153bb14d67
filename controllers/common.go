package controllers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"baseline-review-api/config"
	"baseline-review-api/repository"
	"baseline-review-api/services"

	"github.com/gin-gonic/gin"
)

var workflow *services.WorkflowService

// InitWorkflow wires the engine to the shared DB handle. Must run after
// config.InitDB.
func InitWorkflow() {
	store := repository.NewGormStore(config.DB)
	notifier := services.NewMailNotifier(config.DB)
	opts := services.WorkflowOptions{
		ResubmitOnReject: strings.ToLower(os.Getenv("BASELINE_RESUBMIT_ON_REJECT")) == "true",
	}
	workflow = services.NewWorkflowService(store, notifier, opts)
}

// respondServiceError maps engine failures onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	var invalidState *services.InvalidStateError
	var unsupported *services.UnsupportedStepError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Message})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusConflict, gin.H{"error": invalidState.Message})
	case errors.Is(err, repository.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Baseline was modified concurrently, please retry"})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusInternalServerError, gin.H{"error": unsupported.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func parsePOS(q string, def int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func pageFromQuery(c *gin.Context) repository.PageRequest {
	return repository.PageRequest{
		Page: parsePOS(c.Query("page"), 1),
		Size: parsePOS(c.Query("size"), 20),
		Sort: c.Query("sort"),
		Desc: strings.ToUpper(c.DefaultQuery("dir", "DESC")) == "DESC",
	}
}

func contextString(c *gin.Context, key string) string {
	if value, exists := c.Get(key); exists {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
