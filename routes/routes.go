package routes

import (
	"baseline-review-api/controllers"
	"baseline-review-api/middleware"
	"baseline-review-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Baseline Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Baseline workflow
			baselines := protected.Group("/baselines")
			{
				baselines.GET("", controllers.GetBaselines)
				baselines.GET("/:id", controllers.GetBaseline)
				baselines.GET("/no/:requestNo", controllers.GetBaselineByNo)
				baselines.GET("/:id/timeline", controllers.GetBaselineTimeline)
				baselines.POST("", controllers.CreateBaseline)
				baselines.POST("/:id/submit", controllers.SubmitBaseline)
				baselines.POST("/:id/post-action/request", controllers.RequestPostAction)
			}

			// Review tasks
			tasks := protected.Group("/tasks")
			{
				tasks.GET("/my", controllers.GetMyTasks)

				// Only reviewers may decide tasks
				tasks.POST("/:taskId/decision", middleware.RequireRole(models.RoleSME), controllers.DecideTask)
			}
		}

	}

	// 404 handler for unmatched routes
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Endpoint not found"})
	})
}
