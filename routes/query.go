package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Petrobere4/rag-docs-demo/internal/logger"
	"github.com/Petrobere4/rag-docs-demo/internal/telemetry"
	"github.com/Petrobere4/rag-docs-demo/models"
	"github.com/Petrobere4/rag-docs-demo/services"
	"github.com/Petrobere4/rag-docs-demo/utils"
)

// SetupQueryRoutes wires the question-answering endpoint.
func SetupQueryRoutes(router *gin.Engine, answerService *services.AnswerService, metrics *telemetry.Metrics) {
	router.POST("/api/query", func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_question",
				"Request body must contain a question", gin.H{"error": err.Error()})
			return
		}

		start := time.Now()
		result, err := answerService.Answer(c.Request.Context(), req.Question)
		if err != nil {
			logger.Warn("Query failed",
				"request_id", c.GetString("request_id"), "error", err)
			utils.RespondWithAppError(c, err)
			return
		}

		if metrics != nil {
			metrics.QueriesAnswered.Add(c.Request.Context(), 1)
			metrics.QueryLatency.Record(c.Request.Context(), time.Since(start).Seconds())
		}

		c.JSON(http.StatusOK, result)
	})
}
