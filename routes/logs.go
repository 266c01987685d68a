package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Petrobere4/rag-docs-demo/services"
	"github.com/Petrobere4/rag-docs-demo/utils"
)

const logListLimit = 50

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SetupLogRoutes wires the query-log audit endpoints.
func SetupLogRoutes(router *gin.Engine, exportService *services.ExportService) {
	logs := router.Group("/api/logs")

	logs.GET("", func(c *gin.Context) {
		entries, err := exportService.ExportLogs(c.Request.Context(), logListLimit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list query logs", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": entries})
	})

	logs.GET("/export", func(c *gin.Context) {
		format := c.DefaultQuery("format", "json")
		if format != "json" && format != "excel" {
			utils.RespondWithBadRequest(c, "format must be json or excel", nil)
			return
		}

		entries, err := exportService.ExportLogs(c.Request.Context(), logListLimit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list query logs", gin.H{"error": err.Error()})
			return
		}

		if format == "json" {
			c.JSON(http.StatusOK, gin.H{
				"export_date": time.Now().UTC(),
				"logs":        entries,
				"total":       len(entries),
			})
			return
		}

		buf, err := exportService.BuildWorkbook(entries)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export workbook", gin.H{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("query-logs-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	})
}
