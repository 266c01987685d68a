package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Petrobere4/rag-docs-demo/internal/config"
	"github.com/Petrobere4/rag-docs-demo/internal/logger"
	"github.com/Petrobere4/rag-docs-demo/internal/store"
	"github.com/Petrobere4/rag-docs-demo/internal/telemetry"
	"github.com/Petrobere4/rag-docs-demo/services"
	"github.com/Petrobere4/rag-docs-demo/utils"
)

// SetupDocumentRoutes wires the upload, list and delete endpoints.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, ingestService *services.IngestionService, st *store.Store, metrics *telemetry.Metrics) {
	docs := router.Group("/api/documents")

	docs.POST("", func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "missing_file",
				"Attach .txt, .md, or .pdf file", nil)
			return
		}
		defer file.Close()

		// Read one byte past the cap so the service can reject oversize
		// uploads without buffering the whole body.
		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileBytes+1))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "unreadable_file",
				"Cannot read uploaded file", nil)
			return
		}

		title := c.PostForm("title")
		if title == "" {
			title = header.Filename
		}

		upload := services.Upload{
			FileName: header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		}

		result, err := ingestService.Ingest(c.Request.Context(), upload, title)
		if err != nil {
			logger.Warn("Ingestion failed",
				"file", header.Filename, "request_id", c.GetString("request_id"), "error", err)
			utils.RespondWithAppError(c, err)
			return
		}

		if metrics != nil {
			metrics.DocumentsIngested.Add(c.Request.Context(), 1)
			metrics.ChunksCreated.Add(c.Request.Context(), int64(result.ChunkCount))
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"document_id": result.DocumentID,
			"chunks":      result.ChunkCount,
		})
	})

	docs.GET("", func(c *gin.Context) {
		documents, err := st.ListDocuments(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": documents})
	})

	docs.DELETE("/:id", func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid document id", nil)
			return
		}

		if err := st.DeleteDocumentCascade(c.Request.Context(), id); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete document", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}
