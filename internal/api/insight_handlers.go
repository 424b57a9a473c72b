package api

import (
	"errors"
	"net/http"
	"strings"

	"habitloop/internal/insight"

	"github.com/gin-gonic/gin"
)

const maxJournalChars = 20000

type generateRequest struct {
	JournalText string `json:"journalText"`
}

// POST /insights/generate
func GenerateInsightsHandler(pipeline *insight.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
			return
		}

		var req generateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body"}})
			return
		}
		req.JournalText = strings.TrimSpace(req.JournalText)
		if req.JournalText == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "journalText is required"}})
			return
		}
		if len(req.JournalText) > maxJournalChars {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "journal entry too long"}})
			return
		}

		record, err := pipeline.Run(c.Request.Context(), userID, req.JournalText)
		if err != nil {
			status, msg := mapPipelineError(err)
			c.JSON(status, gin.H{"error": gin.H{"message": msg}})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}

// mapPipelineError translates pipeline failures into HTTP responses without
// leaking model output or internals to the client.
func mapPipelineError(err error) (int, string) {
	if errors.Is(err, insight.ErrInappropriateContent) {
		return http.StatusUnprocessableEntity, "this entry can't be processed; if you're struggling, please reach out to someone you trust or a support line"
	}
	var pe *insight.ParseError
	if errors.As(err, &pe) {
		return http.StatusBadGateway, "the suggestion service returned an unusable response, please try again"
	}
	return http.StatusInternalServerError, "insight generation failed, please try again"
}
