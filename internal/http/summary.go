package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"linkstash/internal/summary"
)

// SummaryController exposes summary generation and persistence endpoints.
type SummaryController struct {
	service *summary.Service
}

// NewSummaryController creates a new SummaryController.
func NewSummaryController(service *summary.Service) *SummaryController {
	return &SummaryController{service: service}
}

type saveSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// StreamSummary handles POST /api/items/:id/summary
// Streams generated summary text chunk by chunk as server-sent events.
// The client is expected to concatenate the chunks and POST the result to
// the save endpoint.
func (sc *SummaryController) StreamSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stream, err := sc.service.StreamItemSummary(c.Request.Context(), id, GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "item")
		case errors.Is(err, summary.ErrNoContent):
			respondError(c, http.StatusConflict, "item has no content to summarize")
		default:
			respondInternalError(c, err, "start summary stream")
		}
		return
	}
	defer stream.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for chunk := range stream.Chunks() {
		fmt.Fprintf(c.Writer, "data: %s\n\n", jsonChunkPayload(chunk))
		c.Writer.Flush()
	}

	if err := stream.Err(); err != nil {
		log.Printf("Summary stream for item %d failed: %v", id, err)
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", jsonErrorPayload(err))
		c.Writer.Flush()
		return
	}

	fmt.Fprint(c.Writer, "event: done\ndata: {}\n\n")
	c.Writer.Flush()
}

// SaveSummary handles POST /api/items/:id/summary/save
// Persists a summary and generates tags for it in the background model call.
func (sc *SummaryController) SaveSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req saveSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "summary is required")
		return
	}

	item, err := sc.service.SaveSummary(c.Request.Context(), id, GetUserID(c), req.Summary)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "item")
			return
		}
		respondInternalError(c, err, "save summary")
		return
	}

	c.JSON(http.StatusOK, item)
}

func jsonChunkPayload(chunk string) []byte {
	payload, err := json.Marshal(gin.H{"text": chunk})
	if err != nil {
		return []byte("{}")
	}
	return payload
}
