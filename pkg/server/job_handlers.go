package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dasmlab/vakya/pkg/service"
	"github.com/dasmlab/vakya/pkg/translate"
)

// handleCreateJob queues a translation and answers 202 with its ID.
func (s *HTTPServer) handleCreateJob(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Missing text is reported before a bad method.
	method, err := req.method()
	if err != nil && strings.TrimSpace(req.Text) != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidMethod})
		return
	}

	job, err := s.jobs.CreateJob(req.Text, method)
	switch {
	case err == nil:
	case translate.IsValidation(err):
		msg := msgInvalidMethod
		if errors.Is(err, translate.ErrEmptyText) {
			msg = msgNoText
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": service.JobStatusQueued,
	})
}

// handleJobStatus returns the current state of a job as JSON.
func (s *HTTPServer) handleJobStatus(c *gin.Context) {
	job, err := s.jobs.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job.Snapshot())
}

// handleJobEvents streams job progress as Server-Sent Events until the job
// finishes or the client goes away.
func (s *HTTPServer) handleJobEvents(c *gin.Context) {
	job, err := s.jobs.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	setSSEHeaders(c)
	c.Status(http.StatusOK)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Send initial status
	snap := job.Snapshot()
	if !s.sendJobEvent(c.Writer, snap) || snap.Status.Done() {
		return
	}
	lastStatus, lastProgress := snap.Status, snap.ProgressPercent

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			status, progress := job.Status()
			if status == lastStatus && progress == lastProgress {
				continue
			}
			snap := job.Snapshot()
			if !s.sendJobEvent(c.Writer, snap) || snap.Status.Done() {
				return
			}
			lastStatus, lastProgress = snap.Status, snap.ProgressPercent
		}
	}
}

type flushWriter interface {
	io.Writer
	http.Flusher
}

// sendJobEvent writes one "status" event and reports whether the client is
// still writable.
func (s *HTTPServer) sendJobEvent(w flushWriter, snap service.JobSnapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal SSE event")
		return false
	}

	if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
		return false
	}
	w.Flush()
	return true
}
