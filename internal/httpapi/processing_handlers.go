package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/processing"
)

func (s *Server) listProcessing(c *gin.Context) {
	tasks := []processing.TaskInfo{}
	if s.deps.Tasks != nil {
		tasks = append(tasks, s.deps.Tasks.Snapshot()...)
	}
	respondOK(c, http.StatusOK, tasks, "")
}

func (s *Server) cancelProcessing(c *gin.Context) {
	id, ok := parseID(c, "invoiceId")
	if !ok {
		return
	}
	if s.deps.Tasks == nil || !s.deps.Tasks.Cancel(id) {
		respondFail(c, http.StatusNotFound, "Processing task not found", "")
		return
	}
	respondOK(c, http.StatusOK, nil, "Processing cancelled")
}
