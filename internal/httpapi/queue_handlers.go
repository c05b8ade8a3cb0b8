package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/queue"
	"wizqueue/internal/services"
)

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(param)), 10, 64)
	if err != nil || id <= 0 {
		respondFail(c, http.StatusBadRequest, "Invalid ID", "")
		return 0, false
	}
	return id, true
}

// respondQueueError reports a missing item the way the lookup endpoints do.
func (s *Server) respondQueueError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		respondFail(c, http.StatusNotFound, "Queue item not found", "")
		return
	}
	s.respondError(c, err)
}

func (s *Server) listQueue(c *gin.Context) {
	var statuses []queue.Status
	for _, raw := range c.QueryArray("status") {
		for _, value := range strings.Split(raw, ",") {
			if strings.TrimSpace(value) == "" {
				continue
			}
			status, err := queue.ParseStatus(value)
			if err != nil {
				s.respondError(c, err)
				return
			}
			statuses = append(statuses, status)
		}
	}
	items, err := s.deps.Queue.List(c.Request.Context(), statuses...)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toQueueItems(items), "")
}

func (s *Server) getQueueItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := s.deps.Queue.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if item == nil {
		respondFail(c, http.StatusNotFound, "Queue item not found", "")
		return
	}
	respondOK(c, http.StatusOK, toQueueItem(item), "")
}

func (s *Server) createQueueItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	item, err := s.deps.Queue.Create(c.Request.Context(), req.toInput())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, toQueueItem(item), "Queue item created successfully")
}

func (s *Server) createQueueBatch(c *gin.Context) {
	var body struct {
		Items        json.RawMessage `json:"items"`
		BasePosition *int            `json:"basePosition"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	trimmed := strings.TrimSpace(string(body.Items))
	if !strings.HasPrefix(trimmed, "[") {
		respondFail(c, http.StatusBadRequest, "Items must be an array", "")
		return
	}
	var reqs []createItemRequest
	if err := json.Unmarshal(body.Items, &reqs); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	inputs := make([]queue.CreateInput, len(reqs))
	for i, req := range reqs {
		inputs[i] = req.toInput()
	}
	var opts []queue.BatchOption
	if body.BasePosition != nil {
		opts = append(opts, queue.AtPosition(*body.BasePosition))
	}
	items, err := s.deps.Queue.CreateMany(c.Request.Context(), inputs, opts...)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, toQueueItems(items), fmt.Sprintf("%d queue items created successfully", len(items)))
}

func (s *Server) updateQueueItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	patch, err := req.toInput()
	if err != nil {
		s.respondError(c, err)
		return
	}
	item, err := s.deps.Queue.Update(c.Request.Context(), id, patch)
	if err != nil {
		s.respondQueueError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toQueueItem(item), "Queue item updated successfully")
}

func (s *Server) deleteQueueItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	deleted, err := s.deps.Queue.Delete(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !deleted {
		respondFail(c, http.StatusNotFound, "Queue item not found", "")
		return
	}
	respondOK(c, http.StatusOK, nil, "Queue item deleted successfully")
}

func (s *Server) reorderQueue(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.ItemID == nil || *req.ItemID == 0 || req.NewPosition == nil {
		respondFail(c, http.StatusBadRequest, "itemId and newPosition are required", "")
		return
	}
	if err := s.deps.Queue.Reorder(c.Request.Context(), *req.ItemID, *req.NewPosition); err != nil {
		s.respondQueueError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Queue reordered successfully")
}

func (s *Server) updateQueueStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		respondFail(c, http.StatusBadRequest, "Status is required", "")
		return
	}
	status, err := queue.ParseStatus(req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	item, err := s.deps.Queue.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		s.respondQueueError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toQueueItem(item), "Status updated successfully")
}
