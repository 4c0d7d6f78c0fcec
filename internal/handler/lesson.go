package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/centsibleapp/centsible/internal/events"
	"github.com/centsibleapp/centsible/internal/model"
	"github.com/centsibleapp/centsible/internal/store"
)

type LessonHandler struct {
	lessonStore *store.LessonStore
	feed        *events.Feed
	logger      *slog.Logger
}

func NewLessonHandler(ls *store.LessonStore, feed *events.Feed, logger *slog.Logger) *LessonHandler {
	return &LessonHandler{lessonStore: ls, feed: feed, logger: logger}
}

func (h *LessonHandler) publish(action string, id int64) {
	if h.feed != nil {
		h.feed.Publish(events.ContentChanged("lesson", action, id))
	}
}

// lessonRequest uses pointer fields throughout so updates carry patch
// semantics: absent fields keep their stored value.
type lessonRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Content      *string `json:"content"`
	Category     *string `json:"category"`
	Duration     *string `json:"duration"`
	Difficulty   *string `json:"difficulty"`
	VideoURL     *string `json:"videoUrl"`
	VideoSummary *string `json:"videoSummary"`
	StartMessage *string `json:"startMessage"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	OrderIndex   *int    `json:"orderIndex"`
	Active       *bool   `json:"active"`
	Completed    *bool   `json:"completed"`
}

func strOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	title := strings.TrimSpace(strOr(req.Title, ""))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	lesson, err := h.lessonStore.Create(store.NewLesson{
		Title:        title,
		Description:  strOr(req.Description, ""),
		Content:      strOr(req.Content, ""),
		Category:     strOr(req.Category, "general"),
		Duration:     strOr(req.Duration, ""),
		Difficulty:   strOr(req.Difficulty, ""),
		VideoURL:     req.VideoURL,
		VideoSummary: req.VideoSummary,
		StartMessage: req.StartMessage,
		Icon:         strOr(req.Icon, ""),
		Color:        strOr(req.Color, ""),
		OrderIndex:   intOr(req.OrderIndex, 0),
		Active:       boolOr(req.Active, true),
		Completed:    boolOr(req.Completed, false),
	})
	if err != nil {
		h.logger.Error("create lesson", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create lesson")
		return
	}

	h.publish("created", lesson.ID)
	writeJSON(w, http.StatusCreated, lesson)
}

// List returns lessons ordered by orderIndex then creation time.
// `?active=true` filters to lessons visible to end users.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	lessons, err := h.lessonStore.List(activeOnly)
	if err != nil {
		h.logger.Error("list lessons", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list lessons")
		return
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	lesson, err := h.lessonStore.GetByID(id)
	if err != nil {
		h.logger.Error("get lesson", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get lesson")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (h *LessonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req lessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}

	lesson, err := h.lessonStore.Update(id, store.LessonPatch{
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		Category:     req.Category,
		Duration:     req.Duration,
		Difficulty:   req.Difficulty,
		VideoURL:     req.VideoURL,
		VideoSummary: req.VideoSummary,
		StartMessage: req.StartMessage,
		Icon:         req.Icon,
		Color:        req.Color,
		OrderIndex:   req.OrderIndex,
		Active:       req.Active,
		Completed:    req.Completed,
	})
	if err != nil {
		h.logger.Error("update lesson", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update lesson")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}

	h.publish("updated", lesson.ID)
	writeJSON(w, http.StatusOK, lesson)
}

func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.lessonStore.Delete(id)
	if err != nil {
		h.logger.Error("delete lesson", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete lesson")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}

	h.publish("deleted", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
