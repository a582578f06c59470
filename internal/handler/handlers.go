package handler

import (
	"net/http"

	"github.com/chetan-code/taskcal/internal/apperr"
	"github.com/chetan-code/taskcal/internal/models"
	"github.com/chetan-code/taskcal/internal/service"
	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(s *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: s}
}

// taskRequest is the body of create and update. The web client sends dueDate
// on create and due_date on update, both are accepted.
type taskRequest struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       models.Status `json:"status"`
	DueDate      string        `json:"due_date"`
	DueDateCamel string        `json:"dueDate"`
}

func (req taskRequest) input() (service.TaskInput, error) {
	raw := req.DueDate
	if raw == "" {
		raw = req.DueDateCamel
	}
	due, err := models.ParseDate(raw)
	if err != nil {
		return service.TaskInput{}, &apperr.Error{Kind: apperr.KindValidation, Message: "due_date must be YYYY-MM-DD", Err: err}
	}
	return service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     due,
	}, nil
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	who, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	page := service.ParsePage(r.URL.Query().Get("page"))
	tasks, err := h.tasks.List(r.Context(), who, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	who, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.tasks.Get(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), who, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+task.ID)
	w.WriteHeader(http.StatusCreated)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	who, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.tasks.Update(r.Context(), who, chi.URLParam(r, "id"), in); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	who, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.tasks.Delete(r.Context(), who, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
