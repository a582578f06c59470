// Package service applies authorization rules on top of the task repository.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/chetan-code/taskcal/internal/apperr"
	"github.com/chetan-code/taskcal/internal/models"
	"github.com/chetan-code/taskcal/internal/repository"
	"github.com/google/uuid"
)

const PageSize = 5

// MaxPage is the last page whose offset still fits in an int.
const MaxPage = math.MaxInt / PageSize

type TaskStore interface {
	ListAllTasks(ctx context.Context, limit, offset int) ([]models.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, t *models.Task) error
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// TaskInput carries the client-editable fields of a task.
type TaskInput struct {
	Title       string
	Description string
	Status      models.Status
	DueDate     *models.Date
}

type TaskService struct {
	store TaskStore
	now   func() time.Time
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store, now: time.Now}
}

// ParsePage turns the raw "page" query value into a page number, falling back to 1.
// Values past MaxPage are capped so they still read as a page past the end.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) && page > 0 {
		return MaxPage
	}
	if err != nil || page < 1 {
		return 1
	}
	return min(page, MaxPage)
}

// List returns one page of tasks: every task for admins, only their own for everyone else.
func (s *TaskService) List(ctx context.Context, who models.Identity, page int) ([]models.Task, error) {
	page = min(max(page, 1), MaxPage)
	offset := (page - 1) * PageSize

	var (
		tasks []models.Task
		err   error
	)
	if who.IsAdmin() {
		tasks, err = s.store.ListAllTasks(ctx, PageSize, offset)
	} else {
		tasks, err = s.store.ListTasksByOwner(ctx, who.UserID, PageSize, offset)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, who models.Identity, id string) (*models.Task, error) {
	return s.authorizedTask(ctx, who, id)
}

// Create stores a new task owned by the requester.
func (s *TaskService) Create(ctx context.Context, who models.Identity, in TaskInput) (*models.Task, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      in.Status,
		UserID:      who.UserID,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, apperr.Unexpected(err)
	}
	slog.Debug("task_created", "task_id", task.ID, "user_id", who.UserID)
	return task, nil
}

// Update replaces title, description, status and due date. Omitted fields are cleared.
func (s *TaskService) Update(ctx context.Context, who models.Identity, id string, in TaskInput) error {
	if err := normalize(&in); err != nil {
		return err
	}

	task, err := s.authorizedTask(ctx, who, id)
	if err != nil {
		return err
	}

	task.Title = in.Title
	task.Description = in.Description
	task.Status = in.Status
	task.DueDate = in.DueDate

	err = s.store.UpdateTask(ctx, task)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted between the ownership check and the write
		return apperr.NotFound("task not found")
	}
	if err != nil {
		return apperr.Unexpected(err)
	}
	return nil
}

// Delete removes a task. Deleting a task that does not exist succeeds.
func (s *TaskService) Delete(ctx context.Context, who models.Identity, id string) error {
	_, err := s.authorizedTask(ctx, who, id)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		return apperr.Unexpected(err)
	}
	slog.Debug("task_deleted", "task_id", id, "user_id", who.UserID)
	return nil
}

// authorizedTask loads a task and checks that who may act on it.
func (s *TaskService) authorizedTask(ctx context.Context, who models.Identity, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("task not found")
	}

	task, err := s.store.GetTask(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("task not found")
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	if !who.IsAdmin() && task.UserID != who.UserID {
		slog.Warn("task_access_denied", "task_id", id, "user_id", who.UserID)
		return nil, apperr.Authorization("you do not have access to this task")
	}
	return task, nil
}

func normalize(in *TaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.Validation("title is required")
	}
	if in.Status == "" {
		in.Status = models.StatusPending
	}
	if !in.Status.Valid() {
		return apperr.Validation("status must be pending or completed")
	}
	return nil
}
