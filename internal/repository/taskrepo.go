package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chetan-code/taskcal/internal/models"
)

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = "id, title, description, due_date, status, user_id, created_at"

// ListAllTasks returns every user's tasks, newest first.
func (r *TaskRepo) ListAllTasks(ctx context.Context, limit, offset int) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2"
	return r.queryTasks(ctx, query, limit, offset)
}

// ListTasksByOwner returns only the tasks owned by ownerID, newest first.
func (r *TaskRepo) ListTasksByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3"
	return r.queryTasks(ctx, query, ownerID, limit, offset)
}

func (r *TaskRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	t := &models.Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Status, &t.UserID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}

func (r *TaskRepo) CreateTask(ctx context.Context, t *models.Task) error {
	query := "INSERT INTO tasks (" + taskColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7)"
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, dueDateArg(t.DueDate), string(t.Status), t.UserID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTask replaces the mutable columns. The owner column is never written.
func (r *TaskRepo) UpdateTask(ctx context.Context, t *models.Task) error {
	query := "UPDATE tasks SET title = $1, description = $2, status = $3, due_date = $4 WHERE id = $5"
	res, err := r.db.ExecContext(ctx, query, t.Title, t.Description, string(t.Status), dueDateArg(t.DueDate), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepo) DeleteTask(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Status, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// dueDateArg turns a missing due date into SQL NULL and a present one into midnight UTC.
func dueDateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}
