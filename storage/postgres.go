package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/arsalyy/greeka-todo-api/domain"
)

// PostgresConfig describes the connection pool.
type PostgresConfig struct {
	URL            string
	MaxConns       int32
	ConnectTimeout time.Duration
}

// Connect opens a pool and retries the first ping once per second until the
// connect timeout elapses.
func Connect(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	deadline := time.After(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastErr error
	for {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.WithField("max_conns", poolCfg.MaxConns).Info("database connected")
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		log.WithError(err).Warn("database not ready")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("unable to connect to database: %w", lastErr)
		case <-ticker.C:
		}
	}
}

// PostgresStore keeps tasks in the tasks table.
type PostgresStore struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewPostgresStore creates a store on top of an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ping checks that the database answers.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Insert(ctx context.Context, d domain.TaskDraft) (domain.Task, error) {
	query, args, err := s.builder.
		Insert(tasksTable).
		Columns("id", "name", "due_date", "status", "priority").
		Values(uuid.New(), d.Name, d.DueDate, string(d.Status), string(d.Priority)).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return domain.Task{}, &domain.StorageError{Op: "insert", Err: err}
	}
	t, err := scanTask(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Task{}, &domain.StorageError{Op: "insert", Err: err}
	}
	return t, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query, args, err := s.builder.
		Select(taskColumns...).
		From(tasksTable).
		Where(squirrel.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Err: err}
	}
	t, err := scanTask(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "get", Err: err}
	}
	return &t, nil
}

func (s *PostgresStore) Save(ctx context.Context, t domain.Task) (domain.Task, error) {
	query, args, err := s.builder.
		Update(tasksTable).
		Set("name", t.Name).
		Set("due_date", t.DueDate).
		Set("status", string(t.Status)).
		Set("priority", string(t.Priority)).
		Set("is_active", t.IsActive).
		Where(squirrel.Eq{"id": t.ID}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return domain.Task{}, &domain.StorageError{Op: "save", Err: err}
	}
	saved, err := scanTask(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrRowMissing
		}
		return domain.Task{}, &domain.StorageError{Op: "save", Err: err}
	}
	return saved, nil
}

func (s *PostgresStore) Query(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int64, error) {
	pageSel, countSel, err := listStatements(s.builder, q)
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "query", Err: err}
	}

	countSQL, countArgs, err := countSel.ToSql()
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "query", Err: err}
	}
	var total int64
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, &domain.StorageError{Op: "count", Err: err}
	}

	pageSQL, pageArgs, err := pageSel.ToSql()
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "query", Err: err}
	}
	rows, err := s.db.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0, pageCapacity(q, total))
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, &domain.StorageError{Op: "query", Err: err}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.StorageError{Op: "query", Err: err}
	}
	return tasks, total, nil
}

// pageCapacity bounds the result slice by the rows that can still follow the
// offset, so a huge limit never drives the allocation.
func pageCapacity(q domain.TaskQuery, total int64) int {
	remaining := total - int64(q.Offset)
	if remaining <= 0 || q.Limit <= 0 {
		return 0
	}
	return int(min(remaining, int64(q.Limit)))
}

func columnList() string {
	return strings.Join(taskColumns, ", ")
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t        domain.Task
		status   string
		priority string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.DueDate, &status, &priority, &t.CreatedAt, &t.IsActive); err != nil {
		return domain.Task{}, err
	}
	t.Status = domain.Status(status)
	t.Priority = domain.Priority(priority)
	return t, nil
}
