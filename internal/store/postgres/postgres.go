// Package postgres implements the template store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"legaldraft/internal/domain"
	"legaldraft/internal/store"
)

// Store persists templates in the templates and template_variables tables.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectTemplate = `SELECT id, title, description, doctype, jurisdiction, similarity_tags, body_md, created_at FROM templates`

const selectVariables = `SELECT id, template_id, key, label, description, example, required, dtype, regex, enum_values
FROM template_variables`

func (s *Store) Get(ctx context.Context, id int64) (*domain.Template, error) {
	row := s.pool.QueryRow(ctx, selectTemplate+` WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get template %d: %w", id, err)
	}
	rows, err := s.pool.Query(ctx, selectVariables+` WHERE template_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get template %d variables: %w", id, err)
	}
	vars, err := pgx.CollectRows(rows, scanVariable)
	if err != nil {
		return nil, fmt.Errorf("get template %d variables: %w", id, err)
	}
	t.Variables = vars
	return t, nil
}

// List returns every template with its variables, ordered by id.
func (s *Store) List(ctx context.Context) ([]*domain.Template, error) {
	rows, err := s.pool.Query(ctx, selectTemplate+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Template, error) {
		return scanTemplate(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	byID := make(map[int64]*domain.Template, len(templates))
	for _, t := range templates {
		t.Variables = []domain.Variable{}
		byID[t.ID] = t
	}

	rows, err = s.pool.Query(ctx, selectVariables+` ORDER BY template_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list template variables: %w", err)
	}
	vars, err := pgx.CollectRows(rows, scanVariable)
	if err != nil {
		return nil, fmt.Errorf("list template variables: %w", err)
	}
	for _, v := range vars {
		if t, ok := byID[v.TemplateID]; ok {
			t.Variables = append(t.Variables, v)
		}
	}
	return templates, nil
}

// Save inserts the template and its variables in one transaction.
func (s *Store) Save(ctx context.Context, t *domain.Template) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save template tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	err = tx.QueryRow(ctx, `INSERT INTO templates (title, description, doctype, jurisdiction, similarity_tags, body_md)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		t.Title, t.Description, t.DocType, t.Jurisdiction, tags, t.Body,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range t.Variables {
		v := &t.Variables[i]
		v.TemplateID = t.ID
		enum := v.Enum
		if enum == nil {
			enum = []string{}
		}
		batch.Queue(`INSERT INTO template_variables
(template_id, position, key, label, description, example, required, dtype, regex, enum_values)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			t.ID, i, v.Key, v.Label, v.Description, v.Example, v.Required, v.Type, v.Pattern, enum,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&v.ID)
		})
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert template variables: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit template: %w", err)
	}
	return nil
}

// Delete removes the template; its variables go with it via ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var t domain.Template
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DocType, &t.Jurisdiction, &t.Tags, &t.Body, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanVariable(row pgx.CollectableRow) (domain.Variable, error) {
	var v domain.Variable
	err := row.Scan(&v.ID, &v.TemplateID, &v.Key, &v.Label, &v.Description, &v.Example, &v.Required, &v.Type, &v.Pattern, &v.Enum)
	return v, err
}
