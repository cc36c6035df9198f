package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

var ErrNotFound = errors.New("store: not found")

// SetRepo хранит наборы вопросов: question_sets + questions (порядок по position).
type SetRepo struct {
	DB     *sql.DB
	driver string
	now    func() time.Time
}

func NewSetRepo(db *sql.DB, driver string) *SetRepo {
	return &SetRepo{DB: db, driver: driver, now: time.Now}
}

func (r *SetRepo) q(s string) string { return rebind(r.driver, s) }

// Create сохраняет набор одной транзакцией. Пустой title заменяется на DefaultTitle.
func (r *SetRepo) Create(ctx context.Context, title, source string, qs []question.Question) (question.Set, error) {
	created := r.now().UTC().Truncate(time.Microsecond)
	if strings.TrimSpace(title) == "" {
		title = question.DefaultTitle(created)
	}
	set := question.Set{
		ID:            uuid.NewString(),
		Title:         title,
		Source:        source,
		CreatedAt:     created,
		QuestionCount: len(qs),
		Questions:     append([]question.Question{}, qs...),
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return question.Set{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		r.q(`insert into question_sets(id, title, source, created_at) values (?, ?, ?, ?)`),
		set.ID, set.Title, set.Source, set.CreatedAt); err != nil {
		return question.Set{}, fmt.Errorf("insert set: %w", err)
	}
	ins := r.q(`insert into questions(set_id, position, question_text, question_type, options_json, answer, explanation)
values (?, ?, ?, ?, ?, ?, ?)`)
	for i, q := range set.Questions {
		opts := q.Options
		if opts == nil {
			opts = []string{}
		}
		js, err := json.Marshal(opts)
		if err != nil {
			return question.Set{}, err
		}
		if _, err := tx.ExecContext(ctx, ins, set.ID, i, q.Text, string(q.Kind), string(js), q.Answer, q.Explanation); err != nil {
			return question.Set{}, fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return question.Set{}, err
	}
	return set, nil
}

// Get возвращает набор с вопросами или ErrNotFound.
func (r *SetRepo) Get(ctx context.Context, id string) (question.Set, error) {
	var s question.Set
	err := r.DB.QueryRowContext(ctx,
		r.q(`select id, title, source, created_at from question_sets where id = ?`), id).
		Scan(&s.ID, &s.Title, &s.Source, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return question.Set{}, ErrNotFound
	}
	if err != nil {
		return question.Set{}, err
	}
	qs, err := r.questions(ctx, id)
	if err != nil {
		return question.Set{}, err
	}
	s.Questions = qs
	s.QuestionCount = len(qs)
	return s, nil
}

func (r *SetRepo) questions(ctx context.Context, setID string) ([]question.Question, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`
select question_text, question_type, options_json, answer, explanation
from questions
where set_id = ?
order by position`), setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []question.Question{}
	for rows.Next() {
		var (
			q    question.Question
			kind string
			js   string
		)
		if err := rows.Scan(&q.Text, &kind, &js, &q.Answer, &q.Explanation); err != nil {
			return nil, err
		}
		q.Kind = question.KindFromTag(kind)
		q.Options = []string{}
		if err := json.Unmarshal([]byte(js), &q.Options); err != nil {
			return nil, fmt.Errorf("question options of set %s: %w", setID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// List: история: наборы без вопросов, новые первыми. limit <= 0, без ограничения.
func (r *SetRepo) List(ctx context.Context, limit int) ([]question.Set, error) {
	query := `
select s.id, s.title, s.source, s.created_at, count(q.position)
from question_sets s
left join questions q on q.set_id = s.id
group by s.id, s.title, s.source, s.created_at
order by s.created_at desc, s.id`
	var args []any
	if limit > 0 {
		query += ` limit ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []question.Set{}
	for rows.Next() {
		var s question.Set
		if err := rows.Scan(&s.ID, &s.Title, &s.Source, &s.CreatedAt, &s.QuestionCount); err != nil {
			return nil, err
		}
		s.Questions = []question.Question{}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMany возвращает наборы в порядке ids; отсутствующие пропускаются.
func (r *SetRepo) GetMany(ctx context.Context, ids []string) ([]question.Set, error) {
	out := make([]question.Set, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Delete удаляет набор и его вопросы; ErrNotFound, если набора нет.
func (r *SetRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, r.q(`delete from questions where set_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, r.q(`delete from question_sets where id = ?`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
