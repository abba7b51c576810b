package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/workflow"
)

var (
	ErrPlanNotFound    = errors.New("plan not found")
	ErrAmbiguousPlanID = errors.New("plan id prefix matches more than one plan")
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// PlanSummary is one row of the history listing.
type PlanSummary struct {
	ID          string
	CreatedAt   time.Time
	Origin      string
	Destination string
	StartDate   string
	EndDate     string
	Version     int
	Visited     []string
}

// Step is an archived node execution.
type Step struct {
	Node     string
	Status   string
	Duration time.Duration
	Error    string
}

// StoredPlan is an archived plan with its record restored.
type StoredPlan struct {
	PlanSummary
	Record plan.Record
	Steps  []Step
}

// SavePlan archives a finished record under the run's id, with the steps
// observed while it ran. Plans beyond the history limit are pruned.
func (db *DB) SavePlan(ctx context.Context, trace workflow.Trace, rec plan.Record, steps []workflow.StepEvent) error {
	id := strings.TrimSpace(trace.RunID)
	if id == "" {
		return errors.New("save plan: empty run id")
	}
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return fmt.Errorf("save plan: encode inputs: %w", err)
	}
	visited := make([]string, 0, len(trace.Visited))
	for _, n := range trace.Visited {
		visited = append(visited, string(n))
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plans (id, created_at, origin, destination, start_date, end_date, inputs, version, visited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, time.Now().UTC(), rec.Origin, rec.Destination,
		plan.FormatDate(rec.StartDate), plan.FormatDate(rec.EndDate),
		string(inputs), rec.Version(), strings.Join(visited, ",")); err != nil {
		return fmt.Errorf("save plan %s: %w", id, err)
	}

	for field, content := range rec.Derived() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO plan_sections (plan_id, field, content) VALUES (?, ?, ?)",
			id, string(field), content); err != nil {
			return fmt.Errorf("save plan %s section %s: %w", id, field, err)
		}
	}

	for _, ev := range steps {
		if ev.Status == workflow.StepRunning {
			continue
		}
		msg := ""
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO plan_steps (plan_id, node, status, duration_ms, error) VALUES (?, ?, ?, ?, ?)",
			id, string(ev.Node), string(ev.Status), ev.Duration.Milliseconds(), msg); err != nil {
			return fmt.Errorf("save plan %s step %s: %w", id, ev.Node, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM plans
		WHERE id NOT IN (
			SELECT id FROM plans ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`, db.limit); err != nil {
		return fmt.Errorf("prune plans: %w", err)
	}

	return tx.Commit()
}

// ListPlans returns the newest plans first. limit <= 0 means no limit.
func (db *DB) ListPlans(ctx context.Context, limit int) ([]PlanSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, created_at, origin, destination, start_date, end_date, version, visited
		FROM plans
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanSummary
	for rows.Next() {
		var (
			s       PlanSummary
			visited string
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.Origin, &s.Destination, &s.StartDate, &s.EndDate, &s.Version, &visited); err != nil {
			return nil, err
		}
		s.Visited = splitVisited(visited)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPlan loads an archived plan by exact id or by a prefix that matches
// exactly one plan.
func (db *DB) GetPlan(ctx context.Context, id string) (*StoredPlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrPlanNotFound
	}
	fullID, err := db.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		sp      StoredPlan
		inputs  string
		visited string
	)
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, created_at, origin, destination, start_date, end_date, inputs, version, visited
		FROM plans
		WHERE id = ?
	`, fullID).Scan(&sp.ID, &sp.CreatedAt, &sp.Origin, &sp.Destination, &sp.StartDate, &sp.EndDate, &inputs, &sp.Version, &visited)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	sp.Visited = splitVisited(visited)

	var in plan.Inputs
	if err := json.Unmarshal([]byte(inputs), &in); err != nil {
		return nil, fmt.Errorf("decode plan %s inputs: %w", sp.ID, err)
	}

	derived, err := db.sections(ctx, sp.ID)
	if err != nil {
		return nil, err
	}
	sp.Record = plan.Restore(in, sp.Version, derived)

	sp.Steps, err = db.steps(ctx, sp.ID)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// resolveID maps id to a stored id. An exact match wins over prefix matches.
func (db *DB) resolveID(ctx context.Context, id string) (string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM plans
		WHERE id = ? OR id LIKE ? || '%' ESCAPE '\'
		ORDER BY id
		LIMIT 3
	`, id, likeEscaper.Replace(id))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", err
		}
		if m == id {
			return m, nil
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousPlanID, id)
	}
}

func (db *DB) sections(ctx context.Context, id string) (map[plan.Field]string, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT field, content FROM plan_sections WHERE plan_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[plan.Field]string)
	for rows.Next() {
		var field, content string
		if err := rows.Scan(&field, &content); err != nil {
			return nil, err
		}
		out[plan.Field(field)] = content
	}
	return out, rows.Err()
}

func (db *DB) steps(ctx context.Context, id string) ([]Step, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT node, status, duration_ms, error FROM plan_steps WHERE plan_id = ? ORDER BY id ASC", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var (
			s  Step
			ms int64
		)
		if err := rows.Scan(&s.Node, &s.Status, &ms, &s.Error); err != nil {
			return nil, err
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func splitVisited(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
