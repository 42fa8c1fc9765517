// Package events provides access to the safety_events table, the audit
// trail of every safety transition, alert, and watchdog state change the
// controller records.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event categories.
const (
	CategorySafety   = "safety"
	CategoryPower    = "power"
	CategoryWatchdog = "watchdog"
)

// Event represents a single audit trail entry.
type Event struct {
	ID         string         `json:"id"`
	Category   string         `json:"category"`
	Action     string         `json:"action"`
	AlertLevel string         `json:"alert_level"`
	IsSafe     *bool          `json:"is_safe,omitempty"`
	Reasons    []string       `json:"reasons,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	Category   string // optional: filter by category (safety, power, watchdog)
	Action     string // optional: filter by action
	AlertLevel string // optional: filter by alert level
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListResult contains the paginated event results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the interface for event operations.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new event repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var reasonsJSON *string
	if len(event.Reasons) > 0 {
		b, err := json.Marshal(event.Reasons)
		if err != nil {
			return fmt.Errorf("marshalling event reasons: %w", err)
		}
		s := string(b)
		reasonsJSON = &s
	}

	var detailsJSON *string
	if event.Details != nil {
		b, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	var isSafe any
	if event.IsSafe != nil {
		isSafe = boolToInt(*event.IsSafe)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO safety_events (id, category, action, alert_level, is_safe, reasons, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Category, event.Action, event.AlertLevel,
		isSafe, reasonsJSON, detailsJSON,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// boolToInt converts a bool to an INTEGER column value.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// List returns events matching the filter, ordered by most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // dynamic query builder: WHERE clause assembly from filter fields
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for event queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.AlertLevel != "" {
		conditions = append(conditions, "alert_level = ?")
		args = append(args, filter.AlertLevel)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM safety_events %s", where) //nolint:gosec // parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // parameterised conditions
		"SELECT id, category, action, alert_level, is_safe, reasons, details, created_at FROM safety_events %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var list []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	if list == nil {
		list = []Event{}
	}

	return &ListResult{
		Events: list,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// scanEvent reads one row into an Event.
func scanEvent(rows *sql.Rows) (Event, error) {
	var event Event
	var isSafe sql.NullInt64
	var reasonsJSON, detailsJSON sql.NullString
	var createdAt string

	if err := rows.Scan(&event.ID, &event.Category, &event.Action, &event.AlertLevel,
		&isSafe, &reasonsJSON, &detailsJSON, &createdAt); err != nil {
		return Event{}, fmt.Errorf("scanning event: %w", err)
	}

	if isSafe.Valid {
		v := isSafe.Int64 != 0
		event.IsSafe = &v
	}
	if reasonsJSON.Valid && reasonsJSON.String != "" {
		var reasons []string
		if json.Unmarshal([]byte(reasonsJSON.String), &reasons) == nil {
			event.Reasons = reasons
		}
	}
	if detailsJSON.Valid && detailsJSON.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
			event.Details = details
		}
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Event{}, fmt.Errorf("parsing event timestamp %q: %w", createdAt, err)
	}
	event.CreatedAt = t

	return event, nil
}
