package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoHistory is returned by Undo when a table has no undoable
// operation.
var ErrNoHistory = errors.New("no operations to undo")

// Operation is one logged transform on a table.
type Operation struct {
	ID          int64           `json:"id"`
	TableID     int64           `json:"tableId"`
	Kind        string          `json:"kind"`
	Details     json.RawMessage `json:"details"`
	PrevVersion int             `json:"prevVersion"`
	NewVersion  int             `json:"newVersion"`
	Undone      bool            `json:"undone"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (c *Catalog) logOperation(ctx context.Context, tableID int64, kind string, details any, prev, next int) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding operation details: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO operation_logs (table_id, kind, details_json, prev_version, new_version, undone, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		tableID, kind, string(detailsJSON), prev, next, now)
	if err != nil {
		return fmt.Errorf("logging operation: %w", err)
	}
	return nil
}

// History returns a table's operations, newest first.
func (c *Catalog) History(ctx context.Context, tableID int64) ([]Operation, error) {
	if _, err := c.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, table_id, kind, details_json, prev_version, new_version, undone, created_at
		 FROM operation_logs WHERE table_id = ? ORDER BY id DESC`, tableID)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		var op Operation
		var details, created string
		var undone int
		if err := rows.Scan(&op.ID, &op.TableID, &op.Kind, &details, &op.PrevVersion, &op.NewVersion, &undone, &created); err != nil {
			return nil, err
		}
		op.Details = json.RawMessage(details)
		op.Undone = undone == 1
		op.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, op)
	}
	return out, rows.Err()
}

// Undo reverts a table's most recent versioned operation by restoring
// the previous version. Merges create tables rather than versions and
// cannot be undone this way.
func (c *Catalog) Undo(ctx context.Context, tableID int64) (*Table, error) {
	t, err := c.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	var opID int64
	var prev int
	err = c.db.QueryRowContext(ctx,
		`SELECT id, prev_version FROM operation_logs
		 WHERE table_id = ? AND undone = 0 AND prev_version > 0 AND new_version = ?
		 ORDER BY id DESC LIMIT 1`, tableID, t.CurrentVersion).Scan(&opID, &prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", t.Name, ErrNoHistory)
	}
	if err != nil {
		return nil, err
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE operation_logs SET undone = 1 WHERE id = ?`, opID); err != nil {
		return nil, err
	}
	if err := c.bumpVersion(ctx, tableID, prev); err != nil {
		return nil, err
	}

	c.log.Info("undid operation", "table", t.Name, "restoredVersion", prev)
	return c.GetTable(ctx, tableID)
}
