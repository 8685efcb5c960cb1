package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codr1/Spinergy/internal/models"
)

const resourceColumns = `id, display_name, full_name, active, display_order`

// ListResources returns resources in display order.
func (q *Queries) ListResources(ctx context.Context, activeOnly bool) ([]models.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources`
	if activeOnly {
		query += ` WHERE active = ?`
	}
	query += ` ORDER BY display_order, id`

	var args []interface{}
	if activeOnly {
		args = append(args, true)
	}
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []models.Resource
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.DisplayName, &r.FullName, &r.Active, &r.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return out, nil
}

func (q *Queries) GetResource(ctx context.Context, id string) (models.Resource, error) {
	var r models.Resource
	err := q.queryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id).
		Scan(&r.ID, &r.DisplayName, &r.FullName, &r.Active, &r.DisplayOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Resource{}, fmt.Errorf("resource %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return r, nil
}

// SetResourceActive toggles whether a resource accepts bookings.
func (q *Queries) SetResourceActive(ctx context.Context, id string, active bool) error {
	res, err := q.exec(ctx, `UPDATE resources SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("resource %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (q *Queries) ListPricingRules(ctx context.Context) ([]models.PricingRule, error) {
	rows, err := q.query(ctx, `SELECT resource_id, duration_minutes, coaching, amount, currency
FROM pricing_rules ORDER BY resource_id, duration_minutes, coaching`)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	defer rows.Close()

	var out []models.PricingRule
	for rows.Next() {
		var rule models.PricingRule
		if err := rows.Scan(&rule.ResourceID, &rule.DurationMinutes, &rule.Coaching, &rule.Amount, &rule.Currency); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rules: %w", err)
	}
	return out, nil
}

func (q *Queries) UpsertPricingRule(ctx context.Context, rule models.PricingRule) error {
	_, err := q.exec(ctx, `INSERT INTO pricing_rules (resource_id, duration_minutes, coaching, amount, currency)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (resource_id, duration_minutes, coaching)
DO UPDATE SET amount = excluded.amount, currency = excluded.currency`,
		rule.ResourceID, rule.DurationMinutes, rule.Coaching, rule.Amount, rule.Currency)
	if err != nil {
		return fmt.Errorf("upsert pricing rule: %w", err)
	}
	return nil
}
