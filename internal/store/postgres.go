package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgClient talks straight to the hosted Postgres behind the REST surface.
// Deployments with direct database credentials skip the REST hop.
type PgClient struct {
	pool *pgxpool.Pool
}

func NewPgClient(ctx context.Context, dsn string) (*PgClient, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PgClient{pool: pool}, nil
}

func (c *PgClient) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func (c *PgClient) Select(ctx context.Context, q Query) ([]Row, error) {
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ", ")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", columns, q.Table)

	where, args := buildWhere(q.Filters, 1)
	sb.WriteString(where)

	if q.Order != nil {
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.Order.Column, dir)
	}
	if q.Range != nil {
		fmt.Fprintf(&sb, " OFFSET %d LIMIT %d", q.Range.From, q.Range.To-q.Range.From+1)
	}

	rows, err := c.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", q.Table, err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (c *PgClient) Count(ctx context.Context, table string, filters []Filter) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT COUNT(*) FROM %s", table)
	where, args := buildWhere(filters, 1)
	sb.WriteString(where)

	var count int
	if err := c.pool.QueryRow(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func (c *PgClient) Insert(ctx context.Context, table string, row Row, returning []string) (Row, error) {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[column]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		returningClause(returning))

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	defer rows.Close()
	ret, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("insert into %s returned no rows", table)
	}
	return ret[0], nil
}

func (c *PgClient) Update(ctx context.Context, table string, filters []Filter, patch Row, returning []string) ([]Row, error) {
	columns := make([]string, 0, len(patch))
	for column := range patch {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(filters))
	for i, column := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", column, i+1)
		args = append(args, patch[column])
	}

	where, whereArgs := buildWhere(filters, len(columns)+1)
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
		table, strings.Join(sets, ", "), where, returningClause(returning))

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (c *PgClient) Delete(ctx context.Context, table string, filters []Filter) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", table)
	where, args := buildWhere(filters, 1)
	sb.WriteString(where)

	if _, err := c.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func returningClause(returning []string) string {
	if len(returning) == 0 {
		return "*"
	}
	return strings.Join(returning, ", ")
}

func buildWhere(filters []Filter, argStart int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	n := argStart
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", f.Column, n))
			args = append(args, f.Value)
			n++
		case OpIn:
			values, _ := f.Value.([]string)
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", f.Column, n))
			args = append(args, values)
			n++
		case OpIsNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", f.Column))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	fields := rows.FieldDescriptions()
	ret := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, field := range fields {
			row[string(field.Name)] = values[i]
		}
		ret = append(ret, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
