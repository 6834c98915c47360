package datarow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// FromSQL runs query against db and materializes the result set as a Table.
func FromSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*Table, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading data source.", "query", query)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %w", ErrDataSource, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: reading columns: %w", ErrDataSource, err)
	}

	var data [][]cty.Value
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scanning row %d: %w", ErrDataSource, len(data), err)
		}
		row := make([]cty.Value, len(columns))
		for i, v := range raw {
			cv, err := ToCtyValue(v)
			if err != nil {
				return nil, &FieldError{Field: columns[i], Cause: err}
			}
			row[i] = cv
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows: %w", ErrDataSource, err)
	}

	logger.Debug("Data source loaded.", "columns", len(columns), "rows", len(data))
	return NewTable(columns, data)
}
