package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// MySQL is a Catalog backed by a live connection, querying
// INFORMATION_SCHEMA the same way the teacher project's
// internal/introspect package does.
type MySQL struct {
	DB *sql.DB
}

// NewMySQL wraps an already-open *sql.DB as a Catalog.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{DB: db}
}

func (m *MySQL) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`, schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables in %s: %w", schema, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (m *MySQL) Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE,
		       COLUMN_KEY, EXTRA, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION,
		       NUMERIC_SCALE, COLUMN_DEFAULT
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspecting columns for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			c          ColumnInfo
			isNullable string
			maxLen     sql.NullInt64
			precision  sql.NullInt64
			scale      sql.NullInt64
			def        sql.NullString
		)
		if err := rows.Scan(
			&c.Name, &c.DataType, &c.ColumnType, &isNullable,
			&c.ColumnKey, &c.Extra, &maxLen, &precision, &scale, &def,
		); err != nil {
			return nil, fmt.Errorf("scanning column for %s.%s: %w", schema, table, err)
		}
		c.IsNullable = isNullable == "YES"
		if maxLen.Valid {
			c.MaxLength = &maxLen.Int64
		}
		if precision.Valid {
			c.Precision = &precision.Int64
		}
		if scale.Valid {
			c.Scale = &scale.Int64
		}
		if def.Valid {
			c.Default = &def.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (m *MySQL) PrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspecting PK for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (m *MySQL) Engine(ctx context.Context, schema, table string) (EngineInfo, error) {
	var info EngineInfo
	var engine sql.NullString
	var autoInc sql.NullInt64
	err := m.DB.QueryRowContext(ctx, `
		SELECT ENGINE, AUTO_INCREMENT
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, schema, table).Scan(&engine, &autoInc)
	if err != nil {
		return info, fmt.Errorf("introspecting engine for %s.%s: %w", schema, table, err)
	}
	info.Engine = engine.String
	info.NextAutoValue = autoInc.Int64
	return info, nil
}

func (m *MySQL) UniqueIndexes(ctx context.Context, schema, table string) ([]UniqueIndexInfo, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT INDEX_NAME, COLUMN_NAME
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		  AND NON_UNIQUE = 0 AND INDEX_NAME != 'PRIMARY'
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspecting unique indexes for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	order := make([]string, 0)
	byName := make(map[string][]string)
	for rows.Next() {
		var idx, col string
		if err := rows.Scan(&idx, &col); err != nil {
			return nil, err
		}
		if _, ok := byName[idx]; !ok {
			order = append(order, idx)
		}
		byName[idx] = append(byName[idx], col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]UniqueIndexInfo, 0, len(order))
	for _, name := range order {
		out = append(out, UniqueIndexInfo{Name: name, Columns: byName[name]})
	}
	return out, nil
}

func (m *MySQL) ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKeyInfo, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL`,
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspecting FKs for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var fks []ForeignKeyInfo
	for rows.Next() {
		var fk ForeignKeyInfo
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (m *MySQL) CurrentMaxPK(ctx context.Context, schema, table, column string) (int64, error) {
	var maxVal sql.NullInt64
	err := m.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT MAX(`%s`) FROM `%s`.`%s`", column, schema, table)).Scan(&maxVal)
	if err != nil {
		return 0, fmt.Errorf("fetching max %s for %s.%s: %w", column, schema, table, err)
	}
	if !maxVal.Valid {
		return 0, nil
	}
	return maxVal.Int64, nil
}

func (m *MySQL) SampleDistinct(ctx context.Context, schema, table, column string, limit int) ([]any, error) {
	order := ""
	if limit > 0 && limit < 500 {
		order = "ORDER BY RAND() "
	}
	query := fmt.Sprintf("SELECT DISTINCT `%s` FROM `%s`.`%s` WHERE `%s` IS NOT NULL %sLIMIT ?",
		column, schema, table, column, order)
	rows, err := m.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling %s.%s.%s: %w", schema, table, column, err)
	}
	defer rows.Close()

	var vals []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}
