package mcptools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ccard-fpt/generate-synthetic-data/internal/catalog"
)

type describeSchemaArgs struct {
	DSN    string `json:"dsn" jsonschema:"MySQL DSN, e.g. user:pass@tcp(host:3306)/dbname"`
	Table  string `json:"table,omitempty" jsonschema:"Restrict the description to a single table. Omit to describe every table in the schema."`
	Schema string `json:"schema,omitempty" jsonschema:"Schema name override. Defaults to the database name in the DSN."`
}

func registerDescribeSchema(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "describe_schema",
		Description: "Inspect a MySQL schema's tables, columns, primary keys, unique indexes, and foreign keys, the same way this program's introspector sees them before generating data.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleDescribeSchema)
}

func handleDescribeSchema(ctx context.Context, _ *mcp.CallToolRequest, args describeSchemaArgs) (*mcp.CallToolResult, struct{}, error) {
	if args.DSN == "" {
		return errResult("dsn is required"), struct{}{}, nil
	}
	schemaName := args.Schema
	if schemaName == "" {
		schemaName = extractSchema(args.DSN)
	}
	if schemaName == "" {
		return errResult("could not determine schema name; pass schema explicitly or end the DSN with /dbname"), struct{}{}, nil
	}

	db, err := sql.Open("mysql", args.DSN)
	if err != nil {
		return errResult(fmt.Sprintf("connecting to MySQL: %v", err)), struct{}{}, nil
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return errResult(fmt.Sprintf("pinging MySQL: %v", err)), struct{}{}, nil
	}

	cat := catalog.NewMySQL(db)

	tableNames := []string{args.Table}
	if args.Table == "" {
		tableNames, err = cat.ListTables(ctx, schemaName)
		if err != nil {
			return errResult(fmt.Sprintf("listing tables: %v", err)), struct{}{}, nil
		}
	}

	var sb strings.Builder
	for _, name := range tableNames {
		if err := describeOne(ctx, &sb, cat, schemaName, name); err != nil {
			return errResult(err.Error()), struct{}{}, nil
		}
	}
	return textResult(sb.String()), struct{}{}, nil
}

func describeOne(ctx context.Context, sb *strings.Builder, cat catalog.Catalog, schemaName, table string) error {
	cols, err := cat.Columns(ctx, schemaName, table)
	if err != nil {
		return fmt.Errorf("columns for %s: %w", table, err)
	}
	pk, err := cat.PrimaryKey(ctx, schemaName, table)
	if err != nil {
		return fmt.Errorf("primary key for %s: %w", table, err)
	}
	uniques, err := cat.UniqueIndexes(ctx, schemaName, table)
	if err != nil {
		return fmt.Errorf("unique indexes for %s: %w", table, err)
	}
	fks, err := cat.ForeignKeys(ctx, schemaName, table)
	if err != nil {
		return fmt.Errorf("foreign keys for %s: %w", table, err)
	}

	fmt.Fprintf(sb, "## %s.%s\n", schemaName, table)
	fmt.Fprintf(sb, "primary key: %s\n", strings.Join(pk, ", "))
	for _, c := range cols {
		var flags []string
		if !c.IsNullable {
			flags = append(flags, "NOT NULL")
		}
		if strings.Contains(strings.ToLower(c.Extra), "auto_increment") {
			flags = append(flags, "AUTO_INCREMENT")
		}
		if c.ColumnKey != "" {
			flags = append(flags, c.ColumnKey)
		}
		fmt.Fprintf(sb, "  %-24s %-16s %s\n", c.Name, c.DataType, strings.Join(flags, " "))
	}
	for _, u := range uniques {
		fmt.Fprintf(sb, "  UNIQUE %s (%s)\n", u.Name, strings.Join(u.Columns, ", "))
	}
	for _, fk := range fks {
		fmt.Fprintf(sb, "  FK %s.%s -> %s.%s\n", table, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	}
	sb.WriteByte('\n')
	return nil
}

func extractSchema(dsn string) string {
	idx := strings.LastIndex(dsn, "/")
	if idx == -1 || idx == len(dsn)-1 {
		return ""
	}
	s := dsn[idx+1:]
	if q := strings.Index(s, "?"); q != -1 {
		s = s[:q]
	}
	return s
}
