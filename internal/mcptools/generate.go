package mcptools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type generateArgs struct {
	Host       string  `json:"host,omitempty" jsonschema:"MySQL host. Defaults to 127.0.0.1."`
	Port       int     `json:"port,omitempty" jsonschema:"MySQL port. Defaults to 3306."`
	User       string  `json:"user,omitempty" jsonschema:"MySQL user. Defaults to root."`
	Password   string  `json:"password,omitempty" jsonschema:"MySQL password."`
	Schema     string  `json:"schema" jsonschema:"Schema (database) name to introspect."`
	ConfigPath string  `json:"config_path" jsonschema:"Path to the JSON table configuration."`
	OutInsert  string  `json:"out_insert,omitempty" jsonschema:"Output file for INSERT statements. Defaults to inserts.sql."`
	OutDelete  string  `json:"out_delete,omitempty" jsonschema:"Output file for DELETE statements. Defaults to deletes.sql."`
	Rows       int     `json:"rows,omitempty" jsonschema:"Default row count for tables without a per-table override."`
	Scale      float64 `json:"scale,omitempty" jsonschema:"Multiplier applied to every table's row count."`
	Seed       int64   `json:"seed,omitempty" jsonschema:"Random seed, for reproducible runs."`
}

func registerGenerate(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "generate",
		Description: "Introspect a MySQL schema and write synthetic INSERT/DELETE SQL files that satisfy its keys, indexes, and NOT NULL constraints. Does not modify the database.",
	}, handleGenerate)
}

func handleGenerate(ctx context.Context, _ *mcp.CallToolRequest, args generateArgs) (*mcp.CallToolResult, struct{}, error) {
	if args.Schema == "" {
		return errResult("schema is required"), struct{}{}, nil
	}
	if args.ConfigPath == "" {
		return errResult("config_path is required"), struct{}{}, nil
	}

	cliArgs := []string{"--schema", args.Schema, "--config", args.ConfigPath}
	if args.Host != "" {
		cliArgs = append(cliArgs, "--host", args.Host)
	}
	if args.Port != 0 {
		cliArgs = append(cliArgs, "--port", strconv.Itoa(args.Port))
	}
	if args.User != "" {
		cliArgs = append(cliArgs, "--user", args.User)
	}
	if args.Password != "" {
		cliArgs = append(cliArgs, "--password", args.Password)
	}
	if args.OutInsert != "" {
		cliArgs = append(cliArgs, "--out-insert", args.OutInsert)
	}
	if args.OutDelete != "" {
		cliArgs = append(cliArgs, "--out-delete", args.OutDelete)
	}
	if args.Rows > 0 {
		cliArgs = append(cliArgs, "--rows", strconv.Itoa(args.Rows))
	}
	if args.Scale > 0 {
		cliArgs = append(cliArgs, "--scale", strconv.FormatFloat(args.Scale, 'g', -1, 64))
	}
	if args.Seed != 0 {
		cliArgs = append(cliArgs, "--seed", strconv.FormatInt(args.Seed, 10))
	}

	output, err := runSelf(ctx, cliArgs...)
	if err != nil {
		return errResult("generate failed: " + err.Error()), struct{}{}, nil
	}
	return textResult(output), struct{}{}, nil
}

// runSelf re-invokes this program's own executable with args, the same way
// an AI assistant would from the shell, and captures its stdout.
func runSelf(ctx context.Context, args ...string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("finding executable: %w", err)
	}
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w\n%s", err, stderr.String())
	}
	return stdout.String(), nil
}
