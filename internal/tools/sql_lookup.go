package tools

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLTemplate is one allowlisted, read-only query the sql_lookup tool may
// run. There is no way to run arbitrary SQL through this tool — the model
// picks a template by name and supplies its positional params.
type SQLTemplate struct {
	Name        string
	Description string
	Query       string
	ParamCount  int
}

// NewSQLLookupTool builds the sql_lookup tool against the conversation-
// memory/CRM Postgres schema. pool is shared with internal/memory's store;
// sql_lookup never writes, so a read-only role on the DSN is expected.
func NewSQLLookupTool(pool *pgxpool.Pool, maxRows int, templates []SQLTemplate) *Tool {
	if maxRows <= 0 {
		maxRows = 50
	}
	byName := make(map[string]SQLTemplate, len(templates))
	names := make([]string, 0, len(templates))
	for _, t := range templates {
		byName[t.Name] = t
		names = append(names, t.Name)
	}

	return &Tool{
		Name:        "sql_lookup",
		Description: "Run a read-only, parameterized lookup against one of a fixed set of allowlisted query templates.",
		InputSchema: map[string]interface{}{
			"query_template": map[string]interface{}{
				"type":        "string",
				"description": fmt.Sprintf("One of the allowlisted template names: %v", names),
			},
			"params": map[string]interface{}{
				"type":        "array",
				"description": "Positional parameters substituted into the template's $1, $2, ... placeholders.",
			},
		},
		Required: []string{"query_template"},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			templateName, _ := args["query_template"].(string)
			tmpl, ok := byName[templateName]
			if !ok {
				return nil, fmt.Errorf("query_template %q is not allowlisted", templateName)
			}

			var params []interface{}
			if raw, ok := args["params"].([]interface{}); ok {
				params = raw
			}
			if len(params) != tmpl.ParamCount {
				return nil, fmt.Errorf("template %q expects %d params, got %d", templateName, tmpl.ParamCount, len(params))
			}

			rows, err := pool.Query(ctx, tmpl.Query, params...)
			if err != nil {
				return nil, fmt.Errorf("sql_lookup: %w", err)
			}
			defer rows.Close()

			fields := rows.FieldDescriptions()
			out := make([]map[string]interface{}, 0, maxRows)
			for rows.Next() && len(out) < maxRows {
				values, err := rows.Values()
				if err != nil {
					return nil, fmt.Errorf("sql_lookup: reading row: %w", err)
				}
				row := make(map[string]interface{}, len(fields))
				for i, f := range fields {
					row[f.Name] = values[i]
				}
				out = append(out, row)
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("sql_lookup: %w", err)
			}

			return map[string]interface{}{"rows": out}, nil
		},
	}
}
