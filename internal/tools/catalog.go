package tools

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/contextd/internal/llm"
	"github.com/fyrsmithlabs/contextd/internal/search"
	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultCatalogConfig bundles the collaborators and tuning knobs needed to
// wire the five mandatory tools from spec.md 4.E.
type DefaultCatalogConfig struct {
	SearchService     *search.Service
	Store             vectorstore.Store
	Embedder          vectorstore.Embedder
	PricingCollection string
	PricingTopK       int
	CalculatorMaxLen  int
	SQLPool           *pgxpool.Pool
	SQLMaxRows        int
	SQLTemplates      []SQLTemplate
	VisionClient      llm.Client
	VisionModel       string
}

// Catalog is the thread-safe fixed tool registry, generalizing the
// teacher's ToolRegistry (name, description, category, keywords) into the
// orchestrator's dispatch table. Unlike the teacher's registry, nothing
// here is deferred or searched — the catalog is small and fixed, so the
// orchestrator always sees the full set.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewCatalog builds an empty Catalog. Use Register to populate it, or
// NewDefaultCatalog to wire the five mandatory tools.
func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]*Tool)}
}

// NewDefaultCatalog builds a Catalog with the five mandatory tools
// registered: vector_search, calculator, pricing_lookup, sql_lookup, and
// vision_analyze.
func NewDefaultCatalog(cfg DefaultCatalogConfig) *Catalog {
	c := NewCatalog()
	c.Register(NewVectorSearchTool(cfg.SearchService))
	c.Register(NewCalculatorTool(cfg.CalculatorMaxLen))
	c.Register(NewPricingLookupTool(cfg.Store, cfg.Embedder, cfg.PricingCollection, cfg.PricingTopK))
	c.Register(NewSQLLookupTool(cfg.SQLPool, cfg.SQLMaxRows, cfg.SQLTemplates))
	c.Register(NewVisionAnalyzeTool(cfg.VisionClient, cfg.VisionModel))
	return c
}

// Register adds tool to the catalog. Registering a name twice overwrites
// the previous registration — callers construct the catalog once at
// startup and do not re-register at runtime.
func (c *Catalog) Register(tool *Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[tool.Name] = tool
}

// Get returns the tool registered under name, if any.
func (c *Catalog) Get(name string) (*Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

// List returns every registered tool, order unspecified.
func (c *Catalog) List() []*Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	return out
}

// Specs returns the catalog in the shape the model provider expects as its
// tool definitions.
func (c *Catalog) Specs() []llm.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]llm.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, llm.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}

// Invoke validates args against the named tool's schema and, only if
// validation passes, runs its handler. Unknown tool names and validation
// failures return ToolError without the handler ever running, per the
// Tool Catalog's side-effect boundary.
func (c *Catalog) Invoke(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, ok := c.Get(name)
	if !ok {
		return nil, &ToolError{Kind: ErrorKindUnknownTool, Tool: name}
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := tool.validate(args); err != nil {
		return nil, &ToolError{Kind: ErrorKindInvalidArgs, Tool: name, Err: err}
	}
	result, err := tool.Handler(ctx, args)
	if err != nil {
		return nil, &ToolError{Kind: ErrorKindExecution, Tool: name, Err: err}
	}
	return result, nil
}
