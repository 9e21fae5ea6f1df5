// Package query is the incremental query layer: a set of inputs (file
// text, manifest, catalog) and a set of derived, memoized queries
// (manifest-to-graph, parse-sql-for-node, infer-schema-for-node,
// check-contract-for-node, downstream-of-node, modified-closure). A change
// to one input invalidates only the derived values that transitively
// depend on it; recomputations that yield an unchanged fingerprint leave
// every downstream cache entry intact ("early cutoff").
package query

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tanzil7890/schemarefly/internal/artifact"
	"github.com/tanzil7890/schemarefly/internal/config"
	"github.com/tanzil7890/schemarefly/internal/differ"
	"github.com/tanzil7890/schemarefly/internal/inference"
	"github.com/tanzil7890/schemarefly/internal/sqlparse"
	"github.com/tanzil7890/schemarefly/internal/template"
	"github.com/tanzil7890/schemarefly/internal/types"
)

type graphEntry struct {
	valid  bool
	fp     Fingerprint
	loaded *artifact.Loaded
}

type parseEntry struct {
	sourceFP Fingerprint
	renderFP Fingerprint // early-cutoff key for Infer: the rendered SQL text
	result   sqlparse.ParseResult
	diags    []types.Diagnostic
}

type inferEntry struct {
	renderFP  Fingerprint
	catalogFP Fingerprint
	result    inference.Result
}

type diffEntry struct {
	schemaFP   Fingerprint
	contractFP Fingerprint
	graphFP    Fingerprint
	diags      []types.Diagnostic
}

type downstreamEntry struct {
	graphFP Fingerprint
	ids     []string
}

// Cache is the query layer: Inputs plus every derived-query cache. A
// single Cache instance lives for the duration of an analysis run (CLI
// mode) or the whole editor-protocol server session (language-server
// mode).
type Cache struct {
	Inputs *Inputs
	Config *config.Config

	mu          sync.Mutex
	graph       graphEntry
	parseCache  map[string]parseEntry
	inferCache  map[string]inferEntry
	diffCache   map[string]diffEntry
	downCache   map[string]downstreamEntry
}

// New builds an empty Cache bound to its own Inputs.
func New(cfg *config.Config) *Cache {
	return &Cache{
		Inputs:     NewInputs(),
		Config:     cfg,
		parseCache: map[string]parseEntry{},
		inferCache: map[string]inferEntry{},
		diffCache:  map[string]diffEntry{},
		downCache:  map[string]downstreamEntry{},
	}
}

// Graph is the manifest-to-graph derived query: parses manifest+catalog
// documents into nodes, a dependency graph, and a name-keyed catalog of
// schemas, memoized on the combined fingerprint of both documents.
func (c *Cache) Graph() (*artifact.Loaded, error) {
	fp := c.Inputs.manifestFingerprint()

	c.mu.Lock()
	if c.graph.valid && c.graph.fp == fp {
		loaded := c.graph.loaded
		c.mu.Unlock()
		return loaded, nil
	}
	c.mu.Unlock()

	manifestJSON, catalogJSON := c.Inputs.snapshotDocs()
	loaded, err := artifact.Load(manifestJSON, catalogJSON)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.graph = graphEntry{valid: true, fp: fp, loaded: loaded}
	c.mu.Unlock()
	return loaded, nil
}

// ParseNode is the parse-sql-for-node derived query: renders node's raw
// SQL (or its live editor override) through the Template Preprocessor and
// then the SQL Parser, memoized on the source text's fingerprint.
func (c *Cache) ParseNode(node types.Node, tplCtx template.Context, dialect sqlparse.Dialect) (sqlparse.ParseResult, Fingerprint, []types.Diagnostic) {
	text, sourceFP := c.Inputs.fileFingerprint(node.FilePath, node.RawSQL)

	c.mu.Lock()
	if e, ok := c.parseCache[node.ID]; ok && e.sourceFP == sourceFP {
		result, renderFP, diags := e.result, e.renderFP, e.diags
		c.mu.Unlock()
		return result, renderFP, diags
	}
	c.mu.Unlock()

	rendered := template.Render(text, tplCtx, node.FilePath)
	parsed := sqlparse.Parse(dialect, rendered.Rendered, node.FilePath)
	diags := append(append([]types.Diagnostic(nil), rendered.Diagnostics...), parsed.Diagnostics...)
	// The rendered SQL text is the early-cutoff key: a raw-SQL edit that
	// re-renders to the same text (e.g. a change inside a {# #} template
	// comment) is re-rendered and re-parsed here, but never perturbs
	// inference or anything downstream of it.
	renderFP := fingerprintString("render", rendered.Rendered)

	c.mu.Lock()
	c.parseCache[node.ID] = parseEntry{sourceFP: sourceFP, renderFP: renderFP, result: parsed, diags: diags}
	c.mu.Unlock()
	return parsed, renderFP, diags
}

// InferNode is the infer-schema-for-node derived query, memoized on the
// parse's render fingerprint (early cutoff) plus the catalog's
// fingerprint, so identical ASTs under an unchanged catalog never
// re-infer.
func (c *Cache) InferNode(node types.Node, parsed sqlparse.ParseResult, renderFP Fingerprint, catalog map[string]types.Schema, catalogFP Fingerprint, allowStar bool) inference.Result {
	c.mu.Lock()
	if e, ok := c.inferCache[node.ID]; ok && e.renderFP == renderFP && e.catalogFP == catalogFP {
		r := e.result
		c.mu.Unlock()
		return r
	}
	c.mu.Unlock()

	var result inference.Result
	if parsed.Inferable {
		result = inference.Infer(parsed.AST, inference.Context{Catalog: catalog, AllowStar: allowStar, File: node.FilePath})
	}

	c.mu.Lock()
	c.inferCache[node.ID] = inferEntry{renderFP: renderFP, catalogFP: catalogFP, result: result}
	c.mu.Unlock()
	return result
}

// CheckContractNode is the check-contract-for-node derived query. A node
// without a declared, enforced contract produces no diagnostics here; a
// node whose manifest declares enforcement but whose kind/materialization
// disqualifies it from carrying a contract emits ContractMissing instead
// of silently skipping, matching dbt's own refusal to enforce contracts
// on ephemeral models.
func (c *Cache) CheckContractNode(node types.Node, inferred types.Schema, graph *types.DependencyGraph, graphFP Fingerprint) []types.Diagnostic {
	contract, ok := node.Contract()
	if !ok {
		if node.ContractEnforced && types.ContractDisqualified(node.Kind, node.Materialization) {
			return []types.Diagnostic{{
				Code:     types.CodeContractMissing,
				Message:  fmt.Sprintf("model %s declares an enforced contract but its materialization (%s) cannot carry one", node.ShortName, node.Materialization),
				Location: types.Location{File: node.FilePath},
				Impact:   c.Downstream(node.ID, graph, graphFP),
			}}
		}
		return nil
	}
	if c.Config != nil {
		contract.AllowExtra = contract.AllowExtra || c.Config.AllowExtraColumnsFor(node.FQN) || c.Config.AllowExtraColumnsFor(node.ShortName)
		contract.AllowWidening = contract.AllowWidening || c.Config.AllowWideningFor(node.FQN) || c.Config.AllowWideningFor(node.ShortName)
	}

	schemaFP := fingerprintSchema(inferred)
	contractFP := fingerprintContract(contract)

	c.mu.Lock()
	if e, ok := c.diffCache[node.ID]; ok && e.schemaFP == schemaFP && e.contractFP == contractFP && e.graphFP == graphFP {
		diags := e.diags
		c.mu.Unlock()
		return diags
	}
	c.mu.Unlock()

	diags := differ.Diff(node.ID, node.FilePath, inferred, contract, graph)

	c.mu.Lock()
	c.diffCache[node.ID] = diffEntry{schemaFP: schemaFP, contractFP: contractFP, graphFP: graphFP, diags: diags}
	c.mu.Unlock()
	return diags
}

// Downstream is the downstream-of-node derived query, memoized per
// (graph fingerprint, id) pair.
func (c *Cache) Downstream(id string, graph *types.DependencyGraph, graphFP Fingerprint) []string {
	c.mu.Lock()
	if e, ok := c.downCache[id]; ok && e.graphFP == graphFP {
		ids := e.ids
		c.mu.Unlock()
		return ids
	}
	c.mu.Unlock()

	ids := graph.Downstream(id)

	c.mu.Lock()
	c.downCache[id] = downstreamEntry{graphFP: graphFP, ids: ids}
	c.mu.Unlock()
	return ids
}

// Invalidate drops every derived cache entry. Used when a run starts over
// against a wholly new manifest rather than an incremental edit, and by
// tests that want a clean slate without constructing a new Cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graph = graphEntry{}
	c.parseCache = map[string]parseEntry{}
	c.inferCache = map[string]inferEntry{}
	c.diffCache = map[string]diffEntry{}
	c.downCache = map[string]downstreamEntry{}
}

// NodeResult is one node's full pipeline output from CheckAll.
type NodeResult struct {
	NodeID      string
	Diagnostics []types.Diagnostic
	Checked     bool
}

// CheckAll runs parse, infer, and diff for every id in nodeIDs, fanning
// out across the dependency DAG with bounded concurrency. Results are
// independent of goroutine completion order; the final canonical sort
// happens at report assembly so the report is byte-stable across runs.
// tplCtxFor supplies the per-node template context (ref/source/var/config
// all need per-model target info).
func (c *Cache) CheckAll(ctx context.Context, nodeIDs []string, tplCtxFor func(types.Node) template.Context, dialect sqlparse.Dialect, allowStar bool) ([]types.Diagnostic, []NodeResult, error) {
	loaded, err := c.Graph()
	if err != nil {
		return nil, nil, err
	}
	catalogFP := fingerprintCatalog(loaded.Catalog)
	graphFP := c.Inputs.manifestFingerprint()

	results := make([]NodeResult, len(nodeIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit())

	for i, id := range nodeIDs {
		i, id := i, id
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			node, ok := loaded.Graph.Nodes[id]
			if !ok {
				return nil
			}
			if c.Config != nil && (c.Config.SkipModel(node.FQN) || c.Config.SkipModel(node.ShortName)) {
				results[i] = NodeResult{NodeID: id, Checked: false}
				return nil
			}

			parsed, renderFP, diags := c.ParseNode(node, tplCtxFor(node), dialect)
			if parsed.Inferable {
				inferred := c.InferNode(node, parsed, renderFP, loaded.Catalog, catalogFP, allowStar)
				diags = append(diags, inferred.Diagnostics...)
				diags = append(diags, c.CheckContractNode(node, inferred.Schema, loaded.Graph, graphFP)...)
			}
			results[i] = NodeResult{NodeID: id, Diagnostics: diags, Checked: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Severities aren't resolved until report assembly, so canonical
	// ordering is meaningless here; CheckAll only needs to be
	// order-independent regardless of goroutine completion order, which
	// sorting by node id gives it. The Report Assembler applies the real
	// canonical sort once severities are resolved.
	sort.Slice(results, func(i, j int) bool { return results[i].NodeID < results[j].NodeID })
	var all []types.Diagnostic
	for _, r := range results {
		all = append(all, r.Diagnostics...)
	}

	return all, results, nil
}

func concurrencyLimit() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 16 {
		return 16
	}
	return n
}
