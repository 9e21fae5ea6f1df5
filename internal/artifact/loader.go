// Package artifact parses dbt manifest/catalog documents into the core
// data model and builds the dependency graph. Decoding is tolerant:
// unknown fields are ignored, and load failures map to a single sentinel
// error type rather than panicking.
package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tanzil7890/schemarefly/internal/typeparse"
	"github.com/tanzil7890/schemarefly/internal/types"
)

func parseTypeString(raw string) types.LogicalType { return typeparse.Parse(raw) }

// ErrInternal marks a manifest/catalog load failure that is fatal to the
// run (malformed manifest or catalog JSON) — mapped to CLI exit code 4.
type ErrInternal struct {
	Op  string
	Err error
}

func (e *ErrInternal) Error() string { return fmt.Sprintf("artifact: %s: %v", e.Op, e.Err) }
func (e *ErrInternal) Unwrap() error { return e.Err }

// manifestDoc is the subset of dbt's manifest.json this loader recognizes.
// Unknown top-level and nested fields are ignored by encoding/json by
// default — no explicit handling needed for forward compatibility.
type manifestDoc struct {
	Nodes   map[string]manifestNode `json:"nodes"`
	Sources map[string]manifestNode `json:"sources"`
}

type manifestNode struct {
	UniqueID     string                    `json:"unique_id"`
	ResourceType string                    `json:"resource_type"`
	Name         string                    `json:"name"`
	Package      string                    `json:"package_name"`
	FQN          []string                  `json:"fqn"`
	OriginalPath string                    `json:"original_file_path"`
	RawCode      string                    `json:"raw_code"`
	DependsOn    manifestDependsOn         `json:"depends_on"`
	Config       manifestConfig            `json:"config"`
	Columns      map[string]manifestColumn `json:"columns"`
}

type manifestDependsOn struct {
	Nodes []string `json:"nodes"`
}

type manifestConfig struct {
	Materialized string           `json:"materialized"`
	Contract     manifestContract `json:"contract"`
}

type manifestContract struct {
	Enforced bool `json:"enforced"`
}

type manifestColumn struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
}

// catalogDoc supplies precise column types for SELECT * expansion, keyed
// the same way the manifest keys sources/models.
type catalogDoc struct {
	Nodes   map[string]catalogEntry `json:"nodes"`
	Sources map[string]catalogEntry `json:"sources"`
}

type catalogEntry struct {
	Columns map[string]catalogColumn `json:"columns"`
}

type catalogColumn struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Loaded is the Artifact Loader's output value.
type Loaded struct {
	Nodes   []types.Node
	Graph   *types.DependencyGraph
	Catalog map[string]types.Schema // keyed by node id, short name, and fqn
}

// Load parses manifest bytes (required) and catalog bytes (optional, nil
// when absent) into a Loaded value. A nil/empty manifest is not an error:
// it loads as an empty node set.
func Load(manifestJSON, catalogJSON []byte) (*Loaded, error) {
	var doc manifestDoc
	if len(manifestJSON) > 0 {
		if err := json.Unmarshal(manifestJSON, &doc); err != nil {
			return nil, &ErrInternal{Op: "parse manifest", Err: err}
		}
	}

	var cat catalogDoc
	if len(catalogJSON) > 0 {
		if err := json.Unmarshal(catalogJSON, &cat); err != nil {
			return nil, &ErrInternal{Op: "parse catalog", Err: err}
		}
	}

	nodes := make([]types.Node, 0, len(doc.Nodes)+len(doc.Sources))
	for id, mn := range doc.Nodes {
		nodes = append(nodes, toNode(id, mn))
	}
	for id, mn := range doc.Sources {
		mn.ResourceType = "source"
		nodes = append(nodes, toNode(id, mn))
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	graph := types.NewDependencyGraph(nodes)

	// The resolver must find a node's schema under every name form SQL can
	// reference it by: internal id, bare short name, fully-qualified name,
	// and (for sources) the rendered "source_name.table" form. Sources
	// register before models so a model sharing a source's short name wins
	// the bare-name key, matching how rendered ref() output resolves.
	catalogSchemas := make(map[string]types.Schema)
	register := func(n types.Node, s types.Schema) {
		catalogSchemas[n.ID] = s
		catalogSchemas[n.ShortName] = s
		catalogSchemas[n.FQN] = s
		if n.Kind == types.KindSource {
			if parts := strings.Split(n.FQN, "."); len(parts) >= 2 {
				catalogSchemas[parts[len(parts)-2]+"."+parts[len(parts)-1]] = s
			}
		}
	}
	fromCatalog := make(map[string]types.Schema, len(cat.Nodes)+len(cat.Sources))
	for id, entry := range cat.Nodes {
		fromCatalog[id] = toSchema(entry)
	}
	for id, entry := range cat.Sources {
		fromCatalog[id] = toSchema(entry)
	}
	for pass := 0; pass < 2; pass++ {
		for _, n := range nodes {
			if (n.Kind == types.KindSource) != (pass == 0) {
				continue
			}
			if s, ok := fromCatalog[n.ID]; ok {
				register(n, s)
				continue
			}
			// No catalog entry: fall back to declared-column types so
			// SELECT * against a contracted upstream still resolves to
			// something better than Unknown.
			if len(n.DeclaredColumns) == 0 {
				continue
			}
			cols := make([]types.Column, len(n.DeclaredColumns))
			for i, dc := range n.DeclaredColumns {
				cols[i] = types.Column{Name: dc.Name, Type: dc.Type, Nullable: types.NullUnknown,
					Provenance: []types.ColumnRef{{ModelID: n.ID, Column: dc.Name}}}
			}
			register(n, types.Schema{Columns: cols})
		}
	}

	return &Loaded{Nodes: nodes, Graph: graph, Catalog: catalogSchemas}, nil
}

func fqnKey(mn manifestNode) string {
	if len(mn.FQN) == 0 {
		return mn.Name
	}
	out := mn.FQN[0]
	for _, p := range mn.FQN[1:] {
		out += "." + p
	}
	return out
}

func toKind(resourceType string) types.NodeKind {
	switch resourceType {
	case "model":
		return types.KindModel
	case "source":
		return types.KindSource
	case "seed":
		return types.KindSeed
	case "snapshot":
		return types.KindSnapshot
	case "test":
		return types.KindTest
	default:
		return types.KindOther
	}
}

func toNode(id string, mn manifestNode) types.Node {
	// Manifest columns arrive as a JSON object, so decode order is
	// nondeterministic; sort by name to keep every downstream fingerprint
	// and report stable across runs.
	names := make([]string, 0, len(mn.Columns))
	for name := range mn.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([]types.DeclaredColumn, 0, len(mn.Columns))
	for _, name := range names {
		c := mn.Columns[name]
		cols = append(cols, types.DeclaredColumn{
			Name: c.Name, Type: parseTypeString(c.DataType), Description: c.Description,
		})
	}
	shortName := mn.Name
	return types.Node{
		ID:               id,
		Kind:             toKind(mn.ResourceType),
		ShortName:        shortName,
		PackageName:      mn.Package,
		FQN:              fqnKey(mn),
		FilePath:         mn.OriginalPath,
		RawSQL:           mn.RawCode,
		Materialization:  types.Materialization(mn.Config.Materialized),
		DependsOn:        mn.DependsOn.Nodes,
		DeclaredColumns:  cols,
		ContractEnforced: mn.Config.Contract.Enforced,
	}
}

func toSchema(entry catalogEntry) types.Schema {
	type named struct {
		name string
		col  catalogColumn
	}
	ordered := make([]named, 0, len(entry.Columns))
	for name, c := range entry.Columns {
		ordered = append(ordered, named{name: name, col: c})
	}
	// catalog.json records column order via Index; ties (malformed
	// documents) break by name so the result is still deterministic.
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].col.Index != ordered[j].col.Index {
			return ordered[i].col.Index < ordered[j].col.Index
		}
		return ordered[i].name < ordered[j].name
	})
	cols := make([]types.Column, len(ordered))
	for i, n := range ordered {
		cols[i] = types.Column{Name: n.name, Type: parseTypeString(n.col.Type), Nullable: types.NullUnknown}
	}
	return types.Schema{Columns: cols}
}
