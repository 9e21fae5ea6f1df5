package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanzil7890/schemarefly/internal/artifact"
	"github.com/tanzil7890/schemarefly/internal/config"
	"github.com/tanzil7890/schemarefly/internal/drift"
	"github.com/tanzil7890/schemarefly/internal/obslog"
	"github.com/tanzil7890/schemarefly/internal/report"
	"github.com/tanzil7890/schemarefly/internal/typeparse"
	"github.com/tanzil7890/schemarefly/internal/types"
	"github.com/tanzil7890/schemarefly/internal/warehouse"
)

const driftFetchTimeout = 30 * time.Second

func newDriftCmd() *cobra.Command {
	var (
		manifestPath string
		snapshotPath string
		outputPath   string
		markdownPath string
	)

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare declared contracts against the warehouse schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := obslog.For("cli.drift")

			manifestJSON, err := os.ReadFile(manifestPath)
			if err != nil {
				return ioErr(fmt.Errorf("read manifest: %w", err))
			}
			loaded, err := artifact.Load(manifestJSON, nil)
			if err != nil {
				return internalErr(err)
			}

			conn, err := buildConnector(snapshotPath)
			if err != nil {
				return err
			}
			ttl := 5 * time.Minute
			if cfg.Warehouse != nil && cfg.Warehouse.TTL != "" {
				parsed, err := time.ParseDuration(cfg.Warehouse.TTL)
				if err != nil {
					return usageErr("invalid warehouse ttl %q: %v", cfg.Warehouse.TTL, err)
				}
				ttl = parsed
			}
			cached := warehouse.NewCachedConnector(conn, int64(ttl), func() int64 { return time.Now().UnixNano() })

			var diags []types.Diagnostic
			ids := contractedModelIDs(loaded)
			for _, id := range ids {
				n := loaded.Graph.Nodes[id]
				contract, ok := n.Contract()
				if !ok {
					continue
				}
				table := tableIDFor(cfg, n)
				ctx, cancel := context.WithTimeout(context.Background(), driftFetchTimeout)
				schema, err := cached.TableSchema(ctx, table)
				cancel()
				if err != nil {
					log.Sugar().Warnw("warehouse fetch failed", "table", table.String(), "error", err)
					diags = append(diags, types.Diagnostic{
						Code:     types.CodeWarning,
						Message:  fmt.Sprintf("could not fetch warehouse schema for %s: %v", table, err),
						Location: types.Location{File: n.FilePath},
					})
					continue
				}
				diags = append(diags, drift.Detect(n.FilePath, contract, schema)...)
			}

			rep := report.Assemble(diags, cfg, len(ids), len(ids), nil, time.Now().UTC().Format(time.RFC3339))
			if err := writeReport(rep, outputPath, markdownPath); err != nil {
				return err
			}
			if code := report.ExitCode(rep); code != exitOK {
				return &exitError{code: code, err: fmt.Errorf("%d error diagnostics", rep.Summary.Errors)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "target/manifest.json", "path to the dbt manifest")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "path to a warehouse schema snapshot JSON (offline mode)")
	cmd.Flags().StringVar(&outputPath, "output", "", "write the JSON report here instead of stdout")
	cmd.Flags().StringVar(&markdownPath, "markdown", "", "also write a human-readable Markdown report")
	return cmd
}

func contractedModelIDs(loaded *artifact.Loaded) []string {
	var ids []string
	for id, n := range loaded.Graph.Nodes {
		if _, ok := n.Contract(); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func tableIDFor(cfg *config.Config, n types.Node) warehouse.TableID {
	t := warehouse.TableID{Table: n.ShortName}
	if cfg.Warehouse != nil {
		t.Database = cfg.Warehouse.Database
		t.Schema = cfg.Warehouse.Schema
	}
	return t
}

// buildConnector resolves the warehouse capability. Vendor connectors
// (BigQuery, Snowflake, Postgres) are plugged in outside this binary; the
// built-in implementation reads a schema snapshot file so drift can run
// offline and in tests.
func buildConnector(snapshotPath string) (warehouse.Connector, error) {
	if snapshotPath == "" {
		return nil, usageErr("drift requires --snapshot <path> (no vendor connector is linked into this binary)")
	}
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return nil, ioErr(fmt.Errorf("read snapshot: %w", err))
	}
	var doc map[string][]snapshotColumn
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, internalErr(fmt.Errorf("parse snapshot: %w", err))
	}
	return &snapshotConnector{tables: doc}, nil
}

type snapshotColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// snapshotConnector serves TableSchema lookups from a static JSON document
// keyed by the table identifier's string form.
type snapshotConnector struct {
	tables map[string][]snapshotColumn
}

func (s *snapshotConnector) TableSchema(ctx context.Context, table warehouse.TableID) (types.Schema, error) {
	cols, ok := s.tables[table.String()]
	if !ok {
		cols, ok = s.tables[table.Table]
	}
	if !ok {
		return types.Schema{}, &warehouse.NotFoundError{Table: table}
	}
	out := make([]types.Column, len(cols))
	for i, c := range cols {
		out[i] = types.Column{Name: c.Name, Type: typeparse.Parse(c.Type), Nullable: types.NullUnknown}
	}
	return types.Schema{Columns: out}, nil
}
