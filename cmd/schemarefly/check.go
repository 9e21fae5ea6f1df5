package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanzil7890/schemarefly/internal/artifact"
	"github.com/tanzil7890/schemarefly/internal/config"
	"github.com/tanzil7890/schemarefly/internal/obslog"
	"github.com/tanzil7890/schemarefly/internal/query"
	"github.com/tanzil7890/schemarefly/internal/report"
	"github.com/tanzil7890/schemarefly/internal/sqlparse"
	"github.com/tanzil7890/schemarefly/internal/state"
	"github.com/tanzil7890/schemarefly/internal/template"
	"github.com/tanzil7890/schemarefly/internal/types"
)

func newCheckCmd() *cobra.Command {
	var (
		manifestPath string
		catalogPath  string
		statePath    string
		modifiedOnly bool
		outputPath   string
		markdownPath string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate declared contracts against inferred model schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := obslog.For("cli.check")

			manifestJSON, err := os.ReadFile(manifestPath)
			if err != nil {
				return ioErr(fmt.Errorf("read manifest: %w", err))
			}
			var catalogJSON []byte
			if catalogPath != "" {
				catalogJSON, err = os.ReadFile(catalogPath)
				if err != nil {
					return ioErr(fmt.Errorf("read catalog: %w", err))
				}
			}

			cache := query.New(cfg)
			cache.Inputs.SetManifest(manifestJSON)
			cache.Inputs.SetCatalog(catalogJSON)

			loaded, err := cache.Graph()
			if err != nil {
				return internalErr(err)
			}

			var stateMeta *report.StateMetadata
			checkIDs := modelIDs(loaded)
			if statePath != "" {
				baselineJSON, err := os.ReadFile(statePath)
				if err != nil {
					return ioErr(fmt.Errorf("read baseline manifest: %w", err))
				}
				baseline, err := artifact.Load(baselineJSON, nil)
				if err != nil {
					return internalErr(err)
				}
				diff := state.Compare(loaded.Graph, baseline.Graph)
				closure := state.ModifiedClosure(loaded.Graph, diff)
				stateMeta = stateMetadata(diff, closure)
				if modifiedOnly {
					checkIDs = intersect(checkIDs, closure)
					log.Sugar().Infow("restricted to modified closure", "nodes", len(checkIDs))
				}
			} else if modifiedOnly {
				return usageErr("--modified-only requires --state <baseline manifest>")
			}

			tplCtxFor := templateContextFor(cfg)
			dialect := sqlparse.ParseDialect(cfg.Dialect)
			diags, results, err := cache.CheckAll(context.Background(), checkIDs, tplCtxFor, dialect, true)
			if err != nil {
				return internalErr(err)
			}

			checked, validated := 0, 0
			for _, r := range results {
				if !r.Checked {
					continue
				}
				checked++
				if n, ok := loaded.Graph.Nodes[r.NodeID]; ok {
					if _, has := n.Contract(); has {
						validated++
					}
				}
			}

			rep := report.Assemble(diags, cfg, checked, validated, stateMeta, time.Now().UTC().Format(time.RFC3339))
			for _, d := range rep.Diagnostics {
				msg := d.Message
				if cfg.Redact {
					msg = report.Redact(msg)
				}
				log.Sugar().Debugw("diagnostic", "code", d.Code, "severity", d.Severity.String(), "message", msg)
			}

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
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to the dbt catalog (optional)")
	cmd.Flags().StringVar(&statePath, "state", "", "path to a baseline manifest for state comparison")
	cmd.Flags().BoolVar(&modifiedOnly, "modified-only", false, "check only the modified closure relative to --state")
	cmd.Flags().StringVar(&outputPath, "output", "", "write the JSON report here instead of stdout")
	cmd.Flags().StringVar(&markdownPath, "markdown", "", "also write a human-readable Markdown report")
	return cmd
}

func modelIDs(loaded *artifact.Loaded) []string {
	var ids []string
	for id, n := range loaded.Graph.Nodes {
		if n.Kind == types.KindModel {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func templateContextFor(cfg *config.Config) func(types.Node) template.Context {
	target := template.Target{Name: "default", Type: cfg.Dialect}
	if cfg.Warehouse != nil {
		target.Schema = cfg.Warehouse.Schema
		target.Database = cfg.Warehouse.Database
		target.Type = cfg.Warehouse.Type
	}
	return func(n types.Node) template.Context {
		return template.Context{
			Vars:   cfg.Vars,
			Target: target,
			ModelConfig: map[string]string{
				"materialized": string(n.Materialization),
			},
		}
	}
}

func stateMetadata(diff state.Diff, closure []string) *report.StateMetadata {
	meta := &report.StateMetadata{Deleted: diff.Deleted}
	modified := diff.Modified()
	for _, id := range modified {
		isNew := false
		for _, r := range diff.Reasons[id] {
			if r == state.ReasonNew {
				isNew = true
			}
		}
		if isNew {
			meta.New = append(meta.New, id)
		} else {
			meta.Modified = append(meta.Modified, id)
		}
	}
	// Blast radius counts downstream-only members of the closure.
	blast := len(closure) - len(modified)
	if blast < 0 {
		blast = 0
	}
	meta.TotalBlastRadius = blast
	return meta
}

func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []string
	for _, id := range a {
		if inB[id] {
			out = append(out, id)
		}
	}
	return out
}

func writeReport(rep report.Report, outputPath, markdownPath string) error {
	data, err := report.EncodeJSON(rep)
	if err != nil {
		return internalErr(err)
	}
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return ioErr(err)
		}
	} else if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return ioErr(fmt.Errorf("write report: %w", err))
	}
	if markdownPath != "" {
		if err := os.WriteFile(markdownPath, report.EncodeMarkdown(rep), 0o644); err != nil {
			return ioErr(fmt.Errorf("write markdown report: %w", err))
		}
	}
	return nil
}
