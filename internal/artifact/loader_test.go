package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/types"
)

const sampleManifest = `{
  "metadata": {"dbt_version": "1.8.0", "future_field": true},
  "nodes": {
    "model.proj.stg_orders": {
      "unique_id": "model.proj.stg_orders",
      "resource_type": "model",
      "name": "stg_orders",
      "package_name": "proj",
      "fqn": ["proj", "staging", "stg_orders"],
      "original_file_path": "models/staging/stg_orders.sql",
      "raw_code": "select id, amount from {{ source('raw', 'orders') }}",
      "depends_on": {"nodes": ["source.proj.raw.orders"]},
      "config": {"materialized": "view", "contract": {"enforced": true}},
      "columns": {
        "id": {"name": "id", "data_type": "int64"},
        "amount": {"name": "amount", "data_type": "numeric(10,2)"}
      }
    },
    "model.proj.orders": {
      "unique_id": "model.proj.orders",
      "resource_type": "model",
      "name": "orders",
      "package_name": "proj",
      "fqn": ["proj", "marts", "orders"],
      "original_file_path": "models/marts/orders.sql",
      "raw_code": "select * from {{ ref('stg_orders') }}",
      "depends_on": {"nodes": ["model.proj.stg_orders"]},
      "config": {"materialized": "table", "contract": {"enforced": false}},
      "columns": {}
    },
    "seed.proj.country_codes": {
      "unique_id": "seed.proj.country_codes",
      "resource_type": "seed",
      "name": "country_codes",
      "fqn": ["proj", "country_codes"],
      "original_file_path": "seeds/country_codes.csv",
      "depends_on": {"nodes": []},
      "config": {"materialized": "seed", "contract": {"enforced": false}}
    }
  },
  "sources": {
    "source.proj.raw.orders": {
      "unique_id": "source.proj.raw.orders",
      "resource_type": "source",
      "name": "orders",
      "fqn": ["proj", "raw", "orders"],
      "depends_on": {"nodes": []},
      "columns": {
        "id": {"name": "id", "data_type": "bigint"},
        "amount": {"name": "amount", "data_type": "numeric(10,2)"}
      }
    }
  }
}`

func TestLoadBuildsNodesAndGraph(t *testing.T) {
	loaded, err := Load([]byte(sampleManifest), nil)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 4)

	stg, ok := loaded.Graph.Nodes["model.proj.stg_orders"]
	require.True(t, ok)
	assert.Equal(t, types.KindModel, stg.Kind)
	assert.Equal(t, "stg_orders", stg.ShortName)
	assert.Equal(t, "proj.staging.stg_orders", stg.FQN)
	assert.True(t, stg.ContractEnforced)
	assert.Equal(t, types.MaterializationView, stg.Materialization)

	seed, ok := loaded.Graph.Nodes["seed.proj.country_codes"]
	require.True(t, ok)
	assert.Equal(t, types.KindSeed, seed.Kind)
	_, has := seed.Contract()
	assert.False(t, has, "seeds are never contractible")
}

func TestLoadDeclaredColumnsSortedAndTyped(t *testing.T) {
	loaded, err := Load([]byte(sampleManifest), nil)
	require.NoError(t, err)
	stg := loaded.Graph.Nodes["model.proj.stg_orders"]
	require.Len(t, stg.DeclaredColumns, 2)
	assert.Equal(t, "amount", stg.DeclaredColumns[0].Name)
	assert.Equal(t, types.KindDecimal, stg.DeclaredColumns[0].Type.Kind)
	assert.Equal(t, "id", stg.DeclaredColumns[1].Name)
	assert.Equal(t, types.KindInt, stg.DeclaredColumns[1].Type.Kind)
}

func TestLoadGraphEdges(t *testing.T) {
	loaded, err := Load([]byte(sampleManifest), nil)
	require.NoError(t, err)

	down := loaded.Graph.Downstream("model.proj.stg_orders")
	assert.Equal(t, []string{"model.proj.orders"}, down)

	up := loaded.Graph.Upstream("model.proj.orders")
	assert.ElementsMatch(t, []string{"model.proj.stg_orders", "source.proj.raw.orders"}, up)

	assert.True(t, loaded.Graph.Acyclic())
}

func TestLoadCatalogFallbackFromDeclaredColumns(t *testing.T) {
	loaded, err := Load([]byte(sampleManifest), nil)
	require.NoError(t, err)

	// The source's declared columns register under id, short name, and fqn.
	for _, key := range []string{"source.proj.raw.orders", "proj.raw.orders"} {
		s, ok := loaded.Catalog[key]
		require.True(t, ok, "missing catalog key %s", key)
		assert.Len(t, s.Columns, 2)
	}
}

func TestLoadCatalogDocumentSuppliesTypes(t *testing.T) {
	catalog := `{
	  "nodes": {
	    "model.proj.orders": {
	      "columns": {
	        "amount": {"type": "NUMERIC(10,2)", "index": 2},
	        "id": {"type": "INT64", "index": 1}
	      }
	    }
	  }
	}`
	loaded, err := Load([]byte(sampleManifest), []byte(catalog))
	require.NoError(t, err)

	s, ok := loaded.Catalog["model.proj.orders"]
	require.True(t, ok)
	require.Len(t, s.Columns, 2)
	assert.Equal(t, "id", s.Columns[0].Name, "catalog index drives column order")
	assert.Equal(t, "amount", s.Columns[1].Name)
	assert.Equal(t, types.KindDecimal, s.Columns[1].Type.Kind)

	// Also registered under the node's short name for FROM-clause lookup.
	_, ok = loaded.Catalog["orders"]
	assert.True(t, ok)
}

func TestLoadMalformedManifestIsInternalError(t *testing.T) {
	_, err := Load([]byte("{not json"), nil)
	require.Error(t, err)
	var ie *ErrInternal
	assert.ErrorAs(t, err, &ie)
}

func TestLoadEmptyManifestYieldsEmptySet(t *testing.T) {
	loaded, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.Nodes)
}

func TestLoadUnknownResourceKindMapsToOther(t *testing.T) {
	manifest := `{"nodes": {"exposure.proj.dash": {
	  "unique_id": "exposure.proj.dash", "resource_type": "exposure",
	  "name": "dash", "depends_on": {"nodes": []}}}}`
	loaded, err := Load([]byte(manifest), nil)
	require.NoError(t, err)
	assert.Equal(t, types.KindOther, loaded.Graph.Nodes["exposure.proj.dash"].Kind)
}
