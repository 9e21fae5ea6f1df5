package types

// NodeKind classifies a manifest entity.
type NodeKind int

const (
	KindOther NodeKind = iota
	KindModel
	KindSource
	KindSeed
	KindSnapshot
	KindTest
)

func (k NodeKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindSource:
		return "source"
	case KindSeed:
		return "seed"
	case KindSnapshot:
		return "snapshot"
	case KindTest:
		return "test"
	default:
		return "other"
	}
}

// Materialization tags the physical embodiment of a model. Certain tags
// disqualify contract enforcement (see ContractDisqualified).
type Materialization string

const (
	MaterializationTable       Materialization = "table"
	MaterializationView        Materialization = "view"
	MaterializationIncremental Materialization = "incremental"
	MaterializationEphemeral   Materialization = "ephemeral"
	MaterializationSeed        Materialization = "seed"
	MaterializationSnapshot    Materialization = "snapshot"
)

// ContractDisqualified reports whether a node's kind/materialization makes
// it ineligible to carry an enforced contract, regardless of what the
// manifest declares. Ephemeral models and seeds/snapshots are disqualified.
func ContractDisqualified(kind NodeKind, mat Materialization) bool {
	if kind == KindSeed || kind == KindSnapshot || kind == KindTest {
		return true
	}
	return mat == MaterializationEphemeral || mat == MaterializationSeed || mat == MaterializationSnapshot
}

// DeclaredColumn is one column entry from a manifest/catalog declaration.
type DeclaredColumn struct {
	Name        string
	Type        LogicalType
	Description string
}

// Node is one manifest entity: a model, source, seed, snapshot, or test.
type Node struct {
	ID                string
	Kind              NodeKind
	ShortName         string
	PackageName       string
	FQN               string
	FilePath          string
	RawSQL            string
	Materialization   Materialization
	DependsOn        []string
	DeclaredColumns  []DeclaredColumn
	ContractEnforced bool
}

// Contract derives this node's declared Contract from its manifest fields.
// Returns (contract, ok); ok is false if the node carries no enforced
// contract or is disqualified from carrying one. The allowlist flags are
// run-level configuration, applied by the caller, not manifest state.
func (n Node) Contract() (Contract, bool) {
	if !n.ContractEnforced || ContractDisqualified(n.Kind, n.Materialization) {
		return Contract{}, false
	}
	cols := make([]Column, len(n.DeclaredColumns))
	for i, dc := range n.DeclaredColumns {
		cols[i] = Column{Name: dc.Name, Type: dc.Type, Nullable: NullUnknown}
	}
	return Contract{Columns: Schema{Columns: cols}}, true
}

// Contractible reports whether this node kind/materialization is eligible
// to be checked at all, independent of whether a contract is declared.
func (n Node) Contractible() bool {
	return !ContractDisqualified(n.Kind, n.Materialization)
}
