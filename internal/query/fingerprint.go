package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// Fingerprint identifies an input or derived value's content. Two
// fingerprints are equal iff the underlying value would serialize
// identically; this is the basis for the query layer's early cutoff.
type Fingerprint string

const zeroFingerprint Fingerprint = ""

func fingerprintBytes(chunks ...[]byte) Fingerprint {
	h := sha256.New()
	for _, c := range chunks {
		h.Write(c)
		h.Write([]byte{0})
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

func fingerprintString(parts ...string) Fingerprint {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// fingerprintSchema deterministically serializes a Schema's shape so two
// structurally identical inferred schemas (e.g. recomputed from a
// textually different but semantically equal rendering) fingerprint the
// same, enabling early cutoff one layer further downstream (contract diff
// skips when the inferred schema is unchanged even if the AST fingerprint
// above it changed).
func fingerprintSchema(s types.Schema) Fingerprint {
	var sb strings.Builder
	for _, c := range s.Columns {
		fmt.Fprintf(&sb, "%s\x1f%s\x1f%s\x1e", c.Name, c.Type.String(), c.Nullable)
	}
	return fingerprintString(sb.String())
}

func fingerprintContract(c types.Contract) Fingerprint {
	var sb strings.Builder
	fmt.Fprintf(&sb, "extra=%v,widen=%v\x1e", c.AllowExtra, c.AllowWidening)
	for _, col := range c.Columns.Columns {
		fmt.Fprintf(&sb, "%s\x1f%s\x1e", col.Name, col.Type.String())
	}
	return fingerprintString(sb.String())
}

// fingerprintCatalog serializes catalog name->Schema entries in sorted key
// order so map iteration order never perturbs the fingerprint.
func fingerprintCatalog(catalog map[string]types.Schema) Fingerprint {
	keys := make([]string, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte(0x1f)
		sb.WriteString(string(fingerprintSchema(catalog[k])))
		sb.WriteByte(0x1e)
	}
	return fingerprintString(sb.String())
}
