package query

import "sync"

// Inputs holds the query layer's externally-set, explicitly versioned
// values: file text keyed by path, the manifest document, and the catalog
// document. Setting an input is exclusive with respect to
// derivations reading it (guarded by mu); concurrent readers of already
// cached derived values are unaffected since Cache keeps its own lock.
type Inputs struct {
	mu sync.RWMutex

	manifestJSON []byte
	catalogJSON  []byte
	fileText     map[string]string
}

// NewInputs constructs an empty Inputs value.
func NewInputs() *Inputs {
	return &Inputs{fileText: map[string]string{}}
}

// SetManifest installs new manifest document bytes, invalidating every
// derived query that transitively reads the manifest the next time it is
// queried (invalidation is lazy: a fingerprint mismatch on next read).
func (in *Inputs) SetManifest(b []byte) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.manifestJSON = append([]byte(nil), b...)
}

// SetCatalog installs new catalog document bytes, or nil to clear it.
func (in *Inputs) SetCatalog(b []byte) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.catalogJSON = append([]byte(nil), b...)
}

// SetFileText replaces the text input for path, as a language server
// would on every edit. A subsequent read by any node whose raw SQL comes
// from path sees the new text.
func (in *Inputs) SetFileText(path, text string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.fileText[path] = text
}

// ClearFileText removes a file text override, falling back to the
// manifest's own raw_sql for that node.
func (in *Inputs) ClearFileText(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.fileText, path)
}

// FileText returns the overridden text for path, if any was set via
// SetFileText.
func (in *Inputs) FileText(path string) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	t, ok := in.fileText[path]
	return t, ok
}

// manifestFingerprint fingerprints the current manifest+catalog bytes
// together, since the Artifact Loader's output (graph, catalog schemas)
// is a pure function of both.
func (in *Inputs) manifestFingerprint() Fingerprint {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return fingerprintBytes(in.manifestJSON, in.catalogJSON)
}

func (in *Inputs) snapshotDocs() (manifest, catalog []byte) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]byte(nil), in.manifestJSON...), append([]byte(nil), in.catalogJSON...)
}

// fileFingerprint fingerprints whichever text a node's SQL currently
// resolves to: the live override if set, else raw (the manifest's
// raw_sql, passed by the caller since Inputs doesn't itself hold nodes).
func (in *Inputs) fileFingerprint(path, raw string) (text string, fp Fingerprint) {
	if t, ok := in.FileText(path); ok {
		return t, fingerprintString("override", t)
	}
	return raw, fingerprintString("manifest", raw)
}
