package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ortmerge/ort/modules/plumbing"
)

// snapshotObject and snapshotDocument are the on-disk JSON shape of a
// Memstore dump: plain enough for the CLI demo to round-trip a handful of
// trees/blobs/commits without pulling in a real packfile format.
type snapshotObject struct {
	Kind Kind   `json:"kind"`
	Data string `json:"data"` // base64
}

type snapshotCommit struct {
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

type snapshotDocument struct {
	Objects map[string]snapshotObject `json:"objects"`
	Commits map[string]snapshotCommit `json:"commits"`
}

// LoadMemstoreSnapshot reads a JSON snapshot written by SaveMemstoreSnapshot
// (or hand-authored for a test fixture) into a fresh Memstore.
func LoadMemstoreSnapshot(path string) (*Memstore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read snapshot %s: %w", path, err)
	}
	var doc snapshotDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("store: decode snapshot %s: %w", path, err)
	}

	m := NewMemstore()
	for hex, obj := range doc.Objects {
		data, err := base64.StdEncoding.DecodeString(obj.Data)
		if err != nil {
			return nil, fmt.Errorf("store: snapshot object %s: %w", hex, err)
		}
		oid, err := plumbing.NewHashEx(hex)
		if err != nil {
			return nil, fmt.Errorf("store: snapshot object id %s: %w", hex, err)
		}
		m.objects[oid] = storedObject{kind: obj.Kind, data: data}
	}
	for hex, c := range doc.Commits {
		oid, err := plumbing.NewHashEx(hex)
		if err != nil {
			return nil, fmt.Errorf("store: snapshot commit id %s: %w", hex, err)
		}
		tree, err := plumbing.NewHashEx(c.Tree)
		if err != nil {
			return nil, fmt.Errorf("store: snapshot commit %s tree: %w", hex, err)
		}
		parents := make([]plumbing.Hash, 0, len(c.Parents))
		for _, p := range c.Parents {
			ph, err := plumbing.NewHashEx(p)
			if err != nil {
				return nil, fmt.Errorf("store: snapshot commit %s parent: %w", hex, err)
			}
			parents = append(parents, ph)
		}
		m.PutCommit(oid, Commit{Tree: tree, Parents: parents})
	}
	return m, nil
}

// SaveMemstoreSnapshot writes m's contents to path as JSON, overwriting any
// existing file. Objects are never compressed in the snapshot regardless of
// how Memstore stored them in memory, so the file is self-contained and
// greppable.
func SaveMemstoreSnapshot(path string, m *Memstore) error {
	// read() takes its own RLock, so the object/commit ids are copied out
	// under one lock acquisition and the data is re-read without holding it,
	// rather than nesting a second RLock inside this one.
	m.mu.RLock()
	oids := make([]plumbing.Hash, 0, len(m.objects))
	for oid := range m.objects {
		oids = append(oids, oid)
	}
	commits := make(map[plumbing.Hash]Commit, len(m.commits))
	for oid, c := range m.commits {
		commits[oid] = c
	}
	m.mu.RUnlock()

	doc := snapshotDocument{
		Objects: make(map[string]snapshotObject, len(oids)),
		Commits: make(map[string]snapshotCommit, len(commits)),
	}
	for _, oid := range oids {
		data, kind, err := m.read(oid)
		if err != nil {
			return fmt.Errorf("store: snapshot read %s: %w", oid, err)
		}
		doc.Objects[oid.String()] = snapshotObject{
			Kind: kind,
			Data: base64.StdEncoding.EncodeToString(data),
		}
	}
	for oid, c := range commits {
		parents := make([]string, 0, len(c.Parents))
		for _, p := range c.Parents {
			parents = append(parents, p.String())
		}
		doc.Commits[oid.String()] = snapshotCommit{Tree: c.Tree.String(), Parents: parents}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("store: write snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename snapshot %s: %w", tmp, err)
	}
	return nil
}
