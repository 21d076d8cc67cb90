package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/streamio"
	"github.com/ortmerge/ort/object"
)

// compressThreshold is the size above which Memstore stores an object zstd
// compressed instead of raw, mirroring the teacher's large-blob compression
// behavior (modules/streamio's zstd wrapper) without pretending to be a real
// packed object store.
const compressThreshold = 4096

// Memstore is an in-memory, content-addressed object store used by tests and
// the CLI demo. It is a reference implementation of store.Store, not a
// production backend: everything lives in one map for the process lifetime.
type Memstore struct {
	mu      sync.RWMutex
	objects map[plumbing.Hash]storedObject
	commits map[plumbing.Hash]Commit
	parents map[plumbing.Hash][]plumbing.Hash // commit -> parents, duplicated from commits for fast ancestry walks
}

type storedObject struct {
	kind       Kind
	compressed bool
	data       []byte
}

func NewMemstore() *Memstore {
	return &Memstore{
		objects: make(map[plumbing.Hash]storedObject),
		commits: make(map[plumbing.Hash]Commit),
		parents: make(map[plumbing.Hash][]plumbing.Hash),
	}
}

func (m *Memstore) WriteObject(_ context.Context, kind Kind, content []byte) (plumbing.Hash, error) {
	h := plumbing.NewHasher()
	if _, err := h.Write(content); err != nil {
		return plumbing.ZeroHash, err
	}
	oid := h.Sum()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[oid]; ok {
		return oid, nil // content-addressed: identical bytes already stored
	}
	stored := storedObject{kind: kind, data: content}
	if len(content) > compressThreshold {
		var buf bytes.Buffer
		zw := streamio.GetZstdWriter(&buf)
		if _, err := zw.Write(content); err != nil {
			streamio.PutZstdWriter(zw)
			return plumbing.ZeroHash, fmt.Errorf("store: compress object %s: %w", oid, err)
		}
		streamio.PutZstdWriter(zw)
		stored.data = buf.Bytes()
		stored.compressed = true
	}
	m.objects[oid] = stored
	return oid, nil
}

func (m *Memstore) read(oid plumbing.Hash) ([]byte, Kind, error) {
	m.mu.RLock()
	obj, ok := m.objects[oid]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrObjectMissing, oid)
	}
	if !obj.compressed {
		return obj.data, obj.kind, nil
	}
	zr, err := streamio.GetZstdReader(bytes.NewReader(obj.data))
	if err != nil {
		return nil, 0, fmt.Errorf("store: decompress object %s: %w", oid, err)
	}
	defer streamio.PutZstdReader(zr)
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, 0, fmt.Errorf("store: decompress object %s: %w", oid, err)
	}
	return raw, obj.kind, nil
}

func (m *Memstore) ReadBlob(_ context.Context, oid plumbing.Hash) ([]byte, error) {
	data, kind, err := m.read(oid)
	if err != nil {
		return nil, err
	}
	if kind != BlobKind {
		return nil, fmt.Errorf("%w: %s is not a blob", ErrMalformedTree, oid)
	}
	return data, nil
}

func (m *Memstore) ReadTree(_ context.Context, oid plumbing.Hash) (*object.Tree, error) {
	data, kind, err := m.read(oid)
	if err != nil {
		return nil, err
	}
	if kind != TreeKind {
		return nil, fmt.Errorf("%w: %s is not a tree", ErrMalformedTree, oid)
	}
	tree, err := object.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTree, oid, err)
	}
	return tree, nil
}

// PutBlob is a test/CLI convenience that writes a blob and returns its id.
func (m *Memstore) PutBlob(ctx context.Context, content []byte) (plumbing.Hash, error) {
	return m.WriteObject(ctx, BlobKind, content)
}

// PutTree is a test/CLI convenience that encodes and writes a tree.
func (m *Memstore) PutTree(ctx context.Context, t *object.Tree) (plumbing.Hash, error) {
	b, err := t.EncodeToBytes()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return m.WriteObject(ctx, TreeKind, b)
}

// PutCommit registers a synthetic commit (tree + parents) for ancestry
// queries; memstore has no real commit object encoding since the core only
// needs ParseCommit/ancestry, not history storage.
func (m *Memstore) PutCommit(oid plumbing.Hash, c Commit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[oid] = c
	m.parents[oid] = c.Parents
}

func (m *Memstore) ParseCommit(_ context.Context, oid plumbing.Hash) (Commit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commits[oid]
	if !ok {
		return Commit{}, fmt.Errorf("%w: commit %s", ErrObjectMissing, oid)
	}
	return c, nil
}

func (m *Memstore) ancestors(start plumbing.Hash) map[plumbing.Hash]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[plumbing.Hash]bool{start: true}
	queue := []plumbing.Hash{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range m.parents[cur] {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return seen
}

func (m *Memstore) InMergeBases(_ context.Context, a, b plumbing.Hash) (bool, error) {
	return m.ancestors(b)[a], nil
}

// MergeBases returns the commits in ancestors(a) ∩ ancestors(b) that are not
// themselves dominated by another member of the intersection, i.e. the usual
// "best common ancestor" set. More than one surviving result signals a
// criss-cross merge situation to the recursive wrapper.
func (m *Memstore) MergeBases(_ context.Context, a, b plumbing.Hash) ([]plumbing.Hash, error) {
	ancA := m.ancestors(a)
	ancB := m.ancestors(b)
	var common []plumbing.Hash
	for h := range ancA {
		if ancB[h] {
			common = append(common, h)
		}
	}
	var best []plumbing.Hash
	for _, c := range common {
		dominated := false
		for _, other := range common {
			if other == c {
				continue
			}
			if m.ancestors(other)[c] && !m.ancestors(c)[other] {
				dominated = true
				break
			}
		}
		if !dominated {
			best = append(best, c)
		}
	}
	return best, nil
}

func (m *Memstore) AncestryPath(_ context.Context, head, a, b plumbing.Hash) (bool, error) {
	anc := m.ancestors(head)
	if !anc[a] || !anc[b] {
		return false, nil
	}
	m.mu.RLock()
	var merges []plumbing.Hash
	for oid, c := range m.commits {
		if anc[oid] && len(c.Parents) >= 2 {
			merges = append(merges, oid)
		}
	}
	m.mu.RUnlock()

	for _, oid := range merges {
		ancOid := m.ancestors(oid)
		if ancOid[a] && ancOid[b] {
			return true, nil
		}
	}
	return false, nil
}
