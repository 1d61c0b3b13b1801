package flat

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Metric selects the distance function.
type Metric string

// Supported metrics.
const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// DefaultFileName is the index file created inside the index directory.
const DefaultFileName = "vectors.db"

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")

	keyDimensions = []byte("dimensions")
	keyMetric     = []byte("metric")
)

// Config configures an index.
type Config struct {
	// Path is the bbolt file. Parent directories are created.
	Path string

	// Dimensions is the size of every stored vector.
	Dimensions int

	// Metric is the distance function (default: cosine).
	Metric Metric
}

type entry struct {
	chunkID string
	seq     uint64
	vec     []float32
	norm    float64
}

// Index is an exact vector index.
type Index struct {
	db     *bbolt.DB
	path   string
	dims   int
	metric Metric

	// writeMu serialises Insert and Reset and guards ids.
	writeMu sync.Mutex
	ids     map[string]int

	mu      sync.RWMutex
	entries []entry
}

// Open opens or creates the index at cfg.Path and replays its entries.
// A file created with different dimensions or metric, or one holding a
// malformed entry, fails with domain.ErrIndexIntegrity.
func Open(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if cfg.Metric != MetricCosine && cfg.Metric != MetricL2 {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, cfg.Metric)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	idx := &Index{
		db:     db,
		path:   cfg.Path,
		dims:   cfg.Dimensions,
		metric: cfg.Metric,
		ids:    make(map[string]int),
	}

	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := idx.replay(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("vector index %s: %d entries, %d dimensions, %s", cfg.Path, len(idx.entries), idx.dims, idx.metric)
	return idx, nil
}

// init creates the buckets and checks stored meta against the config.
func (idx *Index) init() error {
	return idx.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}

		storedDims := meta.Get(keyDimensions)
		storedMetric := meta.Get(keyMetric)
		if storedDims == nil && storedMetric == nil {
			dims := make([]byte, 4)
			binary.BigEndian.PutUint32(dims, uint32(idx.dims))
			if err := meta.Put(keyDimensions, dims); err != nil {
				return err
			}
			return meta.Put(keyMetric, []byte(idx.metric))
		}

		if len(storedDims) != 4 || int(binary.BigEndian.Uint32(storedDims)) != idx.dims {
			return fmt.Errorf("%w: index %s was built with different dimensions", domain.ErrIndexIntegrity, idx.path)
		}
		if Metric(storedMetric) != idx.metric {
			return fmt.Errorf("%w: index %s uses metric %q, configured %q",
				domain.ErrIndexIntegrity, idx.path, storedMetric, idx.metric)
		}
		return nil
	})
}

func (idx *Index) replay() error {
	return idx.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("%w: malformed entry key", domain.ErrIndexIntegrity)
			}
			id, vec, err := decodeEntry(v, idx.dims)
			if err != nil {
				return err
			}
			if _, dup := idx.ids[id]; dup {
				return fmt.Errorf("%w: chunk %s stored twice", domain.ErrIndexIntegrity, id)
			}
			idx.ids[id] = len(idx.entries)
			idx.entries = append(idx.entries, entry{
				chunkID: id,
				seq:     binary.BigEndian.Uint64(k),
				vec:     vec,
				norm:    norm(vec),
			})
			return nil
		})
	})
}

// Insert appends a vector for chunkID and commits it before returning.
func (idx *Index) Insert(ctx context.Context, chunkID string, embedding []float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if chunkID == "" {
		return false, fmt.Errorf("%w: empty chunk id", domain.ErrInvalidInput)
	}
	if len(chunkID) > math.MaxUint16 {
		return false, fmt.Errorf("%w: chunk id too long", domain.ErrInvalidInput)
	}
	if len(embedding) != idx.dims {
		return false, fmt.Errorf("%w: vector has %d dimensions, index has %d",
			domain.ErrIndexIntegrity, len(embedding), idx.dims)
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if pos, ok := idx.ids[chunkID]; ok {
		idx.mu.RLock()
		existing := idx.entries[pos].vec
		idx.mu.RUnlock()
		if equal(existing, embedding) {
			return false, nil
		}
		return false, fmt.Errorf("%w: chunk %s already indexed with a different vector",
			domain.ErrIndexIntegrity, chunkID)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	var seq uint64
	err := idx.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, encodeEntry(chunkID, vec))
	})
	if err != nil {
		return false, fmt.Errorf("persist vector: %w", err)
	}

	idx.mu.Lock()
	idx.entries = append(idx.entries, entry{chunkID: chunkID, seq: seq, vec: vec, norm: norm(vec)})
	idx.ids[chunkID] = len(idx.entries) - 1
	idx.mu.Unlock()

	return true, nil
}

// Search returns the k nearest entries to query, nearest first. Equal
// distances keep insertion order.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrIndexIntegrity, len(query), idx.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	snapshot := idx.entries
	idx.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil, nil
	}

	qnorm := norm(query)
	hits := make([]driven.VectorHit, len(snapshot))
	for i := range snapshot {
		d := idx.distance(query, qnorm, &snapshot[i])
		hits[i] = driven.VectorHit{
			ChunkID:    snapshot[i].chunkID,
			Seq:        snapshot[i].seq,
			Distance:   d,
			Similarity: idx.similarity(d),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimensions returns the configured vector size.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Metric returns the configured distance function.
func (idx *Index) Metric() Metric {
	return idx.metric
}

// Path returns the index file path.
func (idx *Index) Path() string {
	return idx.path
}

// Reset removes every entry and restarts the sequence.
func (idx *Index) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	err := idx.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketEntries)
		return err
	})
	if err != nil {
		return fmt.Errorf("reset index: %w", err)
	}

	idx.mu.Lock()
	idx.entries = nil
	idx.mu.Unlock()
	idx.ids = make(map[string]int)

	logger.Info("vector index reset")
	return nil
}

// Close releases the bbolt file.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) distance(q []float32, qnorm float64, e *entry) float64 {
	switch idx.metric {
	case MetricL2:
		var sum float64
		for i := range q {
			d := float64(q[i]) - float64(e.vec[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		if qnorm == 0 || e.norm == 0 {
			return 1
		}
		var dot float64
		for i := range q {
			dot += float64(q[i]) * float64(e.vec[i])
		}
		d := 1 - dot/(qnorm*e.norm)
		if d < 0 {
			d = 0
		}
		return d
	}
}

func (idx *Index) similarity(d float64) float64 {
	if idx.metric == MetricL2 {
		return 1 / (1 + d)
	}
	s := 1 - d
	if s < 0 {
		s = 0
	}
	return s
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func equal(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

func encodeEntry(id string, vec []float32) []byte {
	buf := make([]byte, 2+len(id)+4*len(vec))
	binary.BigEndian.PutUint16(buf, uint16(len(id)))
	copy(buf[2:], id)
	off := 2 + len(id)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[off+4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEntry(buf []byte, dims int) (string, []float32, error) {
	if len(buf) < 2 {
		return "", nil, fmt.Errorf("%w: truncated entry", domain.ErrIndexIntegrity)
	}
	idLen := int(binary.BigEndian.Uint16(buf))
	if idLen == 0 || len(buf) != 2+idLen+4*dims {
		return "", nil, fmt.Errorf("%w: entry size %d does not match %d dimensions",
			domain.ErrIndexIntegrity, len(buf), dims)
	}
	id := string(buf[2 : 2+idLen])
	vec := make([]float32, dims)
	off := 2 + idLen
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4*i:]))
	}
	return id, vec, nil
}
