package recognize

import (
	"sync"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the graph; enrollment sets are
// small (one household), so a modest fan-out is plenty.
const hnswMaxNeighbors = 16

// EnrollmentIndex holds the enrolled face encodings in an HNSW graph for
// fast nearest-neighbor lookup during recognition.
//
// The index is built once at startup from the profile store and rebuilt
// wholesale when enrollment changes; per-query access is read-locked.
type EnrollmentIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	idToPerson map[int64]string
	nextID     int64
}

// NewEnrollmentIndex creates an empty index.
func NewEnrollmentIndex() *EnrollmentIndex {
	return &EnrollmentIndex{idToPerson: make(map[int64]string)}
}

// Add inserts one encoding for a person. Multiple encodings per person are
// expected; each becomes its own graph node.
func (idx *EnrollmentIndex) Add(personID string, embedding []float32) {
	if personID == "" || len(embedding) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = hnswMaxNeighbors
		g.Ml = 1.0 / float64(hnswMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		idx.graph = g
	}

	idx.nextID++
	id := idx.nextID
	idx.graph.Add(hnsw.MakeNode(id, embedding))
	idx.idToPerson[id] = personID
}

// Nearest returns the closest enrolled person and the cosine distance to the
// matched encoding. ok is false when the index is empty.
func (idx *EnrollmentIndex) Nearest(query []float32) (personID string, distance float64, ok bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil {
		return "", 0, false
	}

	neighbors := idx.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return "", 0, false
	}

	node := neighbors[0]
	person, found := idx.idToPerson[node.Key]
	if !found {
		return "", 0, false
	}
	// Recompute the exact distance from the node's stored vector; the graph
	// search order is approximate.
	return person, CosineDistance(query, node.Value), true
}

// Len returns the number of enrolled encodings.
func (idx *EnrollmentIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idToPerson)
}

// Reset drops all enrolled encodings.
func (idx *EnrollmentIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph = nil
	idx.idToPerson = make(map[int64]string)
	idx.nextID = 0
}
