// Package hnsw implements a Hierarchical Navigable Small World graph for
// approximate nearest-neighbor search over embeddings. Nodes are stored
// in an arena indexed by a stable integer id; neighbor sets hold those
// ids rather than pointers so the graph can be snapshotted, copied, or
// rebuilt without fixing up pointer graphs.
package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/dreamware/torusdb/internal/terrors"
)

// Config tunes graph shape and search effort.
type Config struct {
	M              int // max neighbors per node at layers >= 1
	M0             int // max neighbors per node at layer 0
	EfConstruction int
	Ef             int
	Metric         Metric
}

// DefaultConfig matches the reference parameters: M=16, M0=32,
// efConstruction=200, ef=50, cosine distance.
func DefaultConfig() Config {
	return Config{
		M:              16,
		M0:             32,
		EfConstruction: 200,
		Ef:             50,
		Metric:         Cosine,
	}
}

type arenaID uint32

type node struct {
	extID     string
	vec       Vector
	maxLayer  int
	neighbors [][]arenaID // neighbors[layer] = arena ids, layer 0..maxLayer
}

// Graph is a mutable HNSW index. The zero value is not usable; call New.
type Graph struct {
	mu  sync.RWMutex
	cfg Config

	mL float64 // 1/ln(M), level-generation parameter

	nodes      []*node
	idToArena  map[string]arenaID
	entryPoint arenaID
	hasEntry   bool
	maxLevel   int

	rng *rand.Rand
}

// New creates an empty graph with the given config. A zero-value field
// in cfg falls back to DefaultConfig()'s value for that field.
func New(cfg Config) (*Graph, error) {
	def := DefaultConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.M0 <= 0 {
		cfg.M0 = def.M0
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = def.EfConstruction
	}
	if cfg.Ef <= 0 {
		cfg.Ef = def.Ef
	}
	if cfg.Metric == nil {
		cfg.Metric = def.Metric
	}
	if cfg.M < 2 {
		return nil, terrors.NewValidation("hnsw.M", "must be >= 2")
	}
	return &Graph{
		cfg:       cfg,
		mL:        1 / math.Log(float64(cfg.M)),
		idToArena: make(map[string]arenaID),
		rng:       rand.New(rand.NewSource(1)),
	}, nil
}

// Len returns the number of nodes currently in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// drawLevel samples a layer from the geometric distribution with
// parameter mL = 1/ln(M), matching the reference HNSW level generator.
func (g *Graph) drawLevel() int {
	r := g.rng.Float64()
	for r == 0 {
		r = g.rng.Float64()
	}
	return int(math.Floor(-math.Log(r) * g.mL))
}

type candidate struct {
	id   arenaID
	dist float64
}

// Insert adds extID with embedding vec to the graph. Re-inserting an
// existing extID returns a Conflict error; callers that want
// update-in-place semantics should Delete then Insert.
func (g *Graph) Insert(extID string, vec Vector) error {
	if extID == "" {
		return terrors.NewValidation("hnsw.id", "empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.idToArena[extID]; exists {
		return terrors.NewConflict("entity already present in vector index: " + extID)
	}

	level := g.drawLevel()
	id := arenaID(len(g.nodes))
	n := &node{
		extID:     extID,
		vec:       vec,
		maxLayer:  level,
		neighbors: make([][]arenaID, level+1),
	}
	g.nodes = append(g.nodes, n)
	g.idToArena[extID] = id

	if !g.hasEntry {
		g.entryPoint = id
		g.hasEntry = true
		g.maxLevel = level
		return nil
	}

	entry := g.entryPoint
	curDist := g.cfg.Metric(vec, g.nodes[entry].vec)

	// Phase 1: greedy descend from max level down to level+1, keeping a
	// single best candidate per layer.
	for layer := g.maxLevel; layer > level; layer-- {
		entry, curDist = g.greedyStep(entry, curDist, vec, layer)
	}

	// Phase 2: for layers min(maxLevel, level)..0, search with
	// efConstruction and connect M (or M0 at layer 0) neighbors.
	for layer := min(g.maxLevel, level); layer >= 0; layer-- {
		found := g.searchLayer(vec, entry, g.cfg.EfConstruction, layer)
		cap := g.capForLayer(layer)
		selected := selectNearest(found, cap)

		n.neighbors[layer] = make([]arenaID, 0, len(selected))
		for _, c := range selected {
			n.neighbors[layer] = append(n.neighbors[layer], c.id)
			g.addBidirectional(id, c.id, layer)
		}
		if len(selected) > 0 {
			entry = selected[0].id
		}
	}

	if level > g.maxLevel {
		g.maxLevel = level
		g.entryPoint = id
	}
	return nil
}

func (g *Graph) capForLayer(layer int) int {
	if layer == 0 {
		return g.cfg.M0
	}
	return g.cfg.M
}

// addBidirectional adds b to a's neighbor list and a to b's, at layer,
// truncating whichever side overflows its cap down to the cap nearest
// neighbors.
func (g *Graph) addBidirectional(a, b arenaID, layer int) {
	g.linkOneWay(a, b, layer)
	g.linkOneWay(b, a, layer)
}

func (g *Graph) linkOneWay(from, to arenaID, layer int) {
	n := g.nodes[from]
	if layer > n.maxLayer {
		return
	}
	for _, existing := range n.neighbors[layer] {
		if existing == to {
			return
		}
	}
	n.neighbors[layer] = append(n.neighbors[layer], to)

	cap := g.capForLayer(layer)
	if len(n.neighbors[layer]) <= cap {
		return
	}

	cands := make([]candidate, 0, len(n.neighbors[layer]))
	for _, nb := range n.neighbors[layer] {
		cands = append(cands, candidate{id: nb, dist: g.cfg.Metric(n.vec, g.nodes[nb].vec)})
	}
	kept := selectNearest(cands, cap)
	n.neighbors[layer] = n.neighbors[layer][:0]
	for _, c := range kept {
		n.neighbors[layer] = append(n.neighbors[layer], c.id)
	}
}

// greedyStep scans the current node's neighbors at layer and moves to
// the closest one if it improves on curDist, repeating until no
// neighbor improves (single-best greedy descent).
func (g *Graph) greedyStep(entry arenaID, curDist float64, query Vector, layer int) (arenaID, float64) {
	improved := true
	for improved {
		improved = false
		n := g.nodes[entry]
		if layer > n.maxLayer {
			break
		}
		for _, nb := range n.neighbors[layer] {
			d := g.cfg.Metric(query, g.nodes[nb].vec)
			if d < curDist {
				curDist = d
				entry = nb
				improved = true
			}
		}
	}
	return entry, curDist
}

// searchLayer runs the standard HNSW layer search: a candidate set
// bounded by ef, expanding through unvisited neighbors, returning the
// ef closest nodes found. Each node is visited at most once.
func (g *Graph) searchLayer(query Vector, entry arenaID, ef int, layer int) []candidate {
	visited := map[arenaID]bool{entry: true}
	entryDist := g.cfg.Metric(query, g.nodes[entry].vec)

	candidates := []candidate{{id: entry, dist: entryDist}}
	results := []candidate{{id: entry, dist: entryDist}}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
		cur := candidates[0]
		candidates = candidates[1:]

		sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
		if len(results) >= ef && cur.dist > results[len(results)-1].dist {
			break
		}

		n := g.nodes[cur.id]
		if layer > n.maxLayer {
			continue
		}
		for _, nb := range n.neighbors[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d := g.cfg.Metric(query, g.nodes[nb].vec)

			sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
			worst := math.Inf(1)
			if len(results) >= ef {
				worst = results[len(results)-1].dist
			}
			if len(results) < ef || d < worst {
				candidates = append(candidates, candidate{id: nb, dist: d})
				results = append(results, candidate{id: nb, dist: d})
				if len(results) > ef {
					sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
					results = results[:ef]
				}
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
	return results
}

func selectNearest(cands []candidate, k int) []candidate {
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// Neighbor is a single search result.
type Neighbor struct {
	ID       string
	Distance float64
}

// Search returns the k nearest neighbors to query, sorted ascending by
// distance. Returns an empty slice for an empty graph and tolerates k
// larger than the graph size by returning every node.
func (g *Graph) Search(query Vector, k int, ef int) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasEntry {
		return []Neighbor{}
	}
	if ef < k {
		ef = k
	}

	entry := g.entryPoint
	curDist := g.cfg.Metric(query, g.nodes[entry].vec)
	for layer := g.maxLevel; layer >= 1; layer-- {
		entry, curDist = g.greedyStep(entry, curDist, query, layer)
	}
	_ = curDist

	found := g.searchLayer(query, entry, ef, 0)
	if len(found) > k {
		found = found[:k]
	}

	out := make([]Neighbor, len(found))
	for i, c := range found {
		out[i] = Neighbor{ID: g.nodes[c.id].extID, Distance: c.dist}
	}
	return out
}

// HasNeighbor reports whether a's neighbor set at layer contains b,
// used by symmetry tests.
func (g *Graph) HasNeighbor(a, b string, layer int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	aid, ok := g.idToArena[a]
	if !ok {
		return false
	}
	bid, ok := g.idToArena[b]
	if !ok {
		return false
	}
	n := g.nodes[aid]
	if layer > n.maxLayer {
		return false
	}
	for _, nb := range n.neighbors[layer] {
		if nb == bid {
			return true
		}
	}
	return false
}
