package datastructure

import (
	"github.com/lintang-b-s/kwayrefine/pkg"
)

// MaxFlowEdge is one directed residual-graph edge used by the 2-way flow
// refinement collaborator. Capacities are the (possibly aggregated) edge
// weight of the underlying partition graph rather than unit capacity, since
// refinement works on weighted CSR graphs instead of unweighted road
// networks.
type MaxFlowEdge struct {
	id       int
	u        Index
	v        Index
	capacity int64
	flow     int64
}

func NewMaxFlowEdge(id int, u, v Index, capacity int64) *MaxFlowEdge {
	return &MaxFlowEdge{
		id:       id,
		u:        u,
		v:        v,
		capacity: capacity,
		flow:     0,
	}
}

func (e *MaxFlowEdge) GetID() int         { return e.id }
func (e *MaxFlowEdge) GetCapacity() int64 { return e.capacity }
func (e *MaxFlowEdge) GetFlow() int64     { return e.flow }
func (e *MaxFlowEdge) GetFrom() Index     { return e.u }
func (e *MaxFlowEdge) GetTo() Index       { return e.v }
func (e *MaxFlowEdge) AddFlow(f int64)    { e.flow += f }

// PartitionVertex identifies a vertex of the flow graph with the id of the
// refinement-engine vertex it was built from.
type PartitionVertex struct {
	id               Index
	originalVertexId Index
}

func NewPartitionVertex(id, originalVertexId Index) PartitionVertex {
	return PartitionVertex{id: id, originalVertexId: originalVertexId}
}

func (v *PartitionVertex) GetID() Index               { return v.id }
func (v *PartitionVertex) SetId(id Index)             { v.id = id }
func (v *PartitionVertex) GetOriginalVertexID() Index { return v.originalVertexId }

// PartitionGraph is the residual flow network the 2-way flow refiner runs
// Dinic/Edmonds-Karp over: a block pair's boundary plus an artificial source
// and sink anchoring each side's interior vertices.
type PartitionGraph struct {
	vertices      []PartitionVertex
	adjacencyList [][]int
	edgeList      []*MaxFlowEdge
	level         []int
	last          []int
	visited       []bool
	prev          []*MaxFlowEdge
}

func NewPartitionGraph(numberOfVertices int) *PartitionGraph {
	adjacencyList := make([][]int, numberOfVertices)
	for i := range adjacencyList {
		adjacencyList[i] = make([]int, 0)
	}
	return &PartitionGraph{
		vertices:      make([]PartitionVertex, 0),
		adjacencyList: adjacencyList,
		edgeList:      make([]*MaxFlowEdge, 0),
		level:         make([]int, numberOfVertices),
		last:          make([]int, numberOfVertices),
		visited:       make([]bool, numberOfVertices),
		prev:          make([]*MaxFlowEdge, numberOfVertices),
	}
}

func (g *PartitionGraph) GetVertices() []PartitionVertex { return g.vertices }
func (g *PartitionGraph) NumberOfVertices() int           { return len(g.vertices) }

func (g *PartitionGraph) SetVisited(u Index, visited bool) { g.visited[u] = visited }
func (g *PartitionGraph) IsVisited(u Index) bool            { return g.visited[u] }

func (g *PartitionGraph) HandleVisited(handle func(u Index, visited bool)) {
	for u, visited := range g.visited {
		handle(Index(u), visited)
	}
}

func (g *PartitionGraph) AddVertex(v PartitionVertex) {
	g.vertices = append(g.vertices, v)
	if len(g.adjacencyList) < int(v.id)+1 {
		g.adjacencyList = append(g.adjacencyList, []int{})
	}
	if len(g.level) < int(v.id)+1 {
		g.level = append(g.level, 0)
	}
	if len(g.last) < int(v.id)+1 {
		g.last = append(g.last, 0)
	}
	if len(g.visited) < int(v.id)+1 {
		g.visited = append(g.visited, false)
	}
	if len(g.prev) < int(v.id)+1 {
		g.prev = append(g.prev, nil)
	}
}

func (g *PartitionGraph) GetVertex(u Index) PartitionVertex { return g.vertices[u] }

func (g *PartitionGraph) ResetGraph() {
	for _, edge := range g.edgeList {
		edge.flow = 0
	}
	for i := range g.visited {
		g.visited[i] = false
		g.level[i] = 0
		g.last[i] = 0
		g.prev[i] = nil
	}
}

func (g *PartitionGraph) GetVertexLevel(u Index) int        { return g.level[u] }
func (g *PartitionGraph) SetVertexLevel(u Index, level int) { g.level[u] = level }

func (g *PartitionGraph) GetLastEdgeIndex(u Index) int      { return g.last[u] }
func (g *PartitionGraph) SetLastEdgeIndex(u Index, idx int) { g.last[u] = idx }
func (g *PartitionGraph) IncrementLastEdgeIndex(u Index)    { g.last[u]++ }

func (g *PartitionGraph) GetVertexEdgesSize(u Index) int { return len(g.adjacencyList[u]) }

func (g *PartitionGraph) GetEdgeOfVertex(u Index, idx int) *MaxFlowEdge {
	edgeIndex := g.adjacencyList[u][idx]
	return g.edgeList[edgeIndex]
}

func (g *PartitionGraph) GetReversedEdgeOfVertex(u Index, idx int) *MaxFlowEdge {
	edgeIndex := g.adjacencyList[u][idx] ^ 1
	return g.edgeList[edgeIndex]
}

func (g *PartitionGraph) ForEachVertexEdges(u Index, handle func(e *MaxFlowEdge)) {
	for _, edgeIdx := range g.adjacencyList[u] {
		handle(g.edgeList[edgeIdx])
	}
}

func (g *PartitionGraph) ForEachVertices(handle func(v PartitionVertex)) {
	for _, v := range g.vertices {
		handle(v)
	}
}

func (g *PartitionGraph) GetEdgeById(eId int) *MaxFlowEdge { return g.edgeList[eId] }

// AddEdge inserts an undirected edge of the given capacity as two directed
// residual edges (even/odd ids, so idx^1 reaches the reverse edge).
func (g *PartitionGraph) AddEdge(u, v Index, capacity int64) {
	if u == v {
		return
	}
	edge := NewMaxFlowEdge(len(g.edgeList), u, v, capacity)
	g.edgeList = append(g.edgeList, edge)
	g.adjacencyList[u] = append(g.adjacencyList[u], len(g.edgeList)-1)

	reverseEdge := NewMaxFlowEdge(len(g.edgeList), v, u, capacity)
	g.edgeList = append(g.edgeList, reverseEdge)
	g.adjacencyList[v] = append(g.adjacencyList[v], len(g.edgeList)-1)
}

// AddInfEdge anchors an interior vertex to the artificial source/sink with
// an effectively-unbounded capacity, so the cut never severs it.
func (g *PartitionGraph) AddInfEdge(u, v Index) {
	g.AddEdge(u, v, pkg.InfWeight)
}

func (g *PartitionGraph) ForEdgeList(handle func(e *MaxFlowEdge, eId int)) {
	for eId, e := range g.edgeList {
		handle(e, eId)
	}
}

func (g *PartitionGraph) AddSingleEdge(e *MaxFlowEdge, eId int) {
	u := e.GetFrom()
	g.edgeList = append(g.edgeList, e)
	g.adjacencyList[u] = append(g.adjacencyList[u], len(g.edgeList)-1)
}

// GetPrev/SetPrev/ResetPrev back Edmonds-Karp's BFS parent-edge trail.
func (g *PartitionGraph) GetPrev(u Index) *MaxFlowEdge  { return g.prev[u] }
func (g *PartitionGraph) SetPrev(u Index, e *MaxFlowEdge) { g.prev[u] = e }
func (g *PartitionGraph) ResetPrev() {
	for i := range g.prev {
		g.prev[i] = nil
	}
}

func (pg *PartitionGraph) Clone() *PartitionGraph {
	newPg := NewPartitionGraph(pg.NumberOfVertices())

	for i := 0; i < pg.NumberOfVertices(); i++ {
		v := pg.GetVertex(Index(i))
		newPg.AddVertex(NewPartitionVertex(v.GetID(), v.GetOriginalVertexID()))
	}

	copy(newPg.level, pg.level)
	copy(newPg.last, pg.last)

	for i, adj := range pg.adjacencyList {
		newAdj := make([]int, len(adj))
		copy(newAdj, adj)
		newPg.adjacencyList[i] = newAdj
	}
	for _, e := range pg.edgeList {
		newPg.edgeList = append(newPg.edgeList, NewMaxFlowEdge(e.id, e.u, e.v, e.capacity))
	}

	return newPg
}
