// Package flowgraph holds the in-memory directed graph behind a chatbot
// script. The wire format stays the two JSON arrays persisted on the flow
// record; internally nodes and edges are adjacency-indexed so cascade delete
// and cycle probing stay linear in the edge count.
package flowgraph

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/zapcrmio/zapcrm/internal/domain"
)

// Standard error definitions
var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrStartNodeExists = errors.New("flow already has a start node")
	ErrStartNoIncoming = errors.New("start node has no incoming handle")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrDuplicateStart  = errors.New("duplicate start node in stored flow")
)

var nodeTypes = map[string]bool{
	domain.NodeTypeStart: true,
	domain.NodeTypeText:  true,
	domain.NodeTypeImage: true,
	domain.NodeTypeAudio: true,
	domain.NodeTypeVideo: true,
	domain.NodeTypePdf:   true,
	domain.NodeTypeDelay: true,
}

// Graph is the editable script graph. All mutations are volatile until the
// caller serializes it back onto a flow record.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*domain.FlowNode
	edges     map[string]*domain.FlowEdge
	nodeOrder []string
	edgeOrder []string
	outgoing  map[string][]string // node id -> edge ids
	incoming  map[string][]string
	startId   string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*domain.FlowNode),
		edges:    make(map[string]*domain.FlowEdge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// Load rebuilds a graph from the stored arrays. Edges referencing missing
// nodes are dropped silently (older records contain them after partial
// deletes); a second start node is an error because the editor can never
// produce one.
func Load(nodes domain.FlowNodeList, edges domain.FlowEdgeList) (*Graph, error) {
	g := New()
	for i := range nodes {
		n := nodes[i]
		if n.ID == "" || !nodeTypes[n.Type] {
			continue
		}
		if n.Type == domain.NodeTypeStart {
			if g.startId != "" {
				return nil, ErrDuplicateStart
			}
			g.startId = n.ID
		}
		if n.Data == nil {
			n.Data = defaultData(n.Type)
		}
		g.nodes[n.ID] = &n
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	for i := range edges {
		e := edges[i]
		if e.ID == "" {
			continue
		}
		if _, ok := g.nodes[e.Source]; !ok {
			continue
		}
		if _, ok := g.nodes[e.Target]; !ok {
			continue
		}
		g.edges[e.ID] = &e
		g.edgeOrder = append(g.edgeOrder, e.ID)
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e.ID)
		g.incoming[e.Target] = append(g.incoming[e.Target], e.ID)
	}
	return g, nil
}

func defaultData(nodeType string) domain.JSONB {
	switch nodeType {
	case domain.NodeTypeText:
		return domain.JSONB{"content": ""}
	case domain.NodeTypeImage, domain.NodeTypeAudio, domain.NodeTypeVideo, domain.NodeTypePdf:
		return domain.JSONB{"media_url": ""}
	case domain.NodeTypeDelay:
		return domain.JSONB{"delay_seconds": 1}
	default:
		return domain.JSONB{}
	}
}

// AddNode creates a node of the given type at a canvas position with
// type-specific default data. A second start node is rejected.
func (g *Graph) AddNode(nodeType string, pos domain.NodePosition) (*domain.FlowNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !nodeTypes[nodeType] {
		return nil, ErrUnknownNodeType
	}
	if nodeType == domain.NodeTypeStart && g.startId != "" {
		return nil, ErrStartNodeExists
	}

	node := &domain.FlowNode{
		ID:       uuid.NewString(),
		Type:     nodeType,
		Position: pos,
		Data:     defaultData(nodeType),
	}
	g.nodes[node.ID] = node
	g.nodeOrder = append(g.nodeOrder, node.ID)
	if nodeType == domain.NodeTypeStart {
		g.startId = node.ID
	}
	return node, nil
}

// Connect appends a directed edge source -> target. Self-loops and parallel
// edges are allowed; only the start node's missing incoming handle is
// enforced.
func (g *Graph) Connect(source, target string) (*domain.FlowEdge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[source]; !ok {
		return nil, ErrNodeNotFound
	}
	if _, ok := g.nodes[target]; !ok {
		return nil, ErrNodeNotFound
	}
	if target == g.startId && g.startId != "" {
		return nil, ErrStartNoIncoming
	}

	edge := &domain.FlowEdge{
		ID:     uuid.NewString(),
		Source: source,
		Target: target,
	}
	g.edges[edge.ID] = edge
	g.edgeOrder = append(g.edgeOrder, edge.ID)
	g.outgoing[source] = append(g.outgoing[source], edge.ID)
	g.incoming[target] = append(g.incoming[target], edge.ID)
	return edge, nil
}

// Disconnect removes one edge by id.
func (g *Graph) Disconnect(edgeId string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	edge, ok := g.edges[edgeId]
	if !ok {
		return ErrEdgeNotFound
	}
	g.removeEdgeLocked(edge)
	return nil
}

func (g *Graph) removeEdgeLocked(edge *domain.FlowEdge) {
	delete(g.edges, edge.ID)
	g.edgeOrder = removeString(g.edgeOrder, edge.ID)
	g.outgoing[edge.Source] = removeString(g.outgoing[edge.Source], edge.ID)
	g.incoming[edge.Target] = removeString(g.incoming[edge.Target], edge.ID)
}

func removeString(list []string, v string) []string {
	for i, s := range list {
		if s == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// UpdateNodeData replaces a node's data payload in place. When the new
// payload carries a media_url, any legacy media_base64 field is cleared so
// both are never stored together.
func (g *Graph) UpdateNodeData(nodeId string, data domain.JSONB) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeId]
	if !ok {
		return ErrNodeNotFound
	}
	if data == nil {
		data = domain.JSONB{}
	}
	if url, ok := data["media_url"].(string); ok && url != "" {
		delete(data, "media_base64")
	}
	node.Data = data
	return nil
}

// MoveNode updates a node's canvas position.
func (g *Graph) MoveNode(nodeId string, pos domain.NodePosition) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeId]
	if !ok {
		return ErrNodeNotFound
	}
	node.Position = pos
	return nil
}

// DeleteNode removes the node and every edge touching it.
func (g *Graph) DeleteNode(nodeId string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[nodeId]; !ok {
		return ErrNodeNotFound
	}

	touching := make([]*domain.FlowEdge, 0, len(g.outgoing[nodeId])+len(g.incoming[nodeId]))
	for _, id := range g.outgoing[nodeId] {
		touching = append(touching, g.edges[id])
	}
	for _, id := range g.incoming[nodeId] {
		// self-loop edges already collected from outgoing
		if e := g.edges[id]; e != nil && e.Source != nodeId {
			touching = append(touching, e)
		}
	}
	for _, e := range touching {
		g.removeEdgeLocked(e)
	}

	delete(g.nodes, nodeId)
	delete(g.outgoing, nodeId)
	delete(g.incoming, nodeId)
	g.nodeOrder = removeString(g.nodeOrder, nodeId)
	if g.startId == nodeId {
		g.startId = ""
	}
	return nil
}

// StartNode returns the start node if one exists.
func (g *Graph) StartNode() (*domain.FlowNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.startId == "" {
		return nil, false
	}
	n := *g.nodes[g.startId]
	return &n, true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Node returns a copy of one node.
func (g *Graph) Node(nodeId string) (*domain.FlowNode, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[nodeId]
	if !ok {
		return nil, ErrNodeNotFound
	}
	n := *node
	return &n, nil
}

// Serialize returns the wire arrays in insertion order. Only id, type,
// position and data survive; anything view-only never enters the model.
func (g *Graph) Serialize() (domain.FlowNodeList, domain.FlowEdgeList) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make(domain.FlowNodeList, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, *g.nodes[id])
	}
	edges := make(domain.FlowEdgeList, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		edges = append(edges, *g.edges[id])
	}
	return nodes, edges
}

// ApplyTo writes the serialized graph and recomputed node count onto a flow
// record, ready to persist.
func (g *Graph) ApplyTo(flow *domain.Flow) {
	nodes, edges := g.Serialize()
	flow.Nodes = nodes
	flow.Edges = edges
	flow.NodesCount = len(nodes)
}

// DetectCycle reports whether the graph contains a directed cycle. Scripts
// may loop on purpose; this is a probe for callers that want to warn, not a
// validation gate.
func (g *Graph) DetectCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unseen = 0
		active = 1
		done   = 2
	)
	state := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = active
		for _, edgeId := range g.outgoing[id] {
			next := g.edges[edgeId].Target
			switch state[next] {
			case active:
				return true
			case unseen:
				if visit(next) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for _, id := range g.nodeOrder {
		if state[id] == unseen && visit(id) {
			return true
		}
	}
	return false
}
