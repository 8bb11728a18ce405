package flowgraph

import (
	"errors"
	"testing"

	"github.com/zapcrmio/zapcrm/internal/domain"
)

func TestAddNodeStartUniqueness(t *testing.T) {
	g := New()

	start, err := g.AddNode(domain.NodeTypeStart, domain.NodePosition{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("add start: %v", err)
	}
	if start.ID == "" || start.Type != domain.NodeTypeStart {
		t.Fatalf("unexpected start node: %+v", start)
	}

	if _, err := g.AddNode(domain.NodeTypeStart, domain.NodePosition{}); !errors.Is(err, ErrStartNodeExists) {
		t.Fatalf("expected ErrStartNodeExists, got %v", err)
	}

	// after deleting the start node a new one is accepted again
	if err := g.DeleteNode(start.ID); err != nil {
		t.Fatalf("delete start: %v", err)
	}
	if _, err := g.AddNode(domain.NodeTypeStart, domain.NodePosition{}); err != nil {
		t.Fatalf("re-add start after delete: %v", err)
	}

	starts := 0
	nodes, _ := g.Serialize()
	for _, n := range nodes {
		if n.Type == domain.NodeTypeStart {
			starts++
		}
	}
	if starts != 1 {
		t.Fatalf("start count = %d, want 1", starts)
	}
}

func TestAddNodeDefaults(t *testing.T) {
	g := New()

	text, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	if _, ok := text.Data["content"]; !ok {
		t.Errorf("text node missing default content")
	}

	img, _ := g.AddNode(domain.NodeTypeImage, domain.NodePosition{})
	if _, ok := img.Data["media_url"]; !ok {
		t.Errorf("image node missing default media_url")
	}

	delay, _ := g.AddNode(domain.NodeTypeDelay, domain.NodePosition{})
	if delay.Data["delay_seconds"] != 1 {
		t.Errorf("delay node default = %v, want 1", delay.Data["delay_seconds"])
	}

	if _, err := g.AddNode("sticker", domain.NodePosition{}); !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}
}

func TestConnectPermissive(t *testing.T) {
	g := New()
	a, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	b, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})

	if _, err := g.Connect(a.ID, b.ID); err != nil {
		t.Fatalf("connect: %v", err)
	}
	// parallel edge allowed
	if _, err := g.Connect(a.ID, b.ID); err != nil {
		t.Fatalf("parallel connect rejected: %v", err)
	}
	// self-loop allowed
	if _, err := g.Connect(a.ID, a.ID); err != nil {
		t.Fatalf("self-loop rejected: %v", err)
	}
	if g.EdgeCount() != 3 {
		t.Fatalf("edge count = %d, want 3", g.EdgeCount())
	}

	if _, err := g.Connect(a.ID, "missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestConnectStartHasNoIncoming(t *testing.T) {
	g := New()
	start, _ := g.AddNode(domain.NodeTypeStart, domain.NodePosition{})
	text, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})

	if _, err := g.Connect(start.ID, text.ID); err != nil {
		t.Fatalf("start -> text: %v", err)
	}
	if _, err := g.Connect(text.ID, start.ID); !errors.Is(err, ErrStartNoIncoming) {
		t.Fatalf("expected ErrStartNoIncoming, got %v", err)
	}
}

func TestDeleteNodeCascadesEdges(t *testing.T) {
	g := New()
	a, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	b, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	c, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})

	g.Connect(a.ID, b.ID)
	g.Connect(b.ID, c.ID)
	g.Connect(c.ID, a.ID)
	g.Connect(b.ID, b.ID) // self-loop on the victim

	if err := g.DeleteNode(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if g.NodeCount() != 2 {
		t.Errorf("node count = %d, want 2", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("edge count = %d, want 1 (only c->a survives)", g.EdgeCount())
	}
	_, edges := g.Serialize()
	for _, e := range edges {
		if e.Source == b.ID || e.Target == b.ID {
			t.Errorf("dangling edge survived: %+v", e)
		}
	}
}

func TestDisconnect(t *testing.T) {
	g := New()
	a, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	b, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	edge, _ := g.Connect(a.ID, b.ID)

	if err := g.Disconnect(edge.ID); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("edge count = %d, want 0", g.EdgeCount())
	}
	if err := g.Disconnect(edge.ID); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("expected ErrEdgeNotFound, got %v", err)
	}
}

func TestUpdateNodeDataClearsLegacyBase64(t *testing.T) {
	g := New()
	img, _ := g.AddNode(domain.NodeTypeImage, domain.NodePosition{})

	err := g.UpdateNodeData(img.ID, domain.JSONB{
		"media_url":    "https://cdn.example.com/a.png",
		"media_base64": "aGVsbG8=",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	node, _ := g.Node(img.ID)
	if _, ok := node.Data["media_base64"]; ok {
		t.Errorf("media_base64 not cleared when media_url is set")
	}
	if node.Data["media_url"] != "https://cdn.example.com/a.png" {
		t.Errorf("media_url lost: %v", node.Data["media_url"])
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	g := New()
	start, _ := g.AddNode(domain.NodeTypeStart, domain.NodePosition{X: 1, Y: 2})
	text, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{X: 3, Y: 4})
	g.Connect(start.ID, text.ID)

	nodes, edges := g.Serialize()

	loaded, err := Load(nodes, edges)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.NodeCount() != 2 || loaded.EdgeCount() != 1 {
		t.Fatalf("round trip lost elements: %d nodes %d edges", loaded.NodeCount(), loaded.EdgeCount())
	}
	if s, ok := loaded.StartNode(); !ok || s.ID != start.ID {
		t.Errorf("start node lost in round trip")
	}
}

func TestLoadDropsDanglingEdgesAndRejectsTwoStarts(t *testing.T) {
	nodes := domain.FlowNodeList{
		{ID: "n1", Type: domain.NodeTypeText},
	}
	edges := domain.FlowEdgeList{
		{ID: "e1", Source: "n1", Target: "ghost"},
	}
	g, err := Load(nodes, edges)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("dangling edge kept on load")
	}

	twoStarts := domain.FlowNodeList{
		{ID: "s1", Type: domain.NodeTypeStart},
		{ID: "s2", Type: domain.NodeTypeStart},
	}
	if _, err := Load(twoStarts, nil); !errors.Is(err, ErrDuplicateStart) {
		t.Errorf("expected ErrDuplicateStart, got %v", err)
	}
}

func TestDetectCycle(t *testing.T) {
	g := New()
	a, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	b, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	c, _ := g.AddNode(domain.NodeTypeText, domain.NodePosition{})
	g.Connect(a.ID, b.ID)
	g.Connect(b.ID, c.ID)

	if g.DetectCycle() {
		t.Fatalf("acyclic graph reported cyclic")
	}
	g.Connect(c.ID, a.ID)
	if !g.DetectCycle() {
		t.Fatalf("cycle not detected")
	}
}

func TestApplyTo(t *testing.T) {
	g := New()
	g.AddNode(domain.NodeTypeStart, domain.NodePosition{})
	g.AddNode(domain.NodeTypeText, domain.NodePosition{})

	var flow domain.Flow
	g.ApplyTo(&flow)
	if flow.NodesCount != 2 {
		t.Errorf("nodes_count = %d, want 2", flow.NodesCount)
	}
	if len(flow.Nodes) != 2 || len(flow.Edges) != 0 {
		t.Errorf("arrays not applied: %d nodes %d edges", len(flow.Nodes), len(flow.Edges))
	}
}
