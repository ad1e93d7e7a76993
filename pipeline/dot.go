package pipeline

import (
	"fmt"

	"github.com/emicklei/dot"
)

// ExportDOT renders a node chain as a Graphviz DOT graph for diagnosing
// ordering/rank bugs. It is debug-only tooling, never consulted by Run.
func ExportDOT(class Class, nodes []Node) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("label", fmt.Sprintf("pipeline:%s", class))

	var prev dot.Node
	for i, n := range nodes {
		label := fmt.Sprintf("%s\\nrank=%d\\nprio=%d\\nfp=%x", n.Instance.Op, n.Instance.Rank, n.Instance.InstancePriority, n.Fingerprint)
		node := g.Node(fmt.Sprintf("n%d", i)).Label(label)
		if i > 0 {
			g.Edge(prev, node)
		}
		prev = node
	}
	return g.String()
}
