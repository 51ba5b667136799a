package callgraph

import (
	"fmt"
	"sort"
	"strings"
)

// renderTree implements spec.md §4.8's rendering rule: an ASCII tree with
// box-drawing connectors, children sorted by sortBy (ties broken by line
// when sorting by name, by name otherwise), a SUMMARY line, and a
// PRECISION footer.
func renderTree(symbol string, upstream, downstream *Node, sortBy, precision string, nodeCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", symbol)

	if upstream != nil && len(upstream.Children) > 0 {
		b.WriteString("Callers:\n")
		renderChildren(&b, upstream.Children, "", sortBy)
	}
	if downstream != nil && len(downstream.Children) > 0 {
		b.WriteString("Callees:\n")
		renderChildren(&b, downstream.Children, "", sortBy)
	}

	fmt.Fprintf(&b, "SUMMARY: %d node(s)\n", nodeCount)
	fmt.Fprintf(&b, "PRECISION: %s\n", precision)
	return b.String()
}

func renderChildren(b *strings.Builder, children []*Node, prefix, sortBy string) {
	sorted := sortNodes(children, sortBy)
	for i, n := range sorted {
		last := i == len(sorted)-1
		connector := "├── " // ├──
		childPrefix := prefix + "│   " // │
		if last {
			connector = "└── " // └──
			childPrefix = prefix + "    "
		}
		fmt.Fprintf(b, "%s%s%s (%s:%d, confidence=%.2f)\n",
			prefix, connector, n.Name, n.Path, n.Line, n.Confidence)
		if len(n.Children) > 0 {
			renderChildren(b, n.Children, childPrefix, sortBy)
		}
	}
}

func sortNodes(nodes []*Node, sortBy string) []*Node {
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	sort.SliceStable(out, func(i, j int) bool {
		if sortBy == "name" {
			if out[i].Name != out[j].Name {
				return out[i].Name < out[j].Name
			}
			return out[i].Line < out[j].Line
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Name < out[j].Name
	})
	return out
}
