package production

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/comalice/blockx"
)

// DefaultVisualizer renders topologies as Graphviz DOT.
type DefaultVisualizer struct{}

// ExportDOT generates DOT source for topo. current, if non-nil, is
// highlighted together with its enclosing states.
func (v *DefaultVisualizer) ExportDOT(topo *blockx.Topology, current *blockx.Vertex) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", topo.Name())
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	active := make(map[*blockx.Vertex]bool)
	for c := current; c != nil; c = c.Parent() {
		active[c] = true
	}

	for _, vtx := range topo.Vertices() {
		if vtx.Parent() == nil {
			renderVertex(&buf, vtx, active, "  ")
		}
	}
	for _, t := range topo.Transitions() {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", t.Source().Name(), t.Target().Name(), edgeLabel(t))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func renderVertex(buf *bytes.Buffer, v *blockx.Vertex, active map[*blockx.Vertex]bool, indent string) {
	if v.IsComposite() {
		fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, "cluster_"+v.Name())
		fmt.Fprintf(buf, "%s  label=%q;\n", indent, v.Name())
		if active[v] {
			fmt.Fprintf(buf, "%s  style=filled; fillcolor=orange;\n", indent)
		}
		fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse];\n", indent, v.Name(), v.Name())
		for _, child := range v.Children() {
			renderVertex(buf, child, active, indent+"  ")
		}
		fmt.Fprintf(buf, "%s}\n", indent)
		return
	}

	var attrs []string
	switch v.Kind() {
	case blockx.InitialVertex:
		attrs = append(attrs, `shape=point`, `label=""`)
	case blockx.ChoiceVertex:
		attrs = append(attrs, `shape=diamond`, fmt.Sprintf("label=%q", v.Name()))
	case blockx.FinalVertex:
		attrs = append(attrs, `shape=doublecircle`, fmt.Sprintf("label=%q", v.Name()))
	default:
		attrs = append(attrs, fmt.Sprintf("label=%q", v.Name()))
	}
	if active[v] {
		attrs = append(attrs, `style=filled`, `fillcolor=lightgreen`)
	}
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, v.Name(), strings.Join(attrs, " "))
}

// edgeLabel renders trigger [guard] / effect.
func edgeLabel(t *blockx.Transition) string {
	var sb strings.Builder
	if tr := t.Trigger(); tr.Kind != blockx.KindNone && tr.Kind != blockx.KindInitial {
		sb.WriteString(tr.String())
	}
	if t.HasGuard() {
		fmt.Fprintf(&sb, " [%s]", t.GuardName())
	}
	if t.HasEffect() {
		fmt.Fprintf(&sb, " / %s", t.EffectName())
	}
	return strings.TrimSpace(sb.String())
}
