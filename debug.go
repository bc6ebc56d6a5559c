package nest

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type TreeInfo struct {
	State  string      `json:"state"`
	Scopes []ScopeInfo `json:"scopes"`
}

type ScopeInfo struct {
	Scope      string          `json:"scope"`
	ID         string          `json:"id"`
	State      string          `json:"state"`
	Sealed     bool            `json:"sealed"`
	Components []ComponentInfo `json:"components"`
}

type ComponentInfo struct {
	Key string `json:"key"`
	// Shadows is set when an enclosing scope holds the same key.
	Shadows bool `json:"shadows,omitempty"`
}

// Tree describes the scopes from outermost to innermost.
func (h *Hierarchy) Tree() TreeInfo {
	info := TreeInfo{State: h.State().String()}

	for _, c := range h.Containers() {
		si := ScopeInfo{
			Scope:  c.Scope().String(),
			ID:     c.ID(),
			State:  c.State().String(),
			Sealed: c.Sealed(),
		}
		for _, key := range c.Keys() {
			shadows := false
			if c.parent != nil {
				_, shadows = c.parent.Owner(key)
			}
			si.Components = append(si.Components, ComponentInfo{Key: key, Shadows: shadows})
		}
		info.Scopes = append(info.Scopes, si)
	}

	return info
}

func (h *Hierarchy) PrintTree() {
	h.FprintTree(os.Stdout)
}

func (h *Hierarchy) FprintTree(w io.Writer) {
	info := h.Tree()

	if len(info.Scopes) == 0 {
		_, _ = fmt.Fprintf(w, "(no scopes, %s)\n", info.State)
		return
	}

	for depth, s := range info.Scopes {
		indent := strings.Repeat("  ", depth)
		_, _ = fmt.Fprintf(w, "%s%s [%s] %s\n", indent, s.Scope, s.State, s.ID)

		for _, comp := range s.Components {
			marker := "●"
			if comp.Shadows {
				marker = "◐"
			}
			_, _ = fmt.Fprintf(w, "%s  %s %s\n", indent, marker, comp.Key)
		}
	}
}

func (h *Hierarchy) SprintTree() string {
	var sb strings.Builder
	h.FprintTree(&sb)
	return sb.String()
}

func (h *Hierarchy) PrintTreeDOT() {
	h.FprintTreeDOT(os.Stdout)
}

// FprintTreeDOT writes one cluster per scope, each pointing at the scope it
// is nested in.
func (h *Hierarchy) FprintTreeDOT(w io.Writer) {
	info := h.Tree()

	_, _ = fmt.Fprintln(w, "digraph scopes {")
	_, _ = fmt.Fprintln(w, "  rankdir=TB;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, s := range info.Scopes {
		_, _ = fmt.Fprintf(w, "  subgraph %q {\n", "cluster_"+s.Scope)
		_, _ = fmt.Fprintf(w, "    label=%q;\n", s.Scope)
		_, _ = fmt.Fprintf(w, "    %q [label=%q, shape=ellipse];\n", s.Scope, s.Scope)
		for _, comp := range s.Components {
			style := ""
			if comp.Shadows {
				style = ", style=filled, fillcolor=lightyellow"
			}
			_, _ = fmt.Fprintf(w, "    %q [label=%q%s];\n", s.Scope+"/"+comp.Key, escapeLabel(comp.Key), style)
		}
		_, _ = fmt.Fprintln(w, "  }")
	}

	_, _ = fmt.Fprintln(w)

	for i := 1; i < len(info.Scopes); i++ {
		_, _ = fmt.Fprintf(w, "  %q -> %q;\n", info.Scopes[i].Scope, info.Scopes[i-1].Scope)
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (h *Hierarchy) SprintTreeDOT() string {
	var sb strings.Builder
	h.FprintTreeDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
