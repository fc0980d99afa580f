package codegen

import (
	"fmt"
	"strings"
)

// postSetChunkSize caps how many deferred global-initializer assignments
// go into a single runPostSets function body (§6 "Post-sets"), keeping
// any one function small enough for engines that still balk at giant
// single functions.
const postSetChunkSize = 100

// renderPostSets renders the deferred assignments the Global Layout
// Builder accumulated during phase 2 as a chain of runPostSetsN functions,
// each tail-calling the next, with the module calling only the first.
func (e *Emitter) renderPostSets() string {
	sets := e.heap.PostSets()
	if len(sets) == 0 {
		return ""
	}
	var chunks [][]string
	for i := 0; i < len(sets); i += postSetChunkSize {
		end := i + postSetChunkSize
		if end > len(sets) {
			end = len(sets)
		}
		chunks = append(chunks, sets[i:end])
	}

	var buf strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&buf, "function runPostSets%d() {\n", i)
		for _, s := range chunk {
			buf.WriteString(" " + s + "\n")
		}
		if i+1 < len(chunks) {
			fmt.Fprintf(&buf, " runPostSets%d();\n", i+1)
		}
		buf.WriteString("}\n")
	}
	buf.WriteString("runPostSets0();\n")
	return buf.String()
}
