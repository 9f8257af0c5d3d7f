package config

import (
	"iter"
	"path/filepath"
	"strings"
)

// DefaultLabel names units of a root-level leaf that carries no name.
const DefaultLabel = "challenge"

// Unit is one runtime/test program pair to execute.
type Unit struct {
	Label   string
	Runtime string
	Program string
}

// Units lazily walks the tree and yields one Unit per test entry of every
// leaf. Traversal uses an explicit stack, so units come out in no particular
// declaration order.
func (t *Tree) Units() iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		if t == nil || t.Root == nil {
			return
		}

		type frame struct {
			path []string
			node *Node
		}

		stack := []frame{{node: t.Root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.node.Kind == KindLeaf {
				label := strings.Join(f.path, ".")
				if label == "" {
					label = f.node.Name
				}
				if label == "" {
					label = DefaultLabel
				}

				runtime := t.resolveRuntime(f.node.Runtime)
				for _, program := range f.node.Tests {
					unit := Unit{
						Label:   label,
						Runtime: runtime,
						Program: t.resolveProgram(program),
					}
					if !yield(unit) {
						return
					}
				}
				continue
			}

			for _, key := range f.node.Keys {
				path := make([]string, len(f.path), len(f.path)+1)
				copy(path, f.path)
				stack = append(stack, frame{path: append(path, key), node: f.node.Children[key]})
			}
		}
	}
}

// Collect materializes Units into a slice.
func (t *Tree) Collect() []Unit {
	var units []Unit
	for u := range t.Units() {
		units = append(units, u)
	}
	return units
}

// Leaves returns the number of leaf nodes in the tree.
func (t *Tree) Leaves() int {
	if t == nil || t.Root == nil {
		return 0
	}
	var count func(n *Node) int
	count = func(n *Node) int {
		if n.Kind == KindLeaf {
			return 1
		}
		total := 0
		for _, child := range n.Children {
			total += count(child)
		}
		return total
	}
	return count(t.Root)
}

// resolveProgram anchors relative test programs to the config directory.
func (t *Tree) resolveProgram(program string) string {
	if t.BaseDir == "" || program == "" || filepath.IsAbs(program) {
		return program
	}
	return filepath.Join(t.BaseDir, program)
}

// resolveRuntime anchors runtimes given as relative paths ("./bin/vm").
// Bare command names are left for PATH lookup.
func (t *Tree) resolveRuntime(runtime string) string {
	if t.BaseDir == "" || filepath.IsAbs(runtime) {
		return runtime
	}
	if !strings.ContainsRune(runtime, '/') && !strings.ContainsRune(runtime, filepath.Separator) {
		return runtime
	}
	return filepath.Join(t.BaseDir, runtime)
}
