package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the challenge tree looked up when no path is given.
const DefaultConfigFile = "test-config.json"

// NodeKind tells internal nodes and leaves apart.
type NodeKind int

const (
	KindInternal NodeKind = iota
	KindLeaf
)

func (k NodeKind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is one entry of a challenge tree. Internal nodes only use Keys and
// Children; leaves only use Runtime, Tests and Name.
type Node struct {
	Kind NodeKind

	// Keys preserves declaration order of Children.
	Keys     []string
	Children map[string]*Node

	Runtime string
	Tests   []string
	Name    string
}

// Tree is a parsed challenge tree.
type Tree struct {
	Root *Node

	// Path is the file the tree was loaded from, empty when parsed from bytes.
	Path string
	// BaseDir anchors relative runtimes and test programs. Empty means the
	// process working directory.
	BaseDir string
}

// Load reads a challenge tree from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func Load(path string) (*Tree, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("cannot open config file %s", path), Err: err}
	}

	var tree *Tree
	if isYAMLPath(path) {
		tree, err = ParseYAML(data)
	} else {
		tree, err = Parse(data)
	}
	if err != nil {
		return nil, err
	}

	tree.Path = path
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		tree.BaseDir = abs
	} else {
		tree.BaseDir = filepath.Dir(path)
	}
	return tree, nil
}

// Parse builds a tree from a JSON document.
func Parse(data []byte) (*Tree, error) {
	if !gjson.ValidBytes(data) {
		return nil, configErrorf("", "document is not valid JSON")
	}
	root, err := build("", fromJSON(gjson.ParseBytes(data)))
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

// ParseYAML builds a tree from a YAML document.
func ParseYAML(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Msg: "document is not valid YAML", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, configErrorf("", "document is empty")
	}
	root, err := build("", fromYAML(doc.Content[0]))
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// raw is the decoder-neutral shape both JSON and YAML documents are reduced
// to before the tagged tree is built.
type raw struct {
	kind   string // mapping, array, string, number, bool, null
	keys   []string
	fields map[string]*raw
	items  []*raw
	str    string
}

func fromJSON(r gjson.Result) *raw {
	switch {
	case r.IsObject():
		out := &raw{kind: "mapping", fields: make(map[string]*raw)}
		r.ForEach(func(key, value gjson.Result) bool {
			if _, seen := out.fields[key.Str]; !seen {
				out.keys = append(out.keys, key.Str)
			}
			out.fields[key.Str] = fromJSON(value)
			return true
		})
		return out
	case r.IsArray():
		out := &raw{kind: "array"}
		for _, item := range r.Array() {
			out.items = append(out.items, fromJSON(item))
		}
		return out
	}

	switch r.Type {
	case gjson.String:
		return &raw{kind: "string", str: r.Str}
	case gjson.Number:
		return &raw{kind: "number"}
	case gjson.True, gjson.False:
		return &raw{kind: "bool"}
	default:
		return &raw{kind: "null"}
	}
}

func fromYAML(n *yaml.Node) *raw {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	switch n.Kind {
	case yaml.MappingNode:
		out := &raw{kind: "mapping", fields: make(map[string]*raw)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if _, seen := out.fields[key]; !seen {
				out.keys = append(out.keys, key)
			}
			out.fields[key] = fromYAML(n.Content[i+1])
		}
		return out
	case yaml.SequenceNode:
		out := &raw{kind: "array"}
		for _, item := range n.Content {
			out.items = append(out.items, fromYAML(item))
		}
		return out
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return &raw{kind: "string", str: n.Value}
		case "!!int", "!!float":
			return &raw{kind: "number"}
		case "!!bool":
			return &raw{kind: "bool"}
		}
	}
	return &raw{kind: "null"}
}

func build(path string, r *raw) (*Node, error) {
	if r.kind != "mapping" {
		if path == "" {
			return nil, configErrorf(path, "root must be a mapping, got %s", r.kind)
		}
		return nil, configErrorf(path, "node must be a mapping, got %s", r.kind)
	}

	if runtime, ok := r.fields["runtime"]; ok {
		return buildLeaf(path, r, runtime)
	}

	node := &Node{
		Kind:     KindInternal,
		Children: make(map[string]*Node, len(r.keys)),
	}
	for _, key := range r.keys {
		child, err := build(joinPath(path, key), r.fields[key])
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key)
		node.Children[key] = child
	}
	return node, nil
}

func buildLeaf(path string, r *raw, runtime *raw) (*Node, error) {
	if runtime.kind != "string" || strings.TrimSpace(runtime.str) == "" {
		return nil, configErrorf(path, "runtime must be a non-empty string")
	}

	node := &Node{Kind: KindLeaf, Runtime: runtime.str}

	tests, ok := r.fields["tests"]
	if !ok {
		return nil, configErrorf(path, "leaf with runtime %q has no tests", runtime.str)
	}
	if tests.kind != "array" {
		return nil, configErrorf(path, "tests must be an array, got %s", tests.kind)
	}
	for i, item := range tests.items {
		if item.kind != "string" {
			return nil, configErrorf(path, "tests[%d] must be a string, got %s", i, item.kind)
		}
		node.Tests = append(node.Tests, item.str)
	}

	if name, ok := r.fields["name"]; ok {
		if name.kind != "string" {
			return nil, configErrorf(path, "name must be a string, got %s", name.kind)
		}
		node.Name = name.str
	}

	for _, key := range r.keys {
		if r.fields[key].kind == "mapping" {
			return nil, configErrorf(joinPath(path, key),
				"ambiguous node: a node with runtime cannot contain child challenges")
		}
	}

	return node, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// IsNotFound reports whether err came from a config file that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
