package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedUnits(units []Unit) []Unit {
	sort.Slice(units, func(i, j int) bool {
		if units[i].Label != units[j].Label {
			return units[i].Label < units[j].Label
		}
		return units[i].Program < units[j].Program
	})
	return units
}

func TestParse_NestedTree(t *testing.T) {
	doc := `{
		"web": {
			"xss": {"runtime": "/usr/bin/python3", "tests": ["a.py", "b.py"]},
			"sqli": {"runtime": "/bin/sh", "tests": ["c.sh"]}
		},
		"pwn": {"runtime": "/bin/bash", "tests": ["d.sh"], "name": "ignored"}
	}`

	tree, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, KindInternal, tree.Root.Kind)
	assert.Equal(t, []string{"web", "pwn"}, tree.Root.Keys)
	assert.Equal(t, 3, tree.Leaves())

	units := sortedUnits(tree.Collect())
	require.Len(t, units, 4)
	assert.Equal(t, Unit{Label: "pwn", Runtime: "/bin/bash", Program: "d.sh"}, units[0])
	assert.Equal(t, Unit{Label: "web.sqli", Runtime: "/bin/sh", Program: "c.sh"}, units[1])
	assert.Equal(t, Unit{Label: "web.xss", Runtime: "/usr/bin/python3", Program: "a.py"}, units[2])
	assert.Equal(t, Unit{Label: "web.xss", Runtime: "/usr/bin/python3", Program: "b.py"}, units[3])
}

func TestParse_RootLeafLabel(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected string
	}{
		{
			name:     "name field",
			doc:      `{"runtime": "/bin/sh", "tests": ["x.sh"], "name": "warmup"}`,
			expected: "warmup",
		},
		{
			name:     "no name falls back to challenge",
			doc:      `{"runtime": "/bin/sh", "tests": ["x.sh"]}`,
			expected: DefaultLabel,
		},
		{
			name:     "empty name falls back to challenge",
			doc:      `{"runtime": "/bin/sh", "tests": ["x.sh"], "name": ""}`,
			expected: DefaultLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			units := tree.Collect()
			require.Len(t, units, 1)
			assert.Equal(t, tt.expected, units[0].Label)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		path    string
		message string
	}{
		{
			name:    "invalid json",
			doc:     `{"a": `,
			message: "not valid JSON",
		},
		{
			name:    "root is an array",
			doc:     `[1, 2]`,
			message: "root must be a mapping",
		},
		{
			name:    "root is a string",
			doc:     `"hello"`,
			message: "root must be a mapping",
		},
		{
			name:    "non-string test entry",
			doc:     `{"a": {"runtime": "/bin/sh", "tests": ["ok.sh", 3]}}`,
			path:    "a",
			message: "tests[1] must be a string",
		},
		{
			name:    "tests not an array",
			doc:     `{"a": {"runtime": "/bin/sh", "tests": "ok.sh"}}`,
			path:    "a",
			message: "tests must be an array",
		},
		{
			name:    "missing tests",
			doc:     `{"a": {"runtime": "/bin/sh"}}`,
			path:    "a",
			message: "has no tests",
		},
		{
			name:    "runtime not a string",
			doc:     `{"a": {"b": {"runtime": 7, "tests": []}}}`,
			path:    "a.b",
			message: "runtime must be a non-empty string",
		},
		{
			name:    "internal child is scalar",
			doc:     `{"a": {"b": "oops"}}`,
			path:    "a.b",
			message: "node must be a mapping",
		},
		{
			name:    "ambiguous node",
			doc:     `{"a": {"runtime": "/bin/sh", "tests": [], "nested": {"runtime": "/bin/sh", "tests": []}}}`,
			path:    "a.nested",
			message: "ambiguous node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.path, cfgErr.Path)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_EmptyInternalNodes(t *testing.T) {
	tree, err := Parse([]byte(`{"a": {}, "b": {"c": {}}}`))
	require.NoError(t, err)
	assert.Empty(t, tree.Collect())
	assert.Equal(t, 0, tree.Leaves())
}

func TestParse_EmptyTestsList(t *testing.T) {
	tree, err := Parse([]byte(`{"a": {"runtime": "/bin/sh", "tests": []}}`))
	require.NoError(t, err)
	assert.Empty(t, tree.Collect())
	assert.Equal(t, 1, tree.Leaves())
}

func TestUnits_CountMatchesTests(t *testing.T) {
	doc := `{
		"l1": {"runtime": "r", "tests": ["1", "2", "3"]},
		"n": {
			"l2": {"runtime": "r", "tests": ["4"]},
			"m": {"l3": {"runtime": "r", "tests": ["5", "6"]}}
		},
		"l4": {"runtime": "r", "tests": []}
	}`
	tree, err := Parse([]byte(doc))
	require.NoError(t, err)

	seen := make(map[Unit]int)
	for u := range tree.Units() {
		seen[u]++
	}
	assert.Len(t, seen, 6)
	for u, n := range seen {
		assert.Equal(t, 1, n, "unit %+v emitted more than once", u)
	}
}

func TestUnits_EarlyStop(t *testing.T) {
	tree, err := Parse([]byte(`{"a": {"runtime": "r", "tests": ["1", "2", "3"]}}`))
	require.NoError(t, err)

	count := 0
	for range tree.Units() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestParseYAML(t *testing.T) {
	doc := `
crypto:
  rsa:
    runtime: /bin/sh
    tests:
      - small_e.sh
      - wiener.sh
misc:
  runtime: /bin/sh
  tests: [hello.sh]
`
	tree, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"crypto", "misc"}, tree.Root.Keys)

	units := sortedUnits(tree.Collect())
	require.Len(t, units, 3)
	assert.Equal(t, "crypto.rsa", units[0].Label)
	assert.Equal(t, "misc", units[2].Label)
}

func TestParseYAML_NonStringTest(t *testing.T) {
	_, err := ParseYAML([]byte("a:\n  runtime: /bin/sh\n  tests: [1]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tests[0] must be a string")
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-config.json")
	doc := `{"a": {"runtime": "/bin/sh", "tests": ["ok.sh", "/abs/t.sh"]}, "b": {"runtime": "./bin/vm", "tests": ["x"]}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	tree, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, tree.Path)

	units := sortedUnits(tree.Collect())
	require.Len(t, units, 3)
	assert.Equal(t, "/abs/t.sh", units[0].Program)
	assert.Equal(t, filepath.Join(tree.BaseDir, "ok.sh"), units[1].Program)
	assert.Equal(t, "/bin/sh", units[1].Runtime)
	assert.Equal(t, filepath.Join(tree.BaseDir, "bin", "vm"), units[2].Runtime)
}

func TestLoad_BareRuntimeLeftForPathLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a:\n  runtime: python3\n  tests: [t.py]\n"), 0644))

	tree, err := Load(path)
	require.NoError(t, err)
	units := tree.Collect()
	require.Len(t, units, 1)
	assert.Equal(t, "python3", units[0].Runtime)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "cannot open config file")
}
