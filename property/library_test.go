package property

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/isoterra/sculpt/sculpt"
)

func TestDefaultLibrary(t *testing.T) {
	lib := DefaultLibrary()
	if lib.Version.String() != "1.0.0" {
		t.Errorf("bad default version %s\n", lib.Version)
	}
	names := lib.BrushNames()
	expected := []string{"blend", "none", "paint", "push", "raise", "smooth"}
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Errorf("expected brushes %v, got %v\n", expected, names)
	}
	for _, r := range Roles {
		id, err := lib.Associator.RoleToIdentifier(r)
		if err != nil {
			t.Fatalf("%v\n", err)
		}
		if d, found := lib.Descriptors.Find(id); !found || d.Type != RoleType(r) {
			t.Errorf("role %q maps to %q which is missing or mistyped\n", r, id)
		}
	}
	ds, err := lib.BrushDescriptors("push")
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if got := strings.Join(ds.IDs(), ","); got != "brush-size,brush-strength,brush-hardness,cache-normal,orient-up" {
		t.Errorf("bad push declarations: %s\n", got)
	}
	if d, _ := lib.Descriptors.Find("paint-color"); d.Default.Color != (sculpt.Color{0.55, 0.45, 0.3, 1}) {
		t.Errorf("bad paint color default %s\n", d.Default)
	}
	if _, err := lib.BrushDescriptors("chisel"); err == nil {
		t.Errorf("expected error for unknown brush\n")
	}
}

func replaceOnce(t *testing.T, s, old, new string) string {
	if !strings.Contains(s, old) {
		t.Fatalf("test setup: %q not in library\n", old)
	}
	return strings.Replace(s, old, new, 1)
}

func TestLibraryConfigErrors(t *testing.T) {
	tests := map[string]string{
		"future version":   replaceOnce(t, DefaultLibraryTOML, `version = "1.0.0"`, `version = "2.1.0"`),
		"bad version":      replaceOnce(t, DefaultLibraryTOML, `version = "1.0.0"`, `version = "one"`),
		"missing role":     replaceOnce(t, DefaultLibraryTOML, `use-vertical = "orient-up"`, ``),
		"unknown role":     replaceOnce(t, DefaultLibraryTOML, `use-vertical = "orient-up"`, "use-vertical = \"orient-up\"\nspin = \"orient-up\""),
		"undefined target": replaceOnce(t, DefaultLibraryTOML, `size = "brush-size"`, `size = "brush-radius"`),
		"mistyped role":    replaceOnce(t, DefaultLibraryTOML, `hardness = "brush-hardness"`, `hardness = "orient-up"`),
		"bad default":      replaceOnce(t, DefaultLibraryTOML, "default = 0.5", `default = true`),
		"unknown type":     replaceOnce(t, DefaultLibraryTOML, `type = "float"`, `type = "double"`),
		"undefined prop":   replaceOnce(t, DefaultLibraryTOML, `properties = ["brush-size", "brush-strength", "brush-hardness", "paint-color"]`, `properties = ["brush-size", "glitter"]`),
		"duplicate prop":   replaceOnce(t, DefaultLibraryTOML, `properties = ["brush-size", "brush-strength", "brush-hardness", "paint-color"]`, `properties = ["brush-size", "brush-size"]`),
		"no variant":       replaceOnce(t, DefaultLibraryTOML, `variant = "null"`, `kernel = "identity"`),
	}
	for name, contents := range tests {
		_, err := ParseLibraryTOML(name, contents)
		if err == nil {
			t.Errorf("%s: expected configuration error\n", name)
			continue
		}
		if name != "unknown type" && !errors.Is(err, sculpt.ErrConfig) {
			t.Errorf("%s: expected ErrConfig, got %v\n", name, err)
		}
	}
}

const testLibraryJSON = `{
	"version": "1.3.0",
	"descriptors": [
		{"id": "r", "type": "float", "default": 4},
		{"id": "s", "type": "float", "default": 0.25},
		{"id": "h", "type": "float", "default": 1},
		{"id": "c", "type": "color", "default": [1, 1, 1, 1]},
		{"id": "n", "type": "bool", "default": true},
		{"id": "v", "type": "bool", "default": false},
		{"id": "k", "type": "int", "default": 2}
	],
	"associator": {
		"size": "r", "strength": "s", "hardness": "h",
		"color": "c", "cache-normals": "n", "use-vertical": "v"
	},
	"brushes": {
		"dig": {"variant": "iso-base", "kernel": "iso-sphere", "properties": ["r", "s", "h", "k"]}
	}
}`

func TestLoadLibraryFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "brushes.json")
	if err := os.WriteFile(jsonPath, []byte(testLibraryJSON), 0644); err != nil {
		t.Fatalf("%v\n", err)
	}
	lib, err := LoadLibrary(jsonPath)
	if err != nil {
		t.Fatalf("can't load JSON library: %v\n", err)
	}
	if lib.Source() != jsonPath || lib.Version.Minor != 3 {
		t.Errorf("bad library metadata: %s %s\n", lib.Source(), lib.Version)
	}
	if d, _ := lib.Descriptors.Find("k"); d.Type != sculpt.T_int || d.Default.Int != 2 {
		t.Errorf("bad int descriptor %s\n", d)
	}
	if d, _ := lib.Descriptors.Find("r"); d.Default.Float != 4 {
		t.Errorf("expected integer JSON default promoted to float, got %s\n", d)
	}

	tomlPath := filepath.Join(dir, "brushes.toml")
	if err := os.WriteFile(tomlPath, []byte(DefaultLibraryTOML), 0644); err != nil {
		t.Fatalf("%v\n", err)
	}
	if _, err := LoadLibrary(tomlPath); err != nil {
		t.Errorf("can't load TOML library: %v\n", err)
	}
	if _, err := LoadLibrary(filepath.Join(dir, "missing.toml")); err == nil {
		t.Errorf("expected error loading missing file\n")
	}
}

func TestJSONSchemaRejects(t *testing.T) {
	bad := map[string]string{
		"not an object":   `[1, 2]`,
		"no brushes":      `{"version": "1.0.0", "descriptors": [], "associator": {}}`,
		"bad type enum":   strings.Replace(testLibraryJSON, `"type": "int"`, `"type": "integer"`, 1),
		"short color":     strings.Replace(testLibraryJSON, `[1, 1, 1, 1]`, `[1, 1]`, 1),
		"brush sans kind": strings.Replace(testLibraryJSON, `"variant": "iso-base", `, ``, 1),
	}
	for name, doc := range bad {
		if _, err := ParseLibraryJSON(name, []byte(doc)); !errors.Is(err, sculpt.ErrConfig) {
			t.Errorf("%s: expected schema configuration error, got %v\n", name, err)
		}
	}
}

func TestAssociator(t *testing.T) {
	lib := DefaultLibrary()
	m := lib.Associator.Map()
	if len(m) != len(Roles) || m["color"] != "paint-color" {
		t.Errorf("bad associator map: %v\n", m)
	}
	var empty Associator
	if _, err := empty.RoleToIdentifier(RoleSize); !errors.Is(err, sculpt.ErrConfig) {
		t.Errorf("expected config error from unconfigured associator, got %v\n", err)
	}
	if !strings.HasPrefix(lib.Associator.String(), "associator{cache-normals: cache-normal") {
		t.Errorf("bad associator string %s\n", lib.Associator)
	}
}
