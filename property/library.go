/*
	This file loads the authored, versioned brush configuration: property descriptors,
	the role associator, and the brush assets that declare which descriptors they read.
*/

package property

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/blang/semver"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/isoterra/sculpt/sculpt"
)

// SupportedVersions is the range of library versions this build understands.
const SupportedVersions = ">=1.0.0 <2.0.0"

var supportedRange = semver.MustParseRange(SupportedVersions)

// BrushAsset is an authored brush: which variant runs it, which compute kernel it
// dispatches, and which descriptors it declares.
type BrushAsset struct {
	Variant    string   `toml:"variant" json:"variant"`
	Kernel     string   `toml:"kernel" json:"kernel"`
	Properties []string `toml:"properties" json:"properties"`
}

// Library is the immutable configuration record loaded once at startup.
type Library struct {
	Version     semver.Version
	Descriptors Descriptors
	Associator  Associator
	Brushes     map[string]BrushAsset

	source string
}

type descriptorFile struct {
	ID      string           `toml:"id" json:"id"`
	Type    sculpt.ValueType `toml:"type" json:"type"`
	Default interface{}      `toml:"default" json:"default"`
}

type libraryFile struct {
	Version     string                `toml:"version" json:"version"`
	Descriptors []descriptorFile      `toml:"descriptor" json:"descriptors"`
	Associator  map[string]string     `toml:"associator" json:"associator"`
	Brushes     map[string]BrushAsset `toml:"brush" json:"brushes"`
}

// librarySchema validates JSON libraries before they are decoded.
const librarySchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["version", "descriptors", "associator", "brushes"],
	"properties": {
		"version": {"type": "string"},
		"descriptors": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type", "default"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"type": {"enum": ["bool", "int", "float", "color"]},
					"default": {
						"anyOf": [
							{"type": "boolean"},
							{"type": "number"},
							{"type": "array", "items": {"type": "number"}, "minItems": 4, "maxItems": 4}
						]
					}
				}
			}
		},
		"associator": {
			"type": "object",
			"additionalProperties": {"type": "string", "minLength": 1}
		},
		"brushes": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["variant"],
				"properties": {
					"variant": {"type": "string"},
					"kernel": {"type": "string"},
					"properties": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

var compiledSchema *jsonschema.Schema

func init() {
	var err error
	if compiledSchema, err = jsonschema.CompileString("library.json", librarySchema); err != nil {
		panic(fmt.Sprintf("brush library schema does not compile: %v", err))
	}
}

// LoadLibrary reads a TOML or JSON library depending on the file extension.
func LoadLibrary(filename string) (*Library, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ParseLibraryJSON(filename, data)
	default:
		return ParseLibraryTOML(filename, string(data))
	}
}

// ParseLibraryTOML decodes and validates a TOML library.
func ParseLibraryTOML(source, contents string) (*Library, error) {
	var lf libraryFile
	md, err := toml.Decode(contents, &lf)
	if err != nil {
		return nil, sculpt.NewConfigError(source, "could not decode TOML: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		sculpt.Warningf("Ignoring unknown keys in brush library %s: %v\n", source, undecoded)
	}
	return lf.library(source)
}

// ParseLibraryJSON validates a JSON library against the library schema, then decodes it.
func ParseLibraryJSON(source string, data []byte) (*Library, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, sculpt.NewConfigError(source, "could not decode JSON: %v", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, sculpt.NewConfigError(source, "schema validation failed: %v", err)
	}
	var lf libraryFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, sculpt.NewConfigError(source, "could not decode JSON: %v", err)
	}
	return lf.library(source)
}

func (lf libraryFile) library(source string) (*Library, error) {
	lib := &Library{source: source, Brushes: lf.Brushes}
	if lib.Brushes == nil {
		lib.Brushes = make(map[string]BrushAsset)
	}
	var err error
	if lib.Version, err = semver.Make(lf.Version); err != nil {
		return nil, sculpt.NewConfigError(source, "bad library version %q: %v", lf.Version, err)
	}
	for _, df := range lf.Descriptors {
		def, err := sculpt.ValueFromInterface(df.Type, df.Default)
		if err != nil {
			return nil, sculpt.NewConfigError(source, "default of property %q: %v", df.ID, err)
		}
		d, err := NewDescriptor(df.ID, def)
		if err != nil {
			return nil, sculpt.NewConfigError(source, "%v", err)
		}
		lib.Descriptors = append(lib.Descriptors, d)
	}
	if lib.Associator, err = NewAssociator(lf.Associator); err != nil {
		return nil, sculpt.NewConfigError(source, "%v", err)
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Source returns where the library was loaded from.
func (lib *Library) Source() string {
	return lib.source
}

// Validate checks the library is internally consistent.  Every failure is a
// configuration error.
func (lib *Library) Validate() error {
	if !supportedRange(lib.Version) {
		return sculpt.NewConfigError(lib.source, "library version %s not in supported range %s", lib.Version, SupportedVersions)
	}
	seen := make(map[string]struct{}, len(lib.Descriptors))
	for _, d := range lib.Descriptors {
		if _, dup := seen[d.ID]; dup {
			return sculpt.NewConfigError(lib.source, "property %q declared twice", d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.Default.Type != d.Type {
			return sculpt.NewConfigError(lib.source, "property %q of type %s has %s default", d.ID, d.Type, d.Default.Type)
		}
	}
	for _, r := range Roles {
		id, err := lib.Associator.RoleToIdentifier(r)
		if err != nil {
			return sculpt.NewConfigError(lib.source, "%v", err)
		}
		d, found := lib.Descriptors.Find(id)
		if !found {
			return sculpt.NewConfigError(lib.source, "role %q maps to undefined property %q", r, id)
		}
		if d.Type != RoleType(r) {
			return sculpt.NewConfigError(lib.source, "role %q needs a %s property, %q is %s", r, RoleType(r), id, d.Type)
		}
	}
	for name, asset := range lib.Brushes {
		if asset.Variant == "" {
			return sculpt.NewConfigError(lib.source, "brush %q has no variant", name)
		}
		declared := make(map[string]struct{}, len(asset.Properties))
		for _, id := range asset.Properties {
			if _, dup := declared[id]; dup {
				return sculpt.NewConfigError(lib.source, "brush %q declares %q twice", name, id)
			}
			declared[id] = struct{}{}
			if !lib.Descriptors.Declares(id) {
				return sculpt.NewConfigError(lib.source, "brush %q declares undefined property %q", name, id)
			}
		}
	}
	return nil
}

// BrushNames returns the authored brush names in sorted order.
func (lib *Library) BrushNames() []string {
	names := make([]string, 0, len(lib.Brushes))
	for name := range lib.Brushes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BrushDescriptors returns the descriptor list declared by the named brush, in
// declaration order.
func (lib *Library) BrushDescriptors(name string) (Descriptors, error) {
	asset, found := lib.Brushes[name]
	if !found {
		return nil, fmt.Errorf("no brush %q in library %s", name, lib.source)
	}
	ds := make(Descriptors, 0, len(asset.Properties))
	for _, id := range asset.Properties {
		d, _ := lib.Descriptors.Find(id)
		ds = append(ds, d)
	}
	return ds, nil
}

// DefaultLibraryTOML is the built-in brush library used when none is configured.
const DefaultLibraryTOML = `
version = "1.0.0"

[[descriptor]]
id = "brush-size"
type = "float"
default = 10.0

[[descriptor]]
id = "brush-strength"
type = "float"
default = 0.5

[[descriptor]]
id = "brush-hardness"
type = "float"
default = 0.5

[[descriptor]]
id = "paint-color"
type = "color"
default = [0.55, 0.45, 0.3, 1.0]

[[descriptor]]
id = "cache-normal"
type = "bool"
default = false

[[descriptor]]
id = "orient-up"
type = "bool"
default = false

[associator]
size = "brush-size"
strength = "brush-strength"
hardness = "brush-hardness"
color = "paint-color"
cache-normals = "cache-normal"
use-vertical = "orient-up"

[brush.none]
variant = "null"

[brush.raise]
variant = "iso-base"
kernel = "iso-sphere"
properties = ["brush-size", "brush-strength", "brush-hardness"]

[brush.smooth]
variant = "iso-all-sides"
kernel = "iso-smooth"
properties = ["brush-size", "brush-strength", "brush-hardness"]

[brush.push]
variant = "iso-normals"
kernel = "iso-normal"
properties = ["brush-size", "brush-strength", "brush-hardness", "cache-normal", "orient-up"]

[brush.paint]
variant = "color-base"
kernel = "color-sphere"
properties = ["brush-size", "brush-strength", "brush-hardness", "paint-color"]

[brush.blend]
variant = "color-all-sides"
kernel = "color-smooth"
properties = ["brush-size", "brush-strength", "brush-hardness"]
`

// DefaultLibrary returns the built-in brush library.
func DefaultLibrary() *Library {
	lib, err := ParseLibraryTOML("built-in library", DefaultLibraryTOML)
	if err != nil {
		panic(fmt.Sprintf("built-in brush library is invalid: %v", err))
	}
	return lib
}
