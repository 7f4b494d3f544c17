package crate

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MetadataFilename is the canonical name of the crate metadata document.
	MetadataFilename = "ro-crate-metadata.json"
	// LegacyMetadataFilename is accepted for crates predating RO-Crate 1.1.
	LegacyMetadataFilename = "ro-crate-metadata.jsonld"

	// maxMetadataSize caps the metadata document size
	maxMetadataSize = 10 * 1024 * 1024
)

// metadataDoc is the top-level JSON-LD structure of a crate metadata file.
// The @context is accepted but not interpreted; property names are used as
// written in the document.
type metadataDoc struct {
	Context json.RawMessage   `json:"@context"`
	Graph   []json.RawMessage `json:"@graph"`
}

// Load reads a crate from path, which may be a crate directory, a zip
// archive (.zip or .crate), or a metadata file itself.
func Load(path string) (*Graph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, NewLoadError(path, "cannot access crate", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".crate":
		return LoadZip(path)
	}
	if base := filepath.Base(path); base == MetadataFilename || base == LegacyMetadataFilename {
		return loadFile(path)
	}
	return nil, NewLoadError(path, "not a crate directory, zip archive, or metadata document", nil)
}

// LoadDir reads the metadata document from a crate directory.
func LoadDir(dir string) (*Graph, error) {
	path := filepath.Join(dir, MetadataFilename)
	if _, err := os.Stat(path); err != nil {
		legacy := filepath.Join(dir, LegacyMetadataFilename)
		if _, lerr := os.Stat(legacy); lerr != nil {
			return nil, NewLoadError(dir, fmt.Sprintf("no %s found", MetadataFilename), err)
		}
		path = legacy
	}
	return loadFile(path)
}

// LoadZip reads the metadata document from the root of a zipped crate.
func LoadZip(path string) (*Graph, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, NewLoadError(path, "cannot open zip archive", err)
	}
	defer zr.Close()

	entry := findZipMetadata(zr, MetadataFilename)
	if entry == nil {
		entry = findZipMetadata(zr, LegacyMetadataFilename)
	}
	if entry == nil {
		return nil, NewLoadError(path, fmt.Sprintf("no %s at archive root", MetadataFilename), nil)
	}

	f, err := entry.Open()
	if err != nil {
		return nil, NewLoadError(path, "cannot open metadata entry", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, NewLoadError(path, "invalid metadata document", err)
	}
	return g, nil
}

func findZipMetadata(zr *zip.ReadCloser, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func loadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewLoadError(path, "cannot open metadata document", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, NewLoadError(path, "invalid metadata document", err)
	}
	return g, nil
}

// Decode parses a metadata document from r and builds the graph. Entities
// sharing an @id are merged; properties referencing other entities must use
// the flattened {"@id": ...} form.
func Decode(r io.Reader) (*Graph, error) {
	// Read maxMetadataSize + 1 byte to detect if the document exceeds the limit
	data, err := io.ReadAll(io.LimitReader(r, maxMetadataSize+1))
	if err != nil {
		return nil, NewLoadError("", "cannot read metadata", err)
	}
	if len(data) > maxMetadataSize {
		return nil, NewLoadError("", fmt.Sprintf("metadata document exceeds %d bytes", maxMetadataSize), nil)
	}

	var doc metadataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewLoadError("", "malformed JSON", err)
	}
	if doc.Graph == nil {
		return nil, NewLoadError("", "document has no @graph array", nil)
	}

	g := &Graph{entities: make(map[string]*Entity)}
	blank := 0
	for i, raw := range doc.Graph {
		var node map[string]any
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, NewLoadError("", fmt.Sprintf("@graph entry %d is not an object", i), err)
		}
		if err := g.addNode(node, &blank); err != nil {
			return nil, err
		}
	}

	g.resolveRoot()
	return g, nil
}

// addNode merges one @graph object into the graph. A repeated @id extends
// the existing entity instead of replacing it, mirroring RDF merge
// semantics.
func (g *Graph) addNode(node map[string]any, blank *int) error {
	id, err := nodeID(node, blank)
	if err != nil {
		return err
	}

	e, ok := g.entities[id]
	if !ok {
		e = &Entity{id: id, props: make(map[string][]Value)}
		g.entities[id] = e
		g.order = append(g.order, id)
	}

	for _, t := range nodeTypes(node) {
		if !e.HasType(t) {
			e.types = append(e.types, t)
		}
	}

	for name, raw := range node {
		if name == "@id" || name == "@type" {
			continue
		}
		vals, err := decodeValues(id, name, raw)
		if err != nil {
			return err
		}
		e.props[name] = append(e.props[name], vals...)
	}
	return nil
}

func nodeID(node map[string]any, blank *int) (string, error) {
	raw, ok := node["@id"]
	if !ok {
		// JSON-LD blank node, identified only within this graph
		id := fmt.Sprintf("_:b%d", *blank)
		*blank++
		return id, nil
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", NewLoadError("", "entity @id must be a non-empty string", nil)
	}
	return id, nil
}

func nodeTypes(node map[string]any) []string {
	switch t := node["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func decodeValues(entityID, property string, raw any) ([]Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []Value{String(v)}, nil
	case float64:
		return []Value{Number(v)}, nil
	case bool:
		return []Value{Boolean(v)}, nil
	case map[string]any:
		id, ok := v["@id"].(string)
		if !ok || id == "" {
			return nil, NewLoadError("", fmt.Sprintf("property %s of entity %s holds a nested object without @id; crate metadata must be flattened", property, entityID), nil)
		}
		return []Value{Ref(id)}, nil
	case []any:
		var out []Value
		for _, item := range v {
			vals, err := decodeValues(entityID, property, item)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
		return out, nil
	default:
		return nil, NewLoadError("", fmt.Sprintf("property %s of entity %s holds an unsupported JSON value", property, entityID), nil)
	}
}

// resolveRoot locates the metadata descriptor and follows its "about"
// reference to the root data entity. Either may be absent; shape evaluation
// decides what that means for a given profile.
func (g *Graph) resolveRoot() {
	desc, ok := g.entities[MetadataFilename]
	if !ok {
		desc, ok = g.entities[LegacyMetadataFilename]
	}
	if !ok {
		return
	}
	g.descriptor = desc

	for _, v := range desc.props["about"] {
		if v.Kind != KindRef {
			continue
		}
		if root, ok := g.entities[v.Ref]; ok {
			g.root = root
			return
		}
	}
}
