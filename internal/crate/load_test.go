package crate

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCrate = `{
  "@context": "https://w3id.org/ro/crate/1.1/context",
  "@graph": [
    {
      "@id": "ro-crate-metadata.json",
      "@type": "CreativeWork",
      "conformsTo": {"@id": "https://w3id.org/ro/crate/1.1"},
      "about": {"@id": "./"}
    },
    {
      "@id": "./",
      "@type": "Dataset",
      "name": "Example crate",
      "datePublished": "2024-01-15",
      "license": {"@id": "https://spdx.org/licenses/CC0-1.0"},
      "hasPart": [
        {"@id": "data.csv"},
        {"@id": "sort-and-change-case.ga"}
      ]
    },
    {
      "@id": "data.csv",
      "@type": "File",
      "contentSize": 1234,
      "encodingFormat": "text/csv"
    },
    {
      "@id": "sort-and-change-case.ga",
      "@type": ["File", "SoftwareSourceCode", "ComputationalWorkflow"],
      "name": "sort-and-change-case"
    }
  ]
}`

func TestDecode_Valid(t *testing.T) {
	g, err := Decode(strings.NewReader(minimalCrate))
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, 4, g.Len())

	// Descriptor and root resolve through the "about" reference
	require.NotNil(t, g.Descriptor())
	assert.Equal(t, "ro-crate-metadata.json", g.Descriptor().ID())
	require.NotNil(t, g.Root())
	assert.Equal(t, "./", g.Root().ID())
	assert.True(t, g.Root().HasType("Dataset"))

	// Scalar and reference values
	name := g.Root().Values("name")
	require.Len(t, name, 1)
	assert.Equal(t, KindString, name[0].Kind)
	assert.Equal(t, "Example crate", name[0].Str)

	parts := g.Root().Values("hasPart")
	require.Len(t, parts, 2)
	assert.Equal(t, KindRef, parts[0].Kind)
	assert.Equal(t, "data.csv", parts[0].Ref)

	file, ok := g.Entity("data.csv")
	require.True(t, ok)
	size := file.Values("contentSize")
	require.Len(t, size, 1)
	assert.Equal(t, KindNumber, size[0].Kind)
	assert.Equal(t, float64(1234), size[0].Num)

	// Multiple types on one entity
	wf, ok := g.Entity("sort-and-change-case.ga")
	require.True(t, ok)
	assert.True(t, wf.HasType("ComputationalWorkflow"))
	assert.True(t, wf.HasType("File"))
	assert.False(t, wf.HasType("Dataset"))
}

func TestDecode_RepeatedIDsMerge(t *testing.T) {
	doc := `{
  "@graph": [
    {"@id": "a", "@type": "File", "name": "first"},
    {"@id": "a", "@type": "SoftwareSourceCode", "name": "second"}
  ]
}`

	g, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	e, ok := g.Entity("a")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"File", "SoftwareSourceCode"}, e.Types())
	assert.Len(t, e.Values("name"), 2)
}

func TestDecode_BlankNodes(t *testing.T) {
	doc := `{
  "@graph": [
    {"@type": "Person", "name": "anonymous"},
    {"@type": "Person", "name": "also anonymous"}
  ]
}`

	g, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	people := g.EntitiesOfType("Person")
	require.Len(t, people, 2)
	assert.Equal(t, "_:b0", people[0].ID())
	assert.Equal(t, "_:b1", people[1].ID())
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"@graph": [`))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "malformed JSON")
}

func TestDecode_MissingGraph(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"@context": "https://w3id.org/ro/crate/1.1/context"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no @graph")
}

func TestDecode_NestedObjectWithoutID(t *testing.T) {
	doc := `{
  "@graph": [
    {"@id": "./", "@type": "Dataset", "author": {"name": "inline person"}}
  ]
}`

	_, err := Decode(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be flattened")
	assert.Contains(t, err.Error(), "author")
}

func TestDecode_NoDescriptor(t *testing.T) {
	doc := `{
  "@graph": [
    {"@id": "./", "@type": "Dataset", "name": "orphan"}
  ]
}`

	g, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Nil(t, g.Descriptor())
	assert.Nil(t, g.Root())
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFilename), []byte(minimalCrate), 0o600))

	g, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "./", g.Root().ID())
}

func TestLoadDir_LegacyFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LegacyMetadataFilename), []byte(minimalCrate), 0o600))

	g, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "ro-crate-metadata.json", g.Descriptor().ID())
}

func TestLoadDir_MissingMetadata(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDir(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, dir, loadErr.Path)
}

func TestLoadZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.crate.zip")
	writeZip(t, path, map[string]string{
		MetadataFilename: minimalCrate,
		"data.csv":       "a,b\n1,2\n",
	})

	g, err := LoadZip(path)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, "./", g.Root().ID())
}

func TestLoadZip_NoMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	writeZip(t, path, map[string]string{"readme.txt": "nothing here"})

	_, err := LoadZip(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive root")
}

func TestLoad_DispatchesOnPathKind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFilename), []byte(minimalCrate), 0o600))

	// Directory
	g, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	// Metadata file directly
	g, err = Load(filepath.Join(dir, MetadataFilename))
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	// Zip archive
	zipPath := filepath.Join(t.TempDir(), "crate.zip")
	writeZip(t, zipPath, map[string]string{MetadataFilename: minimalCrate})
	g, err = Load(zipPath)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	// Neither
	stray := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o600))
	_, err = Load(stray)
	require.Error(t, err)

	// Missing path
	_, err = Load(filepath.Join(dir, "missing"))
	require.Error(t, err)
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}
