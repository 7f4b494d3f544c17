package profiles

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	goyaml "github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/rocval-dev/rocval/internal/shapes"
)

//go:embed profileschema.json
var profileSchemaJSON []byte

var (
	metaOnce   sync.Once
	metaSchema *jsonschema.Schema
	metaErr    error
)

// profileMetaSchema compiles the embedded profile document schema once.
func profileMetaSchema() (*jsonschema.Schema, error) {
	metaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("profile.schema.json", bytes.NewReader(profileSchemaJSON)); err != nil {
			metaErr = fmt.Errorf("failed to add profile schema resource: %w", err)
			return
		}
		metaSchema, metaErr = compiler.Compile("profile.schema.json")
	})
	return metaSchema, metaErr
}

// LoadDocument loads and parses a profile document from a YAML file.
func LoadDocument(path string) (*Doc, error) {
	// Use os.OpenRoot to prevent path traversal through symlinks
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile directory: %w", err)
	}
	defer root.Close()

	file, err := root.Open(base)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile document: %w", err)
	}
	defer file.Close()

	return LoadDocumentFromReader(file)
}

// LoadDocumentFromReader loads and parses a profile document from an
// io.Reader. The raw document is validated against the embedded profile
// schema before strict decoding, so structural mistakes are reported with
// their instance paths.
func LoadDocumentFromReader(r io.Reader) (*Doc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile document: %w", err)
	}

	if err := validateDocumentBytes(data); err != nil {
		return nil, err
	}

	var doc Doc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile YAML: %w", err)
	}

	return &doc, nil
}

// validateDocumentBytes checks the raw YAML against the profile document
// schema.
func validateDocumentBytes(data []byte) error {
	schema, err := profileMetaSchema()
	if err != nil {
		return err
	}

	jsonData, err := goyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	var instance any
	if err := json.Unmarshal(jsonData, &instance); err != nil {
		return fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid profile document:\n  - %s", strings.Join(schemaMessages(verr), "\n  - "))
		}
		return fmt.Errorf("invalid profile document: %w", err)
	}
	return nil
}

// schemaMessages flattens a schema validation error into one message per
// leaf cause, each prefixed with its instance location.
func schemaMessages(err *jsonschema.ValidationError) []string {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
			return
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}

	collect(err)
	return messages
}

// LoadDir loads every profile document under dir (*.yaml and *.yml, sorted
// by filename), compiles them in inheritance order, and registers each.
// Unknown parent tokens and inheritance cycles fail with a *BuildError
// before anything is registered.
func (r *Registry) LoadDir(dir string, opts ...shapes.Option) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	docs := make(map[string]*Doc)
	var tokens []string
	for _, name := range files {
		doc, err := LoadDocument(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
		token := doc.Profile.Token
		if existing, ok := docs[token]; ok {
			return &DuplicateTokenError{Token: token, ExistingID: existing.Profile.ID}
		}
		docs[token] = doc
		tokens = append(tokens, token)
	}

	return r.registerDocs(docs, tokens, opts...)
}

// registerDocs compiles the given documents in inheritance order and
// registers each. Collisions are detected before anything is registered, so
// a failed batch leaves the registry unchanged.
func (r *Registry) registerDocs(docs map[string]*Doc, tokens []string, opts ...shapes.Option) error {
	order, err := inheritanceOrder(docs, tokens)
	if err != nil {
		return err
	}

	compiled := make(map[string]*Profile)
	for _, token := range order {
		doc := docs[token]
		copts := []CompileOption{WithShapeOptions(opts...)}
		if parentToken, _, _ := parseExtends(doc.Profile.Extends); parentToken != "" {
			copts = append(copts, WithParent(compiled[parentToken]))
		}
		p, err := Compile(doc, copts...)
		if err != nil {
			return err
		}
		compiled[token] = p
	}

	seenIDs := make(map[string]string)
	for _, token := range order {
		p := compiled[token]
		if existing, err := r.Resolve(token); err == nil {
			return &DuplicateTokenError{Token: token, ExistingID: existing.ID}
		}
		if existing, ok := r.ResolveID(p.ID); ok {
			return &DuplicateIDError{ID: p.ID, ExistingToken: existing.Token}
		}
		if other, ok := seenIDs[p.ID]; ok {
			return &DuplicateIDError{ID: p.ID, ExistingToken: other}
		}
		seenIDs[p.ID] = token
	}

	for _, token := range order {
		if err := r.Register(compiled[token]); err != nil {
			return err
		}
	}
	return nil
}

// inheritanceOrder sorts tokens so every parent precedes its children,
// failing on unknown parents and cycles.
func inheritanceOrder(docs map[string]*Doc, tokens []string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(docs))
	var order []string

	var visit func(token string, stack []string) error
	visit = func(token string, stack []string) error {
		switch state[token] {
		case done:
			return nil
		case visiting:
			cycle := append(stack, token)
			return &BuildError{Token: token, Problems: []BuildProblem{{
				Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(cycle, " -> ")),
			}}}
		}
		state[token] = visiting

		doc := docs[token]
		if parentToken, _, _ := parseExtends(doc.Profile.Extends); parentToken != "" && parentToken != token {
			if _, ok := docs[parentToken]; !ok {
				return &BuildError{Token: token, Problems: []BuildProblem{{
					Message: fmt.Sprintf("extends unknown profile %q", parentToken),
				}}}
			}
			if err := visit(parentToken, append(stack, token)); err != nil {
				return err
			}
		}

		state[token] = done
		order = append(order, token)
		return nil
	}

	for _, token := range tokens {
		if err := visit(token, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
