package profiles

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/rocval-dev/rocval/internal/shapes"
)

//go:embed defaults/*.yaml
var defaultDocs embed.FS

// LoadDefaults registers the profile documents bundled with the binary, so
// validation works out of the box without a profiles directory. The bundled
// set covers the base RO-Crate profile and the Workflow RO-Crate profile
// that extends it.
func (r *Registry) LoadDefaults(opts ...shapes.Option) error {
	docs := make(map[string]*Doc)
	var tokens []string

	err := fs.WalkDir(defaultDocs, "defaults", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		file, err := defaultDocs.Open(name)
		if err != nil {
			return fmt.Errorf("failed to open bundled profile %s: %w", name, err)
		}
		doc, err := LoadDocumentFromReader(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("bundled profile %s: %w", path.Base(name), err)
		}

		token := doc.Profile.Token
		if existing, ok := docs[token]; ok {
			return &DuplicateTokenError{Token: token, ExistingID: existing.Profile.ID}
		}
		docs[token] = doc
		tokens = append(tokens, token)
		return nil
	})
	if err != nil {
		return err
	}

	return r.registerDocs(docs, tokens, opts...)
}
