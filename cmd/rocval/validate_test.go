package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocval-dev/rocval/internal/crate"
	"github.com/rocval-dev/rocval/internal/profiles"
)

const cliProfileYAML = `profile:
  token: ro-crate
  id: https://w3id.org/ro/crate/1.1
  name: RO-Crate Metadata Specification 1.1
  version: 1.1.0

shapes:
  classes:
    FileDescriptor:
      target: CreativeWork
      properties:
        - path: about
          minCount: 1
          kind: node
          class: RootDataEntity
    RootDataEntity:
      root: true
      properties:
        - path: name
          minCount: 1
          kind: string
        - path: datePublished
          minCount: 1

requirements:
  defaults:
    severity: REQUIRED
  items:
    - name: RO-Crate Metadata File Descriptor
      checks:
        - name: File Descriptor existence
          shape: FileDescriptor
    - name: Root Data Entity metadata
      severity: should
      checks:
        - name: Root Data Entity required properties
          shape: RootDataEntity
`

const cliValidCrate = `{
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
      "name": "CLI fixture crate",
      "datePublished": "2024-06-01"
    }
  ]
}`

const cliIncompleteCrate = `{
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
      "name": "CLI fixture crate"
    }
  ]
}`

// resetFlags restores the command globals after a test mutates them.
func resetFlags(t *testing.T) {
	t.Helper()

	savedProfileToken := profileToken
	savedProfilesDir := profilesDir
	savedSeverityName := severityName
	savedSeverityOnly := severityOnly
	savedFailFast := failFast
	savedFilterExpr := filterExpr
	savedNoInheritance := noInheritance
	savedFormat := format
	savedOutFile := outFile
	savedNoInteractive := noInteractive
	savedNoColor := noColor

	t.Cleanup(func() {
		profileToken = savedProfileToken
		profilesDir = savedProfilesDir
		severityName = savedSeverityName
		severityOnly = savedSeverityOnly
		failFast = savedFailFast
		filterExpr = savedFilterExpr
		noInheritance = savedNoInheritance
		format = savedFormat
		outFile = savedOutFile
		noInteractive = savedNoInteractive
		noColor = savedNoColor
	})
}

func writeCLIFixtures(t *testing.T, crateDoc string) (profilesPath, cratePath string) {
	t.Helper()

	profilesPath = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(profilesPath, "ro-crate.yaml"), []byte(cliProfileYAML), 0o600))

	crateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(crateDir, "ro-crate-metadata.json"), []byte(crateDoc), 0o600))
	return profilesPath, crateDir
}

func decodeGraphDoc(t *testing.T, doc string) *crate.Graph {
	t.Helper()
	g, err := crate.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	return g
}

func newTestRegistry(t *testing.T, ps ...*profiles.Profile) *profiles.Registry {
	t.Helper()
	registry := profiles.NewRegistry()
	for _, p := range ps {
		require.NoError(t, registry.Register(p))
	}
	return registry
}

func TestRunValidateAction_PassingCrate(t *testing.T) {
	resetFlags(t)

	profilesPath, cratePath := writeCLIFixtures(t, cliValidCrate)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	profileToken = "ro-crate"
	profilesDir = profilesPath
	severityName = "optional"
	format = "json"
	outFile = reportPath
	noInteractive = true

	require.NoError(t, runValidateAction(context.Background(), cratePath))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report struct {
		Profile string `json:"profile"`
		Status  string `json:"status"`
		Results []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"results"`
		Summary struct {
			TotalChecks  int `json:"total_checks"`
			PassedChecks int `json:"passed_checks"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, "ro-crate", report.Profile)
	assert.Equal(t, "completed", report.Status)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "ro-crate:1.1", report.Results[0].ID)
	assert.Equal(t, "pass", report.Results[0].Status)
	assert.Equal(t, 2, report.Summary.TotalChecks)
	assert.Equal(t, 2, report.Summary.PassedChecks)
}

func TestRunValidateAction_FailingCrate(t *testing.T) {
	resetFlags(t)

	profilesPath, cratePath := writeCLIFixtures(t, cliIncompleteCrate)

	profileToken = "ro-crate"
	profilesDir = profilesPath
	severityName = "optional"
	format = "json"
	outFile = filepath.Join(t.TempDir(), "report.json")
	noInteractive = true

	err := runValidateAction(context.Background(), cratePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed: 1 passed, 1 failed, 0 errors")

	var xerr *exitError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, exitFailure, xerr.code)
}

func TestRunValidateAction_BundledProfiles(t *testing.T) {
	resetFlags(t)

	// Without --profiles-dir the bundled profiles apply, and the crate's
	// conformsTo declaration picks the base profile.
	const doc = `{
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
      "name": "Bundled profile fixture",
      "description": "A dataset exercising the profiles shipped with the binary.",
      "datePublished": "2024-06-01",
      "license": {"@id": "https://creativecommons.org/licenses/by/4.0/"}
    },
    {
      "@id": "https://creativecommons.org/licenses/by/4.0/",
      "@type": "CreativeWork",
      "name": "CC BY 4.0"
    }
  ]
}`
	crateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(crateDir, "ro-crate-metadata.json"), []byte(doc), 0o600))
	reportPath := filepath.Join(t.TempDir(), "report.json")

	profileToken = ""
	profilesDir = ""
	severityName = "required"
	format = "json"
	outFile = reportPath
	noInteractive = true

	require.NoError(t, runValidateAction(context.Background(), crateDir))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report struct {
		Profile string `json:"profile"`
		Status  string `json:"status"`
		Results []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, "ro-crate", report.Profile)
	assert.Equal(t, "completed", report.Status)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "ro-crate:1.1", report.Results[0].ID)
	assert.Equal(t, "ro-crate:2.1", report.Results[1].ID)
	for _, res := range report.Results {
		assert.Equal(t, "pass", res.Status)
	}
}

func TestRunValidateAction_SeverityThresholdSkipsRecommended(t *testing.T) {
	resetFlags(t)

	// The incomplete crate only violates the SHOULD requirement, which the
	// default threshold does not evaluate.
	profilesPath, cratePath := writeCLIFixtures(t, cliIncompleteCrate)

	profileToken = "ro-crate"
	profilesDir = profilesPath
	severityName = "required"
	format = "json"
	outFile = filepath.Join(t.TempDir(), "report.json")
	noInteractive = true

	require.NoError(t, runValidateAction(context.Background(), cratePath))
}

func TestRunValidateAction_BadInputs(t *testing.T) {
	resetFlags(t)

	profilesPath, cratePath := writeCLIFixtures(t, cliValidCrate)

	profileToken = "ro-crate"
	profilesDir = profilesPath
	noInteractive = true

	t.Run("invalid severity", func(t *testing.T) {
		severityName = "catastrophic"
		err := runValidateAction(context.Background(), cratePath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid severity: "catastrophic"`)
		severityName = "required"
	})

	t.Run("invalid filter expression", func(t *testing.T) {
		filterExpr = "severity =="
		err := runValidateAction(context.Background(), cratePath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid filter expression")
		assert.Contains(t, err.Error(), "Example:")
		filterExpr = ""
	})

	t.Run("missing crate", func(t *testing.T) {
		err := runValidateAction(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load crate")
	})

	t.Run("missing profiles directory", func(t *testing.T) {
		profilesDir = filepath.Join(t.TempDir(), "nope")
		err := runValidateAction(context.Background(), cratePath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load profiles")
		profilesDir = profilesPath
	})

	t.Run("unknown format", func(t *testing.T) {
		format = "junit"
		err := runValidateAction(context.Background(), cratePath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
		format = "text"
	})
}

func TestSelectProfile(t *testing.T) {
	resetFlags(t)
	noInteractive = true

	base := &profiles.Profile{
		Token:   "ro-crate",
		ID:      "https://w3id.org/ro/crate/1.1",
		Name:    "RO-Crate 1.1",
		Version: semver.MustParse("1.1.0"),
	}
	workflow := &profiles.Profile{
		Token:   "workflow-ro-crate",
		ID:      "https://w3id.org/workflowhub/workflow-ro-crate/1.0",
		Name:    "Workflow RO-Crate",
		Version: semver.MustParse("1.0.0"),
	}
	registry := newTestRegistry(t, base, workflow)

	t.Run("explicit token", func(t *testing.T) {
		profileToken = "workflow-ro-crate"
		p, err := selectProfile(registry, decodeGraphDoc(t, cliValidCrate))
		require.NoError(t, err)
		assert.Equal(t, "workflow-ro-crate", p.Token)
		profileToken = ""
	})

	t.Run("unknown token", func(t *testing.T) {
		profileToken = "process-run-crate"
		_, err := selectProfile(registry, decodeGraphDoc(t, cliValidCrate))
		require.Error(t, err)

		var notFound *profiles.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, err.Error(), "available: ro-crate, workflow-ro-crate")
		profileToken = ""
	})

	t.Run("single candidate autodetected", func(t *testing.T) {
		const doc = `{
  "@graph": [
    {"@id": "ro-crate-metadata.json", "@type": "CreativeWork", "about": {"@id": "./"}},
    {"@id": "./", "@type": "Dataset", "conformsTo": {"@id": "https://w3id.org/workflowhub/workflow-ro-crate/1.0"}}
  ]
}`
		p, err := selectProfile(registry, decodeGraphDoc(t, doc))
		require.NoError(t, err)
		assert.Equal(t, "workflow-ro-crate", p.Token)
	})

	t.Run("ambiguous without prompt", func(t *testing.T) {
		const doc = `{
  "@graph": [
    {"@id": "ro-crate-metadata.json", "@type": "CreativeWork", "about": {"@id": "./"}},
    {"@id": "./", "@type": "Dataset", "conformsTo": [
      {"@id": "https://w3id.org/ro/crate/1.1"},
      {"@id": "https://w3id.org/workflowhub/workflow-ro-crate/1.0"}
    ]}
  ]
}`
		_, err := selectProfile(registry, decodeGraphDoc(t, doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crate conforms to multiple profiles (ro-crate, workflow-ro-crate)")
	})

	t.Run("undetected without prompt", func(t *testing.T) {
		const doc = `{
  "@graph": [
    {"@id": "ro-crate-metadata.json", "@type": "CreativeWork", "conformsTo": {"@id": "https://example.org/unknown/1.0"}, "about": {"@id": "./"}},
    {"@id": "./", "@type": "Dataset"}
  ]
}`
		_, err := selectProfile(registry, decodeGraphDoc(t, doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to detect a profile")
		assert.Contains(t, err.Error(), "--profile")
	})
}

func TestResolveProfilesDir(t *testing.T) {
	resetFlags(t)

	t.Run("flag wins", func(t *testing.T) {
		profilesDir = "/opt/custom"
		assert.Equal(t, "/opt/custom", resolveProfilesDir())
		profilesDir = ""
	})

	t.Run("config fallback", func(t *testing.T) {
		viper.Set("profiles_dir", "/etc/rocval/profiles")
		defer viper.Set("profiles_dir", "")
		assert.Equal(t, "/etc/rocval/profiles", resolveProfilesDir())
	})

	t.Run("unset means bundled profiles", func(t *testing.T) {
		assert.Equal(t, "", resolveProfilesDir())
	})
}

func TestLoadRegistry(t *testing.T) {
	t.Run("bundled defaults", func(t *testing.T) {
		registry, err := loadRegistry("")
		require.NoError(t, err)
		assert.Equal(t, []string{"ro-crate", "workflow-ro-crate"}, registry.Tokens())
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := loadRegistry(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no profile documents found")
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitFailure, exitCode(&exitError{code: exitFailure, err: errors.New("checks failed")}))
	assert.Equal(t, exitUsage, exitCode(errors.New("bad flag")))

	// Wrapping keeps the tagged code reachable
	wrapped := fmt.Errorf("validate: %w", &exitError{code: exitFailure, err: errors.New("checks failed")})
	assert.Equal(t, exitFailure, exitCode(wrapped))
}
