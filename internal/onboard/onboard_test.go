package onboard

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopilot/octopilot-mcp/internal/detect"
	"github.com/octopilot/octopilot-mcp/internal/manifest"
	"github.com/octopilot/octopilot-mcp/internal/templates"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newOnboarder(t *testing.T) *Onboarder {
	t.Helper()
	r, err := templates.NewRenderer()
	require.NoError(t, err)
	return New(r)
}

func containsStep(steps []string, substr string) bool {
	for _, s := range steps {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestRun_SingleGoService(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "api", "go.mod"), "module example.com/api\n\ngo 1.24\n")

	res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/my-org"})
	require.NoError(t, err)

	assert.Equal(t, []detect.Language{detect.LanguageGo}, res.PipelineContext.Languages)
	assert.Equal(t, map[detect.Language]string{detect.LanguageGo: "1.24"}, res.PipelineContext.Versions)
	require.NotNil(t, res.SkaffoldYAML)
	assert.Contains(t, *res.SkaffoldYAML, "context: api")
	assert.True(t, containsStep(res.NextSteps, ".golangci.yml"))
	assert.Contains(t, res.CIWorkflow, "golangci-lint-timeout: '10m'")
	assert.Equal(t, []string{manifest.File, templates.WorkflowPath}, res.FilesToCreate)

	assert.NoFileExists(t, filepath.Join(ws, manifest.File))
}

func TestRun_ExistingManifestIsUsed(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, manifest.File),
		"apiVersion: skaffold/v4beta1\nkind: Config\nbuild:\n  artifacts:\n    - image: web\n      context: web\n")
	writeFile(t, filepath.Join(ws, "web", "package.json"), `{"engines":{"node":"22"}}`)
	writeFile(t, filepath.Join(ws, "other", "go.mod"), "go 1.22\n")

	res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
	require.NoError(t, err)

	assert.Nil(t, res.SkaffoldYAML)
	assert.Equal(t, []detect.Language{detect.LanguageNode}, res.PipelineContext.Languages)
	assert.NotContains(t, res.FilesToCreate, manifest.File)
	assert.FileExists(t, filepath.Join(ws, manifest.File), "a pre-existing manifest must be left alone")
	assert.False(t, containsStep(res.NextSteps, ".golangci.yml"))
}

func TestRun_MultipleServicesSortedAndHiddenSkipped(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "worker", "Cargo.toml"), "[package]\n")
	writeFile(t, filepath.Join(ws, "api", "pyproject.toml"), "[project]\nrequires-python = '>=3.12'\n")
	writeFile(t, filepath.Join(ws, ".tools", "go.mod"), "go 1.22\n")
	writeFile(t, filepath.Join(ws, "docs", "index.md"), "# docs")

	res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
	require.NoError(t, err)

	require.Len(t, res.PipelineContext.Matrix, 2)
	assert.Equal(t, "api", res.PipelineContext.Matrix[0].Name)
	assert.Equal(t, "worker", res.PipelineContext.Matrix[1].Name)
	assert.NotContains(t, *res.SkaffoldYAML, ".tools")
	assert.NotContains(t, *res.SkaffoldYAML, "docs")
}

func TestRun_FallsBackToWholeWorkspace(t *testing.T) {
	parent := t.TempDir()
	ws := filepath.Join(parent, "my-service")
	writeFile(t, filepath.Join(ws, "requirements.txt"), "flask\n")

	res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
	require.NoError(t, err)

	require.NotNil(t, res.SkaffoldYAML)
	assert.Contains(t, *res.SkaffoldYAML, "image: my-service")
	require.Len(t, res.PipelineContext.Matrix, 1)
	assert.Equal(t, ".", res.PipelineContext.Matrix[0].Context)
	assert.Equal(t, []detect.Language{detect.LanguagePython}, res.PipelineContext.Languages)
}

func TestRun_EmptyWorkspace(t *testing.T) {
	ws := t.TempDir()

	res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
	require.NoError(t, err)

	assert.Empty(t, res.PipelineContext.Matrix)
	assert.Empty(t, res.PipelineContext.Languages)
	assert.NoFileExists(t, filepath.Join(ws, manifest.File))
}

func TestRun_TemporaryManifestRemovedOnDetectFailure(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "api", "go.mod"), "go 1.24\n")

	o := newOnboarder(t)
	var sawManifest bool
	o.detect = func(root string) (*detect.PipelineContext, error) {
		sawManifest = manifest.Exists(root)
		return nil, errors.New("boom")
	}

	_, err := o.Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, sawManifest, "detection must see the temporary manifest")
	assert.NoFileExists(t, filepath.Join(ws, manifest.File))
}

func TestRun_ExistingWorkflowNotListed(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, ".github", "workflows", "ci.yml"), "name: CI\n")

	res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
	require.NoError(t, err)
	assert.Equal(t, []string{manifest.File}, res.FilesToCreate)
}

func TestRun_NextSteps(t *testing.T) {
	tests := []struct {
		name          string
		files         map[string]string
		wantLint      bool
		wantPreCommit bool
	}{
		{"go without pre-commit", map[string]string{"go.mod": "go 1.24\n"}, true, true},
		{"go with pre-commit", map[string]string{"go.mod": "go 1.24\n", PreCommitConfig: "repos: []\n"}, true, false},
		{"node without pre-commit", map[string]string{"package.json": "{}"}, false, true},
		{"node with pre-commit", map[string]string{"package.json": "{}", PreCommitConfig: "repos: []\n"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(ws, name), content)
			}

			res, err := newOnboarder(t).Run(Options{Workspace: ws, Registry: "ghcr.io/org"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantLint, containsStep(res.NextSteps, ".golangci.yml"))
			assert.Equal(t, tt.wantPreCommit, containsStep(res.NextSteps, PreCommitConfig))
			assert.True(t, containsStep(res.NextSteps, "ghcr.io/org"))
			assert.Contains(t, res.NextSteps[len(res.NextSteps)-1], "Push changes")
		})
	}
}

func TestRun_RequiresArguments(t *testing.T) {
	o := newOnboarder(t)

	_, err := o.Run(Options{Registry: "r"})
	assert.Error(t, err)

	_, err = o.Run(Options{Workspace: t.TempDir()})
	assert.Error(t, err)
}
