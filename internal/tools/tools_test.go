package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/history"
	"github.com/octopilot/octopilot-mcp/internal/manifest"
	"github.com/octopilot/octopilot-mcp/internal/onboard"
	"github.com/octopilot/octopilot-mcp/internal/oprunner"
	"github.com/octopilot/octopilot-mcp/internal/templates"
)

// --- Test helpers ---

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// goWorkspace returns a workspace with a skaffold.yaml and one Go service.
func goWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, manifest.File),
		"apiVersion: skaffold/v4beta1\nkind: Config\nbuild:\n  artifacts:\n    - image: api\n      context: api\n")
	writeFile(t, filepath.Join(ws, "api", "go.mod"), "module example.com/api\n\ngo 1.24\n")
	return ws
}

func newRenderer(t *testing.T) templates.Renderer {
	t.Helper()
	r, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

type fakeBuilder struct {
	mode oprunner.Mode
	err  error
	got  []oprunner.BuildOptions
}

func (f *fakeBuilder) ResolveMode(oprunner.BuildOptions) oprunner.Mode { return f.mode }

func (f *fakeBuilder) Build(_ context.Context, opts oprunner.BuildOptions) (*oprunner.BuildResult, error) {
	f.got = append(f.got, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &oprunner.BuildResult{
		Invocation: &oprunner.Invocation{Mode: f.mode, Path: "op", Args: oprunner.OpArgs(opts), Dir: opts.Workspace},
		Output:     map[string]any{"builds": []any{map[string]any{"imageName": "api"}}},
	}, nil
}

type fakeRecorder struct {
	records []history.Record
	err     error
}

func (f *fakeRecorder) Add(rec history.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return "build-1", nil
}

type fakeLister struct {
	records      []history.Record
	err          error
	gotWorkspace string
	gotLimit     int
}

func (f *fakeLister) Recent(workspace string, limit int) ([]history.Record, error) {
	f.gotWorkspace, f.gotLimit = workspace, limit
	return f.records, f.err
}

// --- DetectTool ---

func TestDetectTool_Success(t *testing.T) {
	ws := goWorkspace(t)

	result, err := NewDetectTool().Handle(context.Background(), newRequest(map[string]interface{}{"workspace": ws}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var pc struct {
		Matrix    []map[string]any  `json:"matrix"`
		Languages []string          `json:"languages"`
		Versions  map[string]string `json:"versions"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &pc); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(pc.Matrix) != 1 || pc.Matrix[0]["name"] != "api" {
		t.Errorf("unexpected matrix: %v", pc.Matrix)
	}
	if pc.Versions["go"] != "1.24" {
		t.Errorf("versions[go] = %q, want 1.24", pc.Versions["go"])
	}
}

func TestDetectTool_MissingManifest(t *testing.T) {
	result, err := NewDetectTool().Handle(context.Background(), newRequest(map[string]interface{}{"workspace": t.TempDir()}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected tool error for missing skaffold.yaml")
	}
	if !strings.Contains(getResultText(result), "onboard_repository") {
		t.Errorf("error should point at onboard_repository, got: %s", getResultText(result))
	}
}

func TestDetectTool_RequiresWorkspace(t *testing.T) {
	result, _ := NewDetectTool().Handle(context.Background(), newRequest(nil))
	if !isErrorResult(result) {
		t.Fatal("expected tool error")
	}
}

// --- GenerateSkaffoldTool ---

func TestGenerateSkaffoldTool_Success(t *testing.T) {
	req := newRequest(map[string]interface{}{
		"artifacts": []interface{}{
			map[string]interface{}{"name": "api", "context": "api"},
			map[string]interface{}{"name": "web"},
		},
	})

	result, err := NewGenerateSkaffoldTool().Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	cfg, err := manifest.Parse([]byte(getResultText(result)))
	if err != nil {
		t.Fatalf("output is not a valid manifest: %v", err)
	}
	if len(cfg.Build.Artifacts) != 2 {
		t.Fatalf("want 2 artifacts, got %d", len(cfg.Build.Artifacts))
	}
	if cfg.Build.Artifacts[1].Context != "." {
		t.Errorf("missing context should default to '.', got %q", cfg.Build.Artifacts[1].Context)
	}
	if cfg.Build.Artifacts[0].Buildpacks.Builder != manifest.DefaultBuilder {
		t.Errorf("builder = %q, want default", cfg.Build.Artifacts[0].Buildpacks.Builder)
	}
}

func TestGenerateSkaffoldTool_CustomBuilder(t *testing.T) {
	req := newRequest(map[string]interface{}{
		"artifacts": []interface{}{map[string]interface{}{"name": "api"}},
		"builder":   "paketobuildpacks/builder-jammy-base",
	})

	result, _ := NewGenerateSkaffoldTool().Handle(context.Background(), req)
	if !strings.Contains(getResultText(result), "builder: paketobuildpacks/builder-jammy-base") {
		t.Errorf("custom builder missing: %s", getResultText(result))
	}
}

func TestGenerateSkaffoldTool_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing", nil},
		{"empty", map[string]interface{}{"artifacts": []interface{}{}}},
		{"no name", map[string]interface{}{"artifacts": []interface{}{map[string]interface{}{"context": "api"}}}},
		{"wrong shape", map[string]interface{}{"artifacts": "api"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewGenerateSkaffoldTool().Handle(context.Background(), newRequest(tt.args))
			if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if !isErrorResult(result) {
				t.Errorf("expected tool error, got: %s", getResultText(result))
			}
		})
	}
}

// --- GenerateWorkflowTool ---

func goContext() map[string]interface{} {
	return map[string]interface{}{
		"matrix": []interface{}{
			map[string]interface{}{"name": "api", "context": "api", "language": "go", "version": "1.24"},
		},
		"languages": []interface{}{"go"},
		"versions":  map[string]interface{}{"go": "1.24"},
	}
}

func TestGenerateWorkflowTool_Success(t *testing.T) {
	tool := NewGenerateWorkflowTool(newRenderer(t))
	req := newRequest(map[string]interface{}{
		"pipeline_context":      goContext(),
		"registry":              "ghcr.io/my-org",
		"golangci_lint_timeout": "5m",
	})

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	for _, want := range []string{"registry: ghcr.io/my-org", "golangci-lint-timeout: '5m'", "linux/amd64,linux/arm64"} {
		if !strings.Contains(text, want) {
			t.Errorf("workflow should contain %q", want)
		}
	}
}

func TestGenerateWorkflowTool_InvalidContext(t *testing.T) {
	pc := goContext()
	pc["matrix"] = []interface{}{map[string]interface{}{"name": "app", "context": ".", "language": "cobol"}}

	tool := NewGenerateWorkflowTool(newRenderer(t))
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{
		"pipeline_context": pc,
		"registry":         "ghcr.io/org",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected tool error for unknown language")
	}
}

func TestGenerateWorkflowTool_RequiredArguments(t *testing.T) {
	tool := NewGenerateWorkflowTool(newRenderer(t))

	result, _ := tool.Handle(context.Background(), newRequest(map[string]interface{}{"pipeline_context": goContext()}))
	if !isErrorResult(result) {
		t.Error("expected tool error without registry")
	}

	result, _ = tool.Handle(context.Background(), newRequest(map[string]interface{}{"registry": "ghcr.io/org"}))
	if !isErrorResult(result) {
		t.Error("expected tool error without pipeline_context")
	}
}

// --- OnboardTool ---

func TestOnboardTool_Success(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "api", "go.mod"), "go 1.24\n")

	tool := NewOnboardTool(onboard.New(newRenderer(t)))
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{
		"workspace": ws,
		"registry":  "ghcr.io/org",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var res onboard.Result
	if err := json.Unmarshal([]byte(getResultText(result)), &res); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if res.SkaffoldYAML == nil {
		t.Error("skaffold_yaml should be proposed")
	}
	if len(res.FilesToCreate) != 2 {
		t.Errorf("files_to_create = %v", res.FilesToCreate)
	}
	if _, err := os.Stat(filepath.Join(ws, manifest.File)); !os.IsNotExist(err) {
		t.Error("onboarding must not leave skaffold.yaml behind")
	}
}

func TestOnboardTool_RequiredArguments(t *testing.T) {
	tool := NewOnboardTool(onboard.New(newRenderer(t)))

	result, _ := tool.Handle(context.Background(), newRequest(map[string]interface{}{"registry": "r"}))
	if !isErrorResult(result) {
		t.Error("expected tool error without workspace")
	}
	result, _ = tool.Handle(context.Background(), newRequest(map[string]interface{}{"workspace": t.TempDir()}))
	if !isErrorResult(result) {
		t.Error("expected tool error without registry")
	}
}

// --- BuildTool ---

func TestBuildTool_Success(t *testing.T) {
	ws := goWorkspace(t)
	builder := &fakeBuilder{mode: oprunner.ModeContainer}
	recorder := &fakeRecorder{}

	tool := NewBuildTool(builder, recorder)
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{
		"workspace":     ws,
		"registry":      "ghcr.io/org",
		"push":          true,
		"use_container": true,
		"op_image":      "ghcr.io/octopilot/op:v1",
		"extra_args":    []interface{}{"--sbom-output", "dist/sbom"},
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	if len(builder.got) != 1 {
		t.Fatalf("want 1 build, got %d", len(builder.got))
	}
	opts := builder.got[0]
	if !opts.Push || opts.UseContainer == nil || !*opts.UseContainer || opts.Image != "ghcr.io/octopilot/op:v1" {
		t.Errorf("options not passed through: %+v", opts)
	}
	if opts.Platforms != oprunner.DefaultPlatforms {
		t.Errorf("platforms = %q, want default", opts.Platforms)
	}
	if strings.Join(opts.ExtraArgs, " ") != "--sbom-output dist/sbom" {
		t.Errorf("extra args = %v", opts.ExtraArgs)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("want 1 record, got %d", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.Status != history.StatusSucceeded || rec.Mode != "container" || rec.Workspace != ws {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Result == nil {
		t.Error("record should carry the build result")
	}

	text := getResultText(result)
	if !strings.Contains(text, `"build_id": "build-1"`) || !strings.Contains(text, "imageName") {
		t.Errorf("unexpected result: %s", text)
	}
}

func TestBuildTool_UseContainerOmittedLeavesConfigInCharge(t *testing.T) {
	builder := &fakeBuilder{mode: oprunner.ModeBinary}
	tool := NewBuildTool(builder, nil)

	_, _ = tool.Handle(context.Background(), newRequest(map[string]interface{}{
		"workspace": goWorkspace(t),
		"registry":  "ghcr.io/org",
	}))
	if builder.got[0].UseContainer != nil {
		t.Error("use_container should stay unset so OP_USE_CONTAINER decides")
	}
}

func TestBuildTool_FailureIsRecorded(t *testing.T) {
	builder := &fakeBuilder{mode: oprunner.ModeBinary, err: errors.New("op build failed: exit status 1")}
	recorder := &fakeRecorder{}

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tool := NewBuildTool(builder, recorder)
	calls := 0
	tool.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * time.Minute)
	}

	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{
		"workspace": goWorkspace(t),
		"registry":  "ghcr.io/org",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(getResultText(result), "exit status 1") {
		t.Errorf("error should carry the cause: %s", getResultText(result))
	}

	rec := recorder.records[0]
	if rec.Status != history.StatusFailed || rec.Error == "" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Duration() != time.Minute {
		t.Errorf("duration = %s, want 1m", rec.Duration())
	}
}

func TestBuildTool_RecorderFailureDoesNotFailBuild(t *testing.T) {
	tool := NewBuildTool(&fakeBuilder{mode: oprunner.ModeBinary}, &fakeRecorder{err: errors.New("disk full")})

	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{
		"workspace": goWorkspace(t),
		"registry":  "ghcr.io/org",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	if strings.Contains(getResultText(result), "build_id") {
		t.Error("no build_id expected when recording failed")
	}
}

func TestBuildTool_RequiredArguments(t *testing.T) {
	builder := &fakeBuilder{}
	tool := NewBuildTool(builder, nil)

	result, _ := tool.Handle(context.Background(), newRequest(map[string]interface{}{"registry": "r"}))
	if !isErrorResult(result) {
		t.Error("expected tool error without workspace")
	}
	result, _ = tool.Handle(context.Background(), newRequest(map[string]interface{}{"workspace": "/tmp"}))
	if !isErrorResult(result) {
		t.Error("expected tool error without registry")
	}
	if len(builder.got) != 0 {
		t.Error("no build should run on bad arguments")
	}
}

// --- ListBuildsTool ---

func TestListBuildsTool_Empty(t *testing.T) {
	result, err := NewListBuildsTool(&fakeLister{}).Handle(context.Background(), newRequest(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(getResultText(result), "No builds") {
		t.Errorf("unexpected result: %s", getResultText(result))
	}
}

func TestListBuildsTool_Lists(t *testing.T) {
	now := time.Now()
	lister := &fakeLister{records: []history.Record{
		{ID: "b2", Workspace: "/ws", Registry: "ghcr.io/org", Platforms: "linux/amd64", Mode: "binary",
			Status: history.StatusFailed, Error: "op build failed: exit status 2",
			StartedAt: now.Add(-time.Minute), FinishedAt: now},
		{ID: "b1", Workspace: "/ws", Registry: "ghcr.io/org", Platforms: "linux/amd64", Mode: "binary",
			Status: history.StatusSucceeded, StartedAt: now.Add(-2 * time.Hour), FinishedAt: now.Add(-time.Hour)},
	}}

	result, err := NewListBuildsTool(lister).Handle(context.Background(), newRequest(map[string]interface{}{
		"workspace": "/ws",
		"limit":     float64(5),
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if lister.gotWorkspace != "/ws" || lister.gotLimit != 5 {
		t.Errorf("lister called with (%q, %d)", lister.gotWorkspace, lister.gotLimit)
	}

	text := getResultText(result)
	for _, want := range []string{"Recent builds (2)", "2 hours ago", "1h0m0s", "### Failures", "exit status 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "| b2 |") > strings.Index(text, "| b1 |") {
		t.Error("builds should keep the lister's newest-first order")
	}
}

func TestListBuildsTool_StoreError(t *testing.T) {
	_, err := NewListBuildsTool(&fakeLister{err: errors.New("locked")}).Handle(context.Background(), newRequest(nil))
	if err == nil {
		t.Fatal("expected internal error")
	}
}
