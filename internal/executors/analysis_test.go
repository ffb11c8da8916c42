package executors

import (
	"context"
	"strings"
	"testing"

	"codestory/internal/logging"
	"codestory/internal/stage"
	"codestory/internal/story"
	"codestory/internal/testsupport"
)

const analysisPayload = `{
  "architecture_pattern": "layered service",
  "key_components": [
    {"name": "Server", "type": "class", "file_path": "internal/server/server.go", "purpose": "HTTP front door", "importance": "core"},
    {"name": "Store", "type": "module", "file_path": "internal/store/store.go", "purpose": "persistence", "importance": "supporting"}
  ],
  "story_components": {
    "protagonist": "the request",
    "conflict": "data that will not stay consistent",
    "resolution": "a transaction settles the argument",
    "chapters": [
      {"title": "Arrival", "focus": "the server accepts a request", "components": ["Server"]},
      {"title": "The Ledger", "focus": "the store records the outcome", "components": ["Store"]}
    ]
  }
}`

func repoFixture(t *testing.T) string {
	t.Helper()
	return testsupport.WriteRepoFixture(t, t.TempDir(), map[string]string{
		"main.go":                       "package main\n\nfunc main() {}\n",
		"internal/server/server.go":     "package server\n",
		"internal/server/handlers.go":   "package server\n",
		"internal/store/store.go":       "package store\n",
		"README.md":                     "# fixture\n",
		"vendor/dep/dep.go":             "package dep\n",
		"node_modules/left-pad/index.js": "module.exports = s => s\n",
	})
}

func TestAnalysisExecuteLocalPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: analysisPayload}
	executor := NewAnalysis(cfg, completer, logging.NewNop())

	result, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: repoFixture(t),
		IntentText:    "how does it work?",
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	artifact := result.Analysis
	if artifact == nil {
		t.Fatal("expected analysis artifact")
	}
	if artifact.PrimaryLanguage != "Go" {
		t.Fatalf("expected Go as primary language, got %q", artifact.PrimaryLanguage)
	}
	if artifact.ArchitecturePattern != "layered service" {
		t.Fatalf("unexpected architecture pattern %q", artifact.ArchitecturePattern)
	}
	if len(artifact.KeyComponents) != 2 {
		t.Fatalf("expected 2 key components, got %d", len(artifact.KeyComponents))
	}
	if err := story.ValidateAnalysis(artifact); err != nil {
		t.Fatalf("artifact should pass the analysis gate: %v", err)
	}
}

func TestAnalysisCountsComeFromSurveyNotModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: analysisPayload}
	executor := NewAnalysis(cfg, completer, logging.NewNop())

	result, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: repoFixture(t),
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	artifact := result.Analysis
	// vendor/ and node_modules/ are excluded by the default ignore patterns.
	if artifact.TotalFiles != 5 {
		t.Fatalf("expected 5 surveyed files, got %d", artifact.TotalFiles)
	}
	if got := artifact.DirectoryStructure["internal/server"]; got != 2 {
		t.Fatalf("expected 2 files under internal/server, got %d", got)
	}
	if len(artifact.EntryPoints) != 1 || artifact.EntryPoints[0] != "main.go" {
		t.Fatalf("unexpected entry points %v", artifact.EntryPoints)
	}
}

func TestAnalysisEmptyRepositorySkipsModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: analysisPayload}
	executor := NewAnalysis(cfg, completer, logging.NewNop())

	result, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if completer.jsonCalls != 0 {
		t.Fatalf("model should not be called for an empty repository, got %d calls", completer.jsonCalls)
	}
	if result.Analysis.TotalFiles != 0 {
		t.Fatalf("expected zero files, got %d", result.Analysis.TotalFiles)
	}
	if err := story.ValidateAnalysis(result.Analysis); !story.IsZeroFiles(err) {
		t.Fatalf("gate should reject the empty artifact as zero-files, got %v", err)
	}
}

func TestAnalysisPromptCarriesPackagedSources(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: analysisPayload}
	executor := NewAnalysis(cfg, completer, logging.NewNop())

	if _, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: repoFixture(t),
	}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(completer.lastUser, "===== main.go =====") {
		t.Fatal("prompt should include packaged main.go")
	}
	if !strings.Contains(completer.lastUser, "package main") {
		t.Fatal("prompt should include file bodies")
	}
	if strings.Contains(completer.lastUser, "left-pad") {
		t.Fatal("ignored directories must not be packaged")
	}
}

func TestPackagingLimitsFollowRetryHints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.MaxFiles = 40
	cfg.Analysis.MaxFilesPerDirectory = 10
	cfg.Analysis.PackagedByteCeiling = 100_000
	executor := NewAnalysis(cfg, &stubCompleter{}, logging.NewNop())

	base := executor.packagingLimits("")
	if base.maxFiles != 40 || base.maxPerDir != 10 || base.byteCeiling != 100_000 {
		t.Fatalf("unexpected base limits %+v", base)
	}

	aggressive := executor.packagingLimits(stage.HintAggressiveFilter)
	if aggressive.maxFiles != 20 || aggressive.maxPerDir != 5 || aggressive.byteCeiling != 50_000 {
		t.Fatalf("aggressive hint should halve budgets, got %+v", aggressive)
	}
	if aggressive.includeNonCode {
		t.Fatal("aggressive hint must not admit non-code files")
	}

	relaxed := executor.packagingLimits(stage.HintRelaxedFilter)
	if relaxed.maxFiles != 80 {
		t.Fatalf("relaxed hint should double max files, got %d", relaxed.maxFiles)
	}
	if !relaxed.includeNonCode {
		t.Fatal("relaxed hint should admit non-code files")
	}
}

func TestSurveyTreeHonorsPerDirectoryCap(t *testing.T) {
	root := testsupport.WriteRepoFixture(t, t.TempDir(), map[string]string{
		"pkg/a.go": "package pkg\n",
		"pkg/b.go": "package pkg\n",
		"pkg/c.go": "package pkg\n",
	})
	census, err := surveyTree(root, nil, packagingLimits{maxFiles: 10, maxPerDir: 2, byteCeiling: 1 << 20})
	if err != nil {
		t.Fatalf("surveyTree: %v", err)
	}
	if census.totalFiles != 3 {
		t.Fatalf("expected 3 surveyed files, got %d", census.totalFiles)
	}
	if len(census.packaged) != 2 {
		t.Fatalf("per-directory cap should limit packaging to 2 files, got %d", len(census.packaged))
	}
}

func TestIgnoredPatterns(t *testing.T) {
	patterns := []string{".git/", "node_modules/", "*.min.js", "*.lock"}
	cases := []struct {
		rel  string
		want bool
	}{
		{".git/", true},
		{"node_modules/left-pad/index.js", true},
		{"assets/app.min.js", true},
		{"Cargo.lock", true},
		{"internal/server/server.go", false},
		{"README.md", false},
	}
	for _, tc := range cases {
		if got := ignored(tc.rel, patterns); got != tc.want {
			t.Errorf("ignored(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}

func TestNormalizeCloneURL(t *testing.T) {
	cases := map[string]string{
		"github.com/example/widgets":         "https://github.com/example/widgets",
		"https://github.com/example/widgets": "https://github.com/example/widgets",
		"git@github.com:example/widgets.git": "git@github.com:example/widgets.git",
	}
	for in, want := range cases {
		if got := normalizeCloneURL(in); got != want {
			t.Errorf("normalizeCloneURL(%q) = %q, want %q", in, got, want)
		}
	}
}
