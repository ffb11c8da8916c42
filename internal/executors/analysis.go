package executors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"

	"codestory/internal/config"
	"codestory/internal/logging"
	"codestory/internal/runs"
	"codestory/internal/services"
	"codestory/internal/services/llm"
	"codestory/internal/stage"
	"codestory/internal/story"
)

// Analysis surveys a repository and extracts story components from it.
type Analysis struct {
	cfg    *config.Config
	llm    Completer
	logger *slog.Logger
}

// NewAnalysis constructs the analysis stage executor.
func NewAnalysis(cfg *config.Config, completer Completer, logger *slog.Logger) *Analysis {
	return &Analysis{
		cfg:    cfg,
		llm:    completer,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

func (e *Analysis) Stage() runs.Stage {
	return runs.StageAnalysis
}

func (e *Analysis) Execute(ctx context.Context, req *stage.Request) (*stage.Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("analyzing repository",
		logging.String("repo", req.RepoReference),
		logging.Int("attempt", req.Attempt),
		logging.String("retry_hint", req.RetryHint),
	)

	root, err := e.materialize(ctx, req)
	if err != nil {
		return nil, err
	}

	limits := e.packagingLimits(req.RetryHint)
	census, err := surveyTree(root, e.cfg.Analysis.IgnorePatterns, limits)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "analysis", "survey tree", "failed to walk repository", err)
	}
	logger.Info("repository surveyed",
		logging.Int("total_files", census.totalFiles),
		logging.String("primary_language", census.primaryLanguage),
		logging.Int("packaged_files", len(census.packaged)),
		logging.Int("packaged_bytes", census.packagedBytes),
	)

	artifact := &story.AnalysisArtifact{
		RepoReference:      req.RepoReference,
		PrimaryLanguage:    census.primaryLanguage,
		TotalFiles:         census.totalFiles,
		DirectoryStructure: census.directories,
		EntryPoints:        census.entryPoints,
	}
	if census.totalFiles == 0 {
		// Nothing to feed the model; let the gate reject the artifact.
		return &stage.Result{Analysis: artifact}, nil
	}

	userPrompt := buildAnalysisUserPrompt(req, census)
	content, err := e.llm.CompleteJSON(ctx, analysisSystemPrompt, userPrompt)
	if err != nil {
		return nil, wrapLLMError("analysis", "extract components", err)
	}

	var extracted struct {
		ArchitecturePattern string                `json:"architecture_pattern"`
		KeyComponents       []story.ComponentInfo `json:"key_components"`
		StoryComponents     story.StoryComponents `json:"story_components"`
	}
	if err := llm.DecodeLLMJSON(content, &extracted); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "analysis", "decode analysis", "model returned unparseable analysis payload", err)
	}
	artifact.ArchitecturePattern = extracted.ArchitecturePattern
	artifact.KeyComponents = extracted.KeyComponents
	artifact.StoryComponents = extracted.StoryComponents

	logger.Info("analysis extracted",
		logging.String("architecture", artifact.ArchitecturePattern),
		logging.Int("key_components", len(artifact.KeyComponents)),
		logging.Int("story_chapters", len(artifact.StoryComponents.Chapters)),
	)
	return &stage.Result{Analysis: artifact}, nil
}

// materialize makes the repository available on disk. Local paths are used in
// place; anything else is shallow-cloned into the run's workspace.
func (e *Analysis) materialize(ctx context.Context, req *stage.Request) (string, error) {
	ref := strings.TrimSpace(req.RepoReference)
	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		return ref, nil
	}

	cloneDir := filepath.Join(e.cfg.Paths.WorkspaceDir, "runs", req.RunID, "src")
	if info, err := os.Stat(filepath.Join(cloneDir, ".git")); err == nil && info.IsDir() {
		// Retry of this stage within the same run: reuse the prior clone.
		return cloneDir, nil
	}
	if err := os.MkdirAll(filepath.Dir(cloneDir), 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "analysis", "prepare workspace", "cannot create clone directory", err)
	}

	_, err := git.PlainCloneContext(ctx, cloneDir, false, &git.CloneOptions{
		URL:          normalizeCloneURL(ref),
		Depth:        e.cfg.Analysis.CloneDepth,
		SingleBranch: true,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", services.Wrap(services.ErrCancelled, "analysis", "clone", "clone cancelled", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "analysis", "clone", "clone timed out", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "analysis", "clone",
			fmt.Sprintf("cannot clone %s", ref), err)
	}
	return cloneDir, nil
}

// normalizeCloneURL turns shorthand references like github.com/owner/repo
// into a cloneable HTTPS URL.
func normalizeCloneURL(ref string) string {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "git@") {
		return ref
	}
	return "https://" + ref
}

type packagingLimits struct {
	maxFiles       int
	maxPerDir      int
	byteCeiling    int
	includeNonCode bool
}

// packagingLimits derives file-selection limits from config and the retry
// hint. An aggressive retry halves the budget; a relaxed retry doubles it and
// admits docs and config files.
func (e *Analysis) packagingLimits(hint string) packagingLimits {
	limits := packagingLimits{
		maxFiles:    e.cfg.Analysis.MaxFiles,
		maxPerDir:   e.cfg.Analysis.MaxFilesPerDirectory,
		byteCeiling: e.cfg.Analysis.PackagedByteCeiling,
	}
	switch hint {
	case stage.HintAggressiveFilter:
		limits.maxFiles /= 2
		limits.maxPerDir /= 2
		limits.byteCeiling /= 2
	case stage.HintRelaxedFilter:
		limits.maxFiles *= 2
		limits.includeNonCode = true
	}
	if limits.maxFiles < 1 {
		limits.maxFiles = 1
	}
	if limits.maxPerDir < 1 {
		limits.maxPerDir = 1
	}
	return limits
}

type packagedFile struct {
	path string
	body string
}

type treeCensus struct {
	totalFiles      int
	directories     map[string]int
	primaryLanguage string
	entryPoints     []string
	packaged        []packagedFile
	packagedBytes   int
}

var languageByExtension = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".rb":    "Ruby",
	".rs":    "Rust",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".kt":    "Kotlin",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".ex":    "Elixir",
	".exs":   "Elixir",
	".sh":    "Shell",
}

var entryPointNames = map[string]bool{
	"main.go":     true,
	"main.py":     true,
	"__main__.py": true,
	"index.js":    true,
	"index.ts":    true,
	"app.py":      true,
	"server.js":   true,
	"main.rs":     true,
	"Main.java":   true,
}

func surveyTree(root string, ignorePatterns []string, limits packagingLimits) (*treeCensus, error) {
	census := &treeCensus{directories: make(map[string]int)}
	languageCounts := make(map[string]int)
	perDirPackaged := make(map[string]int)

	var candidates []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if ignored(rel+"/", ignorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored(rel, ignorePatterns) {
			return nil
		}

		census.totalFiles++
		dir := filepath.ToSlash(filepath.Dir(rel))
		if dir == "." {
			dir = "/"
		}
		census.directories[dir]++

		ext := strings.ToLower(filepath.Ext(rel))
		if lang, ok := languageByExtension[ext]; ok {
			languageCounts[lang]++
		}
		if entryPointNames[filepath.Base(rel)] {
			census.entryPoints = append(census.entryPoints, rel)
		}
		if _, isCode := languageByExtension[ext]; isCode || limits.includeNonCode {
			candidates = append(candidates, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	top, topCount := "", 0
	for lang, count := range languageCounts {
		if count > topCount || (count == topCount && lang < top) {
			top, topCount = lang, count
		}
	}
	census.primaryLanguage = top
	sort.Strings(census.entryPoints)
	sort.Strings(candidates)

	for _, rel := range candidates {
		if len(census.packaged) >= limits.maxFiles {
			break
		}
		dir := filepath.ToSlash(filepath.Dir(rel))
		if perDirPackaged[dir] >= limits.maxPerDir {
			continue
		}
		body, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if readErr != nil {
			continue
		}
		if census.packagedBytes+len(body) > limits.byteCeiling {
			continue
		}
		perDirPackaged[dir]++
		census.packaged = append(census.packaged, packagedFile{path: rel, body: string(body)})
		census.packagedBytes += len(body)
	}
	return census, nil
}

func ignored(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.HasSuffix(pattern, "/") {
			prefix := strings.TrimSuffix(pattern, "/")
			if rel == prefix+"/" || strings.HasPrefix(rel, prefix+"/") || strings.Contains(rel, "/"+prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(strings.TrimSuffix(rel, "/"))); ok {
			return true
		}
	}
	return false
}

func buildAnalysisUserPrompt(req *stage.Request, census *treeCensus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", req.RepoReference)
	if req.Intent != nil {
		fmt.Fprintf(&b, "Listener intent: %s (%s, %s)\n",
			req.Intent.IntentCategory, req.Intent.ExpertiseLevel, req.Intent.RecommendedStyle)
		if len(req.Intent.FocusAreas) > 0 {
			fmt.Fprintf(&b, "Focus areas: %s\n", strings.Join(req.Intent.FocusAreas, ", "))
		}
	}
	fmt.Fprintf(&b, "Total files: %d\n", census.totalFiles)
	if census.primaryLanguage != "" {
		fmt.Fprintf(&b, "Primary language: %s\n", census.primaryLanguage)
	}
	if len(census.entryPoints) > 0 {
		fmt.Fprintf(&b, "Entry points: %s\n", strings.Join(census.entryPoints, ", "))
	}

	b.WriteString("\nDirectory structure (files per directory):\n")
	dirs := make([]string, 0, len(census.directories))
	for dir := range census.directories {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		fmt.Fprintf(&b, "  %s: %d\n", dir, census.directories[dir])
	}

	b.WriteString("\nPackaged source files:\n")
	for _, file := range census.packaged {
		fmt.Fprintf(&b, "\n===== %s =====\n%s\n", file.path, file.body)
	}
	return b.String()
}
