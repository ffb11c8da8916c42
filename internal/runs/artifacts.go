package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"codestory/internal/services"
	"codestory/internal/story"
)

// Byte ceilings used when the configured value is zero.
const (
	defaultAnalysisCeiling = 50 * 1024
	defaultSummaryCeiling  = 10 * 1024
	defaultStoryCeiling    = 20 * 1024
)

// PutArtifact stores a stage artifact under (run_id, stage), replacing any
// prior artifact for the same key. Analysis artifacts over the ceiling are
// shrunk least-important-first before the write is abandoned, and their
// story components are capped at the story ceiling separately.
func (s *Store) PutArtifact(ctx context.Context, runID string, stage Stage, artifact any) error {
	truncated := false
	if stage == StageAnalysis {
		capped, didTrim, ok := s.capStoryComponents(artifact)
		if !ok {
			return services.Wrap(services.ErrStorage, string(stage), "put artifact",
				"story components exceed the configured ceiling", nil)
		}
		if didTrim {
			artifact = capped
			truncated = true
		}
	}

	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal %s artifact: %w", stage, err)
	}

	ceiling := s.ceilingFor(stage)
	if ceiling > 0 && len(body) > ceiling {
		shrunk, ok := s.shrinkArtifact(stage, artifact, ceiling)
		if !ok {
			return services.Wrap(services.ErrStorage, string(stage), "put artifact",
				fmt.Sprintf("artifact is %d bytes, ceiling is %d", len(body), ceiling), nil)
		}
		body = shrunk
		truncated = true
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (run_id, stage, body_json, truncated, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (run_id, stage) DO UPDATE SET
             body_json = excluded.body_json,
             truncated = excluded.truncated,
             updated_at = excluded.updated_at`,
		runID,
		stage,
		string(body),
		boolToInt(truncated),
		timestamp,
	); err != nil {
		return fmt.Errorf("put %s artifact: %w", stage, err)
	}
	return nil
}

// GetArtifact loads a stage artifact into dest. A missing artifact returns
// services.ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, runID string, stage Stage, dest any) error {
	var body string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT body_json FROM artifacts WHERE run_id = ? AND stage = ?`,
		runID, stage,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return services.Wrap(services.ErrNotFound, string(stage), "get artifact",
			fmt.Sprintf("no %s artifact for run %s", stage, runID), nil)
	}
	if err != nil {
		return fmt.Errorf("get %s artifact: %w", stage, err)
	}
	if err := json.Unmarshal([]byte(body), dest); err != nil {
		return fmt.Errorf("decode %s artifact: %w", stage, err)
	}
	return nil
}

// ArtifactStages lists which stages have stored artifacts for a run.
func (s *Store) ArtifactStages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage FROM artifacts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var stage string
		if err := rows.Scan(&stage); err != nil {
			return nil, err
		}
		stages = append(stages, Stage(stage))
	}
	sort.Slice(stages, func(i, j int) bool {
		pi, _ := Checkpoint(stages[i])
		pj, _ := Checkpoint(stages[j])
		return pi < pj
	})
	return stages, rows.Err()
}

func (s *Store) ceilingFor(stage Stage) int {
	switch stage {
	case StageIntent:
		if s.summaryCeiling > 0 {
			return s.summaryCeiling
		}
		return defaultSummaryCeiling
	case StageAnalysis:
		if s.analysisCeiling > 0 {
			return s.analysisCeiling
		}
		return defaultAnalysisCeiling
	default:
		// Narrative scripts and audio manifests are never truncated; cutting
		// script text would corrupt the story.
		return 0
	}
}

// capStoryComponents returns a copy of the analysis artifact whose story
// components fit the story ceiling. Characters, themes, and the narrative
// arc are dropped in that order; chapters are never touched because the
// narrative gate requires them.
func (s *Store) capStoryComponents(artifact any) (any, bool, bool) {
	analysis := asAnalysis(artifact)
	if analysis == nil {
		return artifact, false, true
	}
	ceiling := s.storyCeiling
	if ceiling <= 0 {
		ceiling = defaultStoryCeiling
	}
	encoded, err := json.Marshal(analysis.StoryComponents)
	if err != nil {
		return artifact, false, false
	}
	if len(encoded) <= ceiling {
		return artifact, false, true
	}

	trimmed := *analysis
	for _, step := range []func(*story.StoryComponents){
		dropCharacters,
		dropThemes,
		clearNarrativeArc,
	} {
		step(&trimmed.StoryComponents)
		encoded, err = json.Marshal(trimmed.StoryComponents)
		if err != nil {
			return artifact, false, false
		}
		if len(encoded) <= ceiling {
			return &trimmed, true, true
		}
	}
	return artifact, false, false
}

func dropCharacters(c *story.StoryComponents) {
	c.Characters = nil
}

func dropThemes(c *story.StoryComponents) {
	c.Themes = nil
}

func clearNarrativeArc(c *story.StoryComponents) {
	c.NarrativeArc = ""
}

func asAnalysis(artifact any) *story.AnalysisArtifact {
	switch v := artifact.(type) {
	case *story.AnalysisArtifact:
		return v
	case story.AnalysisArtifact:
		return &v
	default:
		return nil
	}
}

// shrinkArtifact drops the least important content until the encoded form
// fits. Only analysis artifacts have droppable content.
func (s *Store) shrinkArtifact(stage Stage, artifact any, ceiling int) ([]byte, bool) {
	if stage != StageAnalysis {
		return nil, false
	}
	analysis := asAnalysis(artifact)
	if analysis == nil {
		return nil, false
	}

	trimmed := *analysis
	for _, step := range []func(*story.AnalysisArtifact){
		trimDirectoryStructure,
		dropUtilityComponents,
		dropSupportingComponents,
		clearEntryPoints,
	} {
		step(&trimmed)
		body, err := json.Marshal(&trimmed)
		if err != nil {
			return nil, false
		}
		if len(body) <= ceiling {
			return body, true
		}
	}
	return nil, false
}

// trimDirectoryStructure keeps only the largest directories by file count.
func trimDirectoryStructure(a *story.AnalysisArtifact) {
	const keep = 25
	if len(a.DirectoryStructure) <= keep {
		return
	}
	type entry struct {
		dir   string
		count int
	}
	entries := make([]entry, 0, len(a.DirectoryStructure))
	for dir, count := range a.DirectoryStructure {
		entries = append(entries, entry{dir, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].dir < entries[j].dir
	})
	kept := make(map[string]int, keep)
	for _, e := range entries[:keep] {
		kept[e.dir] = e.count
	}
	a.DirectoryStructure = kept
}

func dropUtilityComponents(a *story.AnalysisArtifact) {
	a.KeyComponents = filterComponents(a.KeyComponents, story.ImportanceUtility)
}

func dropSupportingComponents(a *story.AnalysisArtifact) {
	a.KeyComponents = filterComponents(a.KeyComponents, story.ImportanceSupporting)
}

func clearEntryPoints(a *story.AnalysisArtifact) {
	a.EntryPoints = nil
}

func filterComponents(components []story.ComponentInfo, drop story.Importance) []story.ComponentInfo {
	kept := make([]story.ComponentInfo, 0, len(components))
	for _, component := range components {
		if component.Importance == drop {
			continue
		}
		kept = append(kept, component)
	}
	return kept
}
