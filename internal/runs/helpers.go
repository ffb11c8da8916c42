package runs

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = "id, repo_reference, intent_text, preferred_style, current_stage, progress_percent, progress_message, error_message, error_kind, partial, created_at, updated_at, completed_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id              string
		repoReference   string
		intentText      string
		preferredStyle  sql.NullString
		stageStr        string
		progressPercent int
		progressMessage sql.NullString
		errorMessage    sql.NullString
		errorKind       sql.NullString
		partial         sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&repoReference,
		&intentText,
		&preferredStyle,
		&stageStr,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&errorKind,
		&partial,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:              id,
		RepoReference:   repoReference,
		IntentText:      intentText,
		PreferredStyle:  preferredStyle.String,
		CurrentStage:    Stage(stageStr),
		ProgressPercent: progressPercent,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
		ErrorKind:       errorKind.String,
	}
	if partial.Valid {
		run.Partial = partial.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			run.CompletedAt = &completed
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
