package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		id           int64
		runID        string
		status       string
		inputsRaw    string
		opsRaw       string
		outputPath   sql.NullString
		outputFormat sql.NullString
		steps        int
		dispatches   int
		workDir      sql.NullString
		retained     int
		errorKind    sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  string
	)
	if err := scanner.Scan(
		&id,
		&runID,
		&status,
		&inputsRaw,
		&opsRaw,
		&outputPath,
		&outputFormat,
		&steps,
		&dispatches,
		&workDir,
		&retained,
		&errorKind,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}

	run := Run{
		ID:           id,
		RunID:        runID,
		Status:       Status(status),
		OutputPath:   outputPath.String,
		OutputFormat: outputFormat.String,
		Steps:        steps,
		Dispatches:   dispatches,
		WorkDir:      workDir.String,
		Retained:     retained,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
	}
	if err := json.Unmarshal([]byte(inputsRaw), &run.Inputs); err != nil {
		return Run{}, fmt.Errorf("decode inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(opsRaw), &run.Operations); err != nil {
		return Run{}, fmt.Errorf("decode operations: %w", err)
	}
	var err error
	if run.StartedAt, err = parseTime(startedRaw); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finishedRaw); err != nil {
		return Run{}, err
	}
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
