package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/store"
	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TIMELINE_CONFIG", "TIMELINE_ALLOWED_EXTENSIONS", "TIMELINE_TRUSTED_DOMAINS",
		"STORE_DRIVER", "SQLITE_PATH", "LOG_LEVEL", "AUDIT_WORKERS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func sqliteConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeTestFile(t, dir, "timeline.yaml", "store:\n  driver: sqlite\n  sqlite_path: "+
		filepath.Join(dir, "timelines.db")+"\nlogging:\n  level: error\naudit:\n  workers: 2\n")
}

func TestValidateCommandAcceptsValidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeTestFile(t, dir, "timeline.json", `{
  "episode_duration": 30,
  "image_timeline": [
    {"start_time": 0, "end_time": 15, "image_url": "https://cdn.sarvcast.com/a.jpg"},
    {"start_time": 15, "end_time": 30, "image_url": "https://cdn.sarvcast.com/b.jpg"}
  ]
}`)

	out, _, err := runCLI(t, []string{"validate", path}, "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "Timeline valid")
	requireContains(t, out, "2 entries")
}

func TestValidateCommandReportsViolations(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeTestFile(t, dir, "timeline.json", `[
  {"start_time": 0, "end_time": 30, "image_url": "https://evil.example.com/a.jpg"}
]`)

	out, _, err := runCLI(t, []string{"validate", "--duration", "30", path}, "")
	if err != errTimelineInvalid {
		t.Fatalf("expected errTimelineInvalid, got %v", err)
	}
	requireContains(t, out, "Timeline invalid")
	requireContains(t, out, "untrusted_domain")
	requireContains(t, out, "image_timeline.0.image_url")
}

func TestValidateCommandNeedsDuration(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeTestFile(t, dir, "timeline.json", `[]`)

	_, _, err := runCLI(t, []string{"validate", path}, "")
	if err == nil || !strings.Contains(err.Error(), "episode duration missing") {
		t.Fatalf("expected missing duration error, got %v", err)
	}
}

func TestOptimizeCommandWritesOutput(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeTestFile(t, dir, "timeline.json", `{
  "episode_duration": 30,
  "image_timeline": [
    {"start_time": 0, "end_time": 10, "image_url": "https://cdn.sarvcast.com/a.jpg"},
    {"start_time": 10, "end_time": 20, "image_url": "https://cdn.sarvcast.com/a.jpg"},
    {"start_time": 20, "end_time": 30, "image_url": "https://cdn.sarvcast.com/b.jpg"}
  ]
}`)
	target := filepath.Join(dir, "optimized.json")

	out, _, err := runCLI(t, []string{"optimize", path, "--output", target}, "")
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	requireContains(t, out, "3 -> 2")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	written := string(data)
	requireContains(t, written, `"episode_duration": 30`)
	requireContains(t, written, `"end_time": 20`)
	if strings.Count(written, `"image_url"`) != 2 {
		t.Fatalf("expected two entries, got %s", written)
	}
}

func TestEpisodePutAndAudit(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configPath := sqliteConfig(t, dir)

	for _, args := range [][]string{
		{"episode", "put", "--id", "1", "--duration", "30", "--title", "Clean"},
		{"episode", "put", "--id", "2", "--duration", "30", "--title", "Broken"},
		{"episode", "put", "--id", "3", "--duration", "30", "--title", "Empty"},
	} {
		out, _, err := runCLI(t, args, configPath)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		requireContains(t, out, "saved")
	}

	st, err := store.OpenSQLite(filepath.Join(dir, "timelines.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	ctx := context.Background()
	if err := st.ReplaceTimeline(ctx, 1, []models.TimelineImage{
		testRow(1, 0, 0, 15, "https://cdn.sarvcast.com/a.jpg"),
		testRow(1, 1, 15, 30, "https://cdn.sarvcast.com/b.jpg"),
	}); err != nil {
		t.Fatalf("replace 1: %v", err)
	}
	if err := st.ReplaceTimeline(ctx, 2, []models.TimelineImage{
		testRow(2, 0, 0, 30, "https://evil.example.com/a.jpg"),
	}); err != nil {
		t.Fatalf("replace 2: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, _, err := runCLI(t, []string{"episode", "show", "1"}, configPath)
	if err != nil {
		t.Fatalf("episode show: %v", err)
	}
	requireContains(t, out, `"Clean"`)
	requireContains(t, out, "2 image(s)")

	out, _, err = runCLI(t, []string{"audit"}, configPath)
	if err == nil {
		t.Fatal("expected audit to fail")
	}
	requireContains(t, out, "checked 2, skipped 1, invalid 1, failed 0")
	requireContains(t, out, "Broken")
	requireContains(t, out, "untrusted_domain")
}

func TestEpisodePutRejectsMemoryStore(t *testing.T) {
	clearEnv(t)

	_, _, err := runCLI(t, []string{"episode", "put", "--id", "1", "--duration", "30"}, "")
	if err == nil || !strings.Contains(err.Error(), "does not accept episodes") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestAuditEmptyStorePasses(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	out, _, err := runCLI(t, []string{"audit"}, sqliteConfig(t, dir))
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	requireContains(t, out, "All timelines valid")
}

func testRow(episodeID int64, order, start, end int, url string) models.TimelineImage {
	now := time.Now().UTC()
	return models.TimelineImage{
		ID:         uuid.New(),
		EpisodeID:  episodeID,
		StartTime:  start,
		EndTime:    end,
		ImageURL:   url,
		ImageOrder: order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
