package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"polyglot/internal/config"
)

func todayFile(dir, name string) string {
	return filepath.Join(dir, time.Now().Format("2006-01-02")+"_"+name)
}

func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	if !IsDebugMode() {
		t.Fatal("expected debug mode to be enabled")
	}

	Boot("boot %d", 1)
	Session("session %d", 1)
	API("api %d", 1)
	Articulation("articulation %d", 1)
	Store("store %d", 1)
	Narration("narration %d", 1)
	Config("config %d", 1)
	UI("ui %d", 1)
	CloseAll()

	for _, cat := range []Category{
		CategoryBoot, CategorySession, CategoryAPI, CategoryArticulation,
		CategoryStore, CategoryNarration, CategoryConfig, CategoryUI,
	} {
		data, err := os.ReadFile(todayFile(dir, string(cat)+".log"))
		if err != nil {
			t.Errorf("category %s: %v", cat, err)
			continue
		}
		if !strings.Contains(string(data), string(cat)+" 1") {
			t.Errorf("category %s log missing message: %q", cat, data)
		}
	}
}

func TestDisabledIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, config.LoggingConfig{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	API("should not be written")
	Audit().LessonRequest("russian", "beginner", "travel")

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist outside debug mode, stat err = %v", err)
	}
}

func TestCategoryFilterAndLevel(t *testing.T) {
	dir := t.TempDir()
	c := config.LoggingConfig{
		DebugMode:  true,
		Level:      "warn",
		Categories: map[string]bool{"api": false},
	}
	if err := Initialize(dir, c); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	API("filtered out")
	StoreDebug("below level")
	StoreError("kept")
	CloseAll()

	if _, err := os.Stat(todayFile(dir, "api.log")); !os.IsNotExist(err) {
		t.Error("disabled category should not create a file")
	}
	data, err := os.ReadFile(todayFile(dir, "store.log"))
	if err != nil {
		t.Fatalf("read store log: %v", err)
	}
	if strings.Contains(string(data), "below level") || !strings.Contains(string(data), "kept") {
		t.Errorf("unexpected store log contents: %q", data)
	}
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true, Format: "json"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	Get(CategorySession).With("lesson", "abc").Info("saved %s", "lesson")
	CloseAll()

	data, err := os.ReadFile(todayFile(dir, "session.log"))
	if err != nil {
		t.Fatalf("read session log: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry["msg"] != "saved lesson" || entry["lesson"] != "abc" || entry["cat"] != "session" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestAuditLog(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit failed: %v", err)
	}

	a := AuditWithSession("s-1")
	a.LessonRequest("russian", "beginner", "friendship")
	a.ExerciseAnswer("ex-1", "correct")
	CloseAll()

	data, err := os.ReadFile(todayFile(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d: %q", len(lines), data)
	}
	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("audit line is not JSON: %v", err)
	}
	if first["event"] != string(AuditLessonRequest) || first["session"] != "s-1" {
		t.Errorf("unexpected audit entry: %v", first)
	}
}

func TestConcurrentGet(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	var wg sync.WaitGroup
	got := make([]*Logger, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Get(CategoryAPI)
		}(i)
	}
	wg.Wait()
	for _, l := range got[1:] {
		if l != got[0] {
			t.Fatal("Get returned different loggers for one category")
		}
	}
}

func TestInitializeRequiresDir(t *testing.T) {
	if err := Initialize("", config.LoggingConfig{}); err == nil {
		t.Error("expected error for empty directory")
	}
}
