package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names a learning-activity event.
type AuditEventType string

const (
	AuditLessonRequest  AuditEventType = "lesson_request"
	AuditLessonFetched  AuditEventType = "lesson_fetched"
	AuditLessonFallback AuditEventType = "lesson_fallback"
	AuditLessonSaved    AuditEventType = "lesson_saved"
	AuditExerciseAnswer AuditEventType = "exercise_answer"
	AuditNarration      AuditEventType = "narration"
	AuditSettingsChange AuditEventType = "settings_change"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	EventType  AuditEventType
	SessionID  string
	Target     string // lesson ID, exercise ID or setting key
	Success    bool
	DurationMs int64
	Error      string
	Message    string
	Fields     map[string]interface{}
}

var (
	auditMu   sync.Mutex
	auditFile *os.File
	auditZap  *zap.Logger
)

// AuditLogger writes audit events, optionally scoped to a session.
type AuditLogger struct {
	sessionID string
}

// InitAudit opens <logs>/<date>_audit.jsonl. It is a no-op outside debug
// mode.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()

	path := filepath.Join(dir, fmt.Sprintf("%s_audit.jsonl", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.EpochMillisTimeEncoder
	ec.MessageKey = "msg"
	ec.LevelKey = ""
	auditFile = file
	auditZap = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.AddSync(file), zapcore.DebugLevel))
	return nil
}

func closeAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditZap != nil {
		_ = auditZap.Sync()
		auditZap = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger { return &AuditLogger{} }

// AuditWithSession returns an audit logger scoped to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes an audit event.
func (a *AuditLogger) Log(e AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditZap == nil {
		return
	}
	if e.SessionID == "" {
		e.SessionID = a.sessionID
	}

	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.Bool("success", e.Success),
	}
	if e.SessionID != "" {
		fields = append(fields, zap.String("session", e.SessionID))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", e.DurationMs))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if len(e.Fields) > 0 {
		fields = append(fields, zap.Any("fields", e.Fields))
	}
	auditZap.Info(e.Message, fields...)
}

// LessonRequest records the start of a lesson request.
func (a *AuditLogger) LessonRequest(language, level, topic string) {
	a.Log(AuditEvent{
		EventType: AuditLessonRequest,
		Success:   true,
		Message:   fmt.Sprintf("lesson requested: %s/%s about %q", language, level, topic),
		Fields:    map[string]interface{}{"language": language, "level": level, "topic": topic},
	})
}

// LessonResolved records how the lesson content was obtained.
func (a *AuditLogger) LessonResolved(method string, fellBack bool, d time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditLessonFetched,
		Success:    !fellBack,
		DurationMs: d.Milliseconds(),
		Message:    "lesson content resolved via " + method,
		Fields:     map[string]interface{}{"method": method},
	}
	if fellBack {
		e.EventType = AuditLessonFallback
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// LessonSaved records a persisted lesson.
func (a *AuditLogger) LessonSaved(id string, err error) {
	e := AuditEvent{EventType: AuditLessonSaved, Target: id, Success: err == nil, Message: "lesson saved"}
	if err != nil {
		e.Error = err.Error()
		e.Message = "lesson save failed"
	}
	a.Log(e)
}

// ExerciseAnswer records a graded answer.
func (a *AuditLogger) ExerciseAnswer(exerciseID, verdict string) {
	a.Log(AuditEvent{
		EventType: AuditExerciseAnswer,
		Target:    exerciseID,
		Success:   verdict == "correct",
		Message:   "exercise answered: " + verdict,
	})
}

// Narrated records a synthesis attempt.
func (a *AuditLogger) Narrated(engine string, items int, d time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditNarration,
		Success:    err == nil,
		DurationMs: d.Milliseconds(),
		Message:    fmt.Sprintf("%s narrated %d items", engine, items),
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// SettingsChanged records a settings update.
func (a *AuditLogger) SettingsChanged(key, value string) {
	a.Log(AuditEvent{
		EventType: AuditSettingsChange,
		Target:    key,
		Success:   true,
		Message:   fmt.Sprintf("%s set to %s", key, value),
	})
}
