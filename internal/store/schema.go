package store

import (
	"fmt"
	"strconv"
	"strings"
)

// schema is portable across sqlite and postgres: TEXT keys, TEXT UTC
// timestamps in a fixed-width layout, INTEGER booleans.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		language TEXT NOT NULL,
		level TEXT NOT NULL,
		topic TEXT NOT NULL,
		method TEXT NOT NULL,
		fallback INTEGER NOT NULL DEFAULT 0,
		story_text TEXT NOT NULL,
		translation TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stories_created ON stories(created_at)`,
	`CREATE TABLE IF NOT EXISTS vocabulary (
		story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		part_of_speech TEXT NOT NULL,
		example TEXT NOT NULL,
		PRIMARY KEY (story_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS exercises (
		story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (story_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL,
		exercise_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		given TEXT NOT NULL,
		verdict TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_exercise ON attempts(story_id, exercise_id)`,
}

// timeLayout sorts lexicographically in time order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// rebind rewrites ? placeholders to $1, $2, ... for postgres. Queries in
// this package never put ? inside string literals.
func rebind(driver, query string) string {
	if driver != DriverPgx {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return fmt.Sprintf("%s%%", r.Replace(s))
}
