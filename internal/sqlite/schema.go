package sqlite

// Connection settings applied on Attach.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
}

// Slot table DDL and statements.
const (
	createSlots = `CREATE TABLE IF NOT EXISTS slots (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TEXT NOT NULL
);`

	selectSlot = `SELECT value FROM slots WHERE key = ?`

	upsertSlot = `INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	deleteSlot = `DELETE FROM slots WHERE key = ?`

	selectDataVersion = `PRAGMA data_version`

	selectStamps = `SELECT key, updated_at FROM slots`
)
