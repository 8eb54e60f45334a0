package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"habit-tracker/logger"
	"habit-tracker/model"
)

// ErrNoRecord 数据库从未保存过 Record
var ErrNoRecord = errors.New("no record saved yet")

// DB SQLite 存储后端，整体读写一份 Record
type DB struct {
	conn   *sql.DB
	path   string
	logger *zap.Logger
}

func New(dbPath string, l *zap.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: dbPath, logger: logger.OrNop(l)}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	db.logger.Info("Database initialized", zap.String("path", dbPath))
	return db, nil
}

// initSchema 初始化数据库表
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS habits (
		position INTEGER PRIMARY KEY,
		id TEXT,
		name TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		color TEXT
	);

	CREATE TABLE IF NOT EXISTS history_dates (
		date TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS completions (
		date TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (date, position)
	);

	CREATE INDEX IF NOT EXISTS idx_completions_name ON completions(name);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	// 旧版本的 habits 表没有颜色和ID列
	if err := db.ensureColumn("habits", "color", "TEXT"); err != nil {
		return err
	}
	return db.ensureColumn("habits", "id", "TEXT")
}

func (db *DB) ensureColumn(table, column, columnType string) error {
	rows, err := db.conn.Query(fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return fmt.Errorf("failed to inspect %s table: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			dataType   string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("failed to scan %s schema: %w", table, err)
		}
		if name == column {
			return nil
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate %s schema: %w", table, err)
	}
	rows.Close()

	alterStmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, columnType)
	if _, err := db.conn.Exec(alterStmt); err != nil {
		return fmt.Errorf("failed to add %s column: %w", column, err)
	}

	db.logger.Info("Column added", zap.String("table", table), zap.String("column", column))
	return nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) String() string { return "sqlite:" + db.path }

// Load 读取完整的 Record，未保存过时返回 ErrNoRecord
func (db *DB) Load(ctx context.Context) (*model.Record, error) {
	var savedAt string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'saved_at'`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}

	r := &model.Record{Habits: []model.Habit{}, History: model.History{}}

	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, target, color FROM habits ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h model.Habit
		var id, color sql.NullString
		if err := rows.Scan(&id, &h.Name, &h.Target, &color); err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		h.ID = id.String
		h.Color = color.String
		r.Habits = append(r.Habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate habits: %w", err)
	}

	dateRows, err := db.conn.QueryContext(ctx, `SELECT date FROM history_dates`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history dates: %w", err)
	}
	defer dateRows.Close()

	for dateRows.Next() {
		var date string
		if err := dateRows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan history date: %w", err)
		}
		r.History[date] = []string{}
	}
	if err := dateRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history dates: %w", err)
	}

	doneRows, err := db.conn.QueryContext(ctx, `SELECT date, name FROM completions ORDER BY date, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer doneRows.Close()

	for doneRows.Next() {
		var date, name string
		if err := doneRows.Scan(&date, &name); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		r.History[date] = append(r.History[date], name)
	}
	if err := doneRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completions: %w", err)
	}

	db.logger.Debug("Record loaded from database",
		zap.String("saved_at", savedAt),
		zap.Int("habits", len(r.Habits)),
		zap.Int("dates", len(r.History)),
	)
	return r, nil
}

// Save 在一个事务中整体替换所有数据
// 注意：使用命名返回值 (err error)，让 defer 能访问到错误
func (db *DB) Save(ctx context.Context, r *model.Record) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err),
				)
			}
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM habits`,
		`DELETE FROM completions`,
		`DELETE FROM history_dates`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	for i, h := range r.Habits {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO habits (position, id, name, target, color) VALUES (?, ?, ?, ?, ?)`,
			i, h.ID, h.Name, h.Target, h.Color,
		)
		if err != nil {
			return fmt.Errorf("failed to insert habit %q: %w", h.Name, err)
		}
	}

	for date, names := range r.History {
		if _, err = tx.ExecContext(ctx, `INSERT INTO history_dates (date) VALUES (?)`, date); err != nil {
			return fmt.Errorf("failed to insert history date %s: %w", date, err)
		}
		for i, name := range names {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO completions (date, position, name) VALUES (?, ?, ?)`,
				date, i, name,
			)
			if err != nil {
				return fmt.Errorf("failed to insert completion %s/%q: %w", date, name, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('saved_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to update meta: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
