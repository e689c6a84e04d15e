package ctags

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"symfind/internal/logging"
	"symfind/internal/walk"
)

// CacheKey identifies the cache of a command run in dir.
func CacheKey(dir, command string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(dir+"\x00"+command))
}

type fileStat struct {
	mtime int64
	size  int64
}

// Cache writes the display lines of a ctags run to a plain text file, one
// per line, and keeps them in SQLite together with a snapshot of the project
// files, so a later run can tell whether the lines are still current.
type Cache struct {
	cmd    *Command
	walker *walk.Walker
	path   string
	dbPath string
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewCache creates a cache for cmd under cacheDir. excludes are the glob
// patterns of files that do not affect freshness.
func NewCache(cmd *Command, cacheDir string, excludes []string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop()
	}
	dir := cmd.Dir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	base := filepath.Join(cacheDir, "tags-"+CacheKey(dir, cmd.String()))
	return &Cache{
		cmd:    cmd,
		walker: walk.New(dir, excludes),
		path:   base,
		dbPath: base + ".db",
		logger: logger,
	}
}

// Path returns the text file holding the display lines.
func (c *Cache) Path() string {
	return c.path
}

// Close releases the database handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Cache) open() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	db, err := openDB(c.dbPath)
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *Cache) exists() bool {
	_, err := os.Stat(c.dbPath)
	return err == nil
}

// Cached returns the number of cached lines and the cache path when a cache
// exists and no project file changed since it was created.
func (c *Cache) Cached(ctx context.Context) (total int, path string, ok bool) {
	if !c.exists() {
		return 0, "", false
	}
	if _, err := os.Stat(c.path); err != nil {
		return 0, "", false
	}
	db, err := c.open()
	if err != nil {
		c.logger.Debug("tag cache unreadable", "path", c.dbPath, "error", err)
		return 0, "", false
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		c.logger.Debug("tag cache unreadable", "path", c.dbPath, "error", err)
		return 0, "", false
	}
	if meta["stale"] != "0" || meta["command"] != c.cmd.String() {
		return 0, "", false
	}
	total, err = strconv.Atoi(meta["total"])
	if err != nil {
		return 0, "", false
	}

	fresh, err := c.fresh(ctx, db)
	if err != nil {
		c.logger.Debug("tag cache freshness check failed", "path", c.path, "error", err)
		return 0, "", false
	}
	if !fresh {
		return 0, "", false
	}
	return total, c.path, true
}

// Create runs the command and replaces the cache contents with its output.
func (c *Cache) Create(ctx context.Context) (total int, path string, err error) {
	// Snapshot before running ctags so that edits made meanwhile make the
	// cache stale rather than being silently absorbed.
	snapshot, err := c.snapshot()
	if err != nil {
		return 0, "", fmt.Errorf("scanning files: %w", err)
	}

	var lines []string
	total, err = c.cmd.FormattedTagsStream(ctx, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	db, err := c.open()
	if err != nil {
		return 0, "", err
	}
	if err := c.writeLines(lines); err != nil {
		return 0, "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"tags", "files", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, "", fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	tagStmt, err := tx.PrepareContext(ctx, "INSERT INTO tags (seq, line) VALUES (?, ?)")
	if err != nil {
		return 0, "", fmt.Errorf("preparing tag insert: %w", err)
	}
	defer tagStmt.Close()
	for i, line := range lines {
		if _, err := tagStmt.ExecContext(ctx, i, line); err != nil {
			return 0, "", fmt.Errorf("inserting tag: %w", err)
		}
	}

	fileStmt, err := tx.PrepareContext(ctx, "INSERT INTO files (path, mtime, size) VALUES (?, ?, ?)")
	if err != nil {
		return 0, "", fmt.Errorf("preparing file insert: %w", err)
	}
	defer fileStmt.Close()
	for p, st := range snapshot {
		if _, err := fileStmt.ExecContext(ctx, p, st.mtime, st.size); err != nil {
			return 0, "", fmt.Errorf("inserting file record for %s: %w", p, err)
		}
	}

	meta := map[string]string{
		"command":    c.cmd.String(),
		"total":      strconv.Itoa(total),
		"stale":      "0",
		"created_at": strconv.FormatInt(time.Now().Unix(), 10),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return 0, "", fmt.Errorf("writing %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("committing transaction: %w", err)
	}

	c.logger.Info("tag cache created", "path", c.path, "tags", total, "files", len(snapshot))
	return total, c.path, nil
}

// Invalidate marks the cache stale. It is a no-op without a cache.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.exists() {
		return nil
	}
	db, err := c.open()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "UPDATE meta SET value = '1' WHERE key = 'stale'"); err != nil {
		return fmt.Errorf("invalidating tag cache: %w", err)
	}
	c.logger.Debug("tag cache invalidated", "path", c.path)
	return nil
}

// Lines returns the cached display lines in ctags output order.
func (c *Cache) Lines(ctx context.Context) ([]string, error) {
	db, err := c.open()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT line FROM tags ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// writeLines replaces the text file atomically, so a reader never sees a
// partial file.
func (c *Cache) writeLines(lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating tag file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing tag file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing tag file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replacing tag file: %w", err)
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func (c *Cache) snapshot() (map[string]fileStat, error) {
	files := make(map[string]fileStat)
	err := c.walker.Files(func(rel string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[rel] = fileStat{mtime: info.ModTime().UnixNano(), size: info.Size()}
		return nil
	})
	return files, err
}

func (c *Cache) fresh(ctx context.Context, db *sql.DB) (bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT path, mtime, size FROM files")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	stored := make(map[string]fileStat)
	for rows.Next() {
		var p string
		var st fileStat
		if err := rows.Scan(&p, &st.mtime, &st.size); err != nil {
			return false, err
		}
		stored[p] = st
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	current, err := c.snapshot()
	if err != nil {
		return false, err
	}
	if len(current) != len(stored) {
		return false, nil
	}
	for p, st := range current {
		if stored[p] != st {
			return false, nil
		}
	}
	return true, nil
}
