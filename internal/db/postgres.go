package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
)

// RequiredTables нужны сервису для приглашений и журнала доставки SMS.
var RequiredTables = []string{"invitations", "sms_messages"}

// migrationLockID задаёт ключ advisory lock. Несколько экземпляров с общим Redis
// стартуют одновременно, а миграции должен применить только один.
const migrationLockID = 7_204_311

var createTableRegex = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([a-z_][a-z0-9_]*)`)

// NewPostgres создаёт подключение к PostgreSQL с заданным DSN.
// Сервису нужны только приглашения и журнал SMS, поэтому пул небольшой.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := sqlx.ConnectContext(connectCtx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(time.Minute)

	return conn, nil
}

// migration описывает один SQL файл схемы.
type migration struct {
	Name   string
	SQL    string
	Tables []string
}

// loadMigrations читает *.sql из каталога в порядке имён.
func loadMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось прочитать каталог миграций: %w", err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("postgres: не удалось прочитать миграцию %s: %w", entry.Name(), err)
		}
		out = append(out, migration{
			Name:   entry.Name(),
			SQL:    string(body),
			Tables: createdTables(string(body)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func createdTables(sql string) []string {
	var tables []string
	for _, m := range createTableRegex.FindAllStringSubmatch(sql, -1) {
		tables = append(tables, strings.ToLower(m[1]))
	}
	return tables
}

// RunMigrations применяет новые миграции под advisory lock и проверяет,
// что таблицы приглашений и журнала SMS на месте.
func RunMigrations(ctx context.Context, conn *sqlx.DB, migrationsDir string) error {
	migrations, err := loadMigrations(migrationsDir)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: не удалось начать транзакцию миграций: %w", err)
	}
	defer tx.Rollback()

	// Блокировка держится до конца транзакции.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("postgres: не удалось взять блокировку миграций: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("postgres: не удалось инициализировать таблицу миграций: %w", err)
	}

	var applied []string
	if err := tx.SelectContext(ctx, &applied, `SELECT name FROM schema_migrations`); err != nil {
		return fmt.Errorf("postgres: не удалось прочитать выполненные миграции: %w", err)
	}
	done := make(map[string]struct{}, len(applied))
	for _, name := range applied {
		done[name] = struct{}{}
	}

	for _, m := range migrations {
		if _, ok := done[m.Name]; ok {
			continue
		}

		start := time.Now()
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("postgres: не удалось выполнить миграцию %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name); err != nil {
			return fmt.Errorf("postgres: не удалось отметить миграцию %s: %w", m.Name, err)
		}
		logger.Log.WithFields(logrus.Fields{
			"migration":   m.Name,
			"tables":      m.Tables,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("migration applied")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: не удалось зафиксировать миграции: %w", err)
	}

	return checkTables(ctx, conn, RequiredTables)
}

// checkTables падает, если какой-то из таблиц сервиса нет в схеме.
func checkTables(ctx context.Context, conn *sqlx.DB, tables []string) error {
	for _, table := range tables {
		var exists bool
		if err := conn.GetContext(ctx, &exists, `SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table); err != nil {
			return fmt.Errorf("postgres: проверка таблицы %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("postgres: таблица %s не создана, проверьте MIGRATIONS_PATH", table)
		}
	}
	return nil
}
