package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"             // sqlite driver
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Open открывает БД и проверяет соединение.
// Для sqlite пул сжат до одного соединения: ":memory:" живёт в пределах соединения.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown db driver %q: use pgx or sqlite", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		// нагрузка небольшая
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS question_sets (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS question_sets_created_at_idx ON question_sets (created_at)`,
	`CREATE TABLE IF NOT EXISTS questions (
	set_id        TEXT NOT NULL REFERENCES question_sets(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	question_text TEXT NOT NULL,
	question_type TEXT NOT NULL,
	options_json  TEXT NOT NULL DEFAULT '[]',
	answer        TEXT NOT NULL DEFAULT '',
	explanation   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (set_id, position)
)`,
}

// Migrate создаёт таблицы; повторный вызов ничего не меняет.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind переписывает плейсхолдеры "?" в "$1, $2..." для Postgres.
func rebind(driver, q string) string {
	if driver != DriverPostgres || !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// ResolveDSN собирает Postgres DSN из POSTGRES_*/PG* значений, если DATABASE_URL не задан.
func ResolveDSN(databaseURL, user, pass, host, port, name string) string {
	if v := strings.TrimSpace(databaseURL); v != "" {
		return v
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary: DSN для логов, без пароля.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "dsn: " + strings.SplitN(dsn, "?", 2)[0]
	}
	return fmt.Sprintf("%s://%s@%s/%s", u.Scheme, u.User.Username(), u.Host, strings.TrimPrefix(u.Path, "/"))
}
