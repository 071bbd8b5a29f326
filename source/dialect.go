package source

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/invertedv/sods"
)

var (
	//go:embed skeletons/clickhouse/trade.txt
	chTrade string
	//go:embed skeletons/postgres/trade.txt
	pgTrade string
	//go:embed skeletons/sqlite/trade.txt
	liteTrade string

	//go:embed skeletons/notes.txt
	notesSkeleton string
)

const (
	ch   = "clickhouse"
	pg   = "postgres"
	lite = "sqlite"
)

// Dialect is a database connection and the SQL text that differs between databases.
type Dialect struct {
	db      *sql.DB
	dialect string

	trade string
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)
	if db == nil {
		return nil, sods.SourceError("dialect", fmt.Errorf("nil *sql.DB"))
	}

	d := &Dialect{db: db, dialect: dialect}
	switch dialect {
	case ch:
		d.trade = chTrade
	case pg:
		d.trade = pgTrade
	case lite:
		d.trade = liteTrade
	default:
		return nil, sods.NewConfigError("source.kind", "no skeletons for database %s", dialect)
	}

	return d, nil
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

func (d *Dialect) Close() error {
	return d.db.Close()
}

// Conn describes a database to connect to. Path is used by sqlite only.
type Conn struct {
	Kind     string `mapstructure:"kind"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Path     string `mapstructure:"path"`
}

// Open connects to c and checks the connection.
func Open(ctx context.Context, c Conn) (*Dialect, error) {
	var (
		db *sql.DB
		e  error
	)

	switch strings.ToLower(c.Kind) {
	case ch:
		db = OpenClickHouse(c)
	case pg:
		if db, e = OpenPostgres(c); e != nil {
			return nil, e
		}
	case lite:
		if db, e = OpenSQLite(c.Path); e != nil {
			return nil, e
		}
	default:
		return nil, sods.NewConfigError("source.kind", "unsupported database %q", c.Kind)
	}

	if ex := db.PingContext(ctx); ex != nil {
		_ = db.Close()
		return nil, sods.SourceError("ping "+c.Kind, ex)
	}

	return NewDialect(c.Kind, db)
}

// OpenClickHouse uses the native protocol, port 9000 unless c.Port is set.
func OpenClickHouse(c Conn) *sql.DB {
	port := c.Port
	if port == 0 {
		port = 9000
	}

	database := c.Database
	if database == "" {
		database = "default"
	}

	return clickhouse.OpenDB(
		&clickhouse.Options{
			Addr: []string{fmt.Sprintf("%s:%d", c.Host, port)},
			Auth: clickhouse.Auth{
				Database: database,
				Username: c.User,
				Password: c.Password,
			},
			DialTimeout: 300 * time.Second,
			Compression: &clickhouse.Compression{
				Method: clickhouse.CompressionLZ4,
				Level:  0,
			},
		})
}

func OpenPostgres(c Conn) (*sql.DB, error) {
	port := c.Port
	if port == 0 {
		port = 5432
	}

	connectionStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, port, c.Database)
	var (
		db *sql.DB
		e  error
	)
	if db, e = sql.Open("pgx", connectionStr); e != nil {
		return nil, sods.SourceError("open postgres", e)
	}

	return db, nil
}

// OpenSQLite opens the database file at path, ":memory:" for an in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, sods.NewConfigError("source.path", "no sqlite path")
	}

	var (
		db *sql.DB
		e  error
	)
	if db, e = sql.Open("sqlite3", path); e != nil {
		return nil, sods.SourceError("open sqlite", e)
	}

	// each connection to :memory: is a new database
	db.SetMaxOpenConns(1)

	return db, nil
}
