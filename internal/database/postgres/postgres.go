package postgres

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var dbStatus atomic.Bool

// DBStatus reports whether a connection has been established.
func DBStatus() bool {
	return dbStatus.Load()
}

func connString(cfg config.PostgresConfig, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, dbname)
}

// ConnectAndCreateDB connects to cfg.DBname, creating the database first when
// it is missing, then applies schema.sql.
func ConnectAndCreateDB(cfg config.PostgresConfig) (*sqlx.DB, error) {
	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.DBname)

	defaultDB, err := sql.Open("postgres", connString(cfg, "postgres"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to default postgres db: %w", err)
	}
	defer defaultDB.Close()

	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := defaultDB.QueryRow(checkQuery, cfg.DBname).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		createQuery := fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.DBname)
		if _, err := defaultDB.Exec(createQuery); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", cfg.DBname, err)
		}
		log.Printf("Database '%s' created successfully", cfg.DBname)
	}

	db, err := sqlx.Connect("postgres", connString(cfg, cfg.DBname))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping target database: %w", err)
	}

	// Statements are idempotent, so the schema is applied on every start.
	if err := executeSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	dbStatus.Store(true)
	return db, nil
}

func executeSchema(db *sqlx.DB) error {
	schemaLocations := []string{
		"schema.sql",
		"../schema.sql",
		"/app/schema.sql",
		filepath.Join(os.Getenv("PWD"), "schema.sql"),
	}

	var schemaPath string
	for _, location := range schemaLocations {
		if _, err := os.Stat(location); err == nil {
			schemaPath = location
			break
		}
	}
	if schemaPath == "" {
		return fmt.Errorf("schema.sql not found in any expected locations: %v", schemaLocations)
	}

	schemaContent, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema.sql from %s: %w", schemaPath, err)
	}

	log.Printf("Executing schema from: %s", schemaPath)

	applied := 0
	for i, statement := range splitStatements(string(schemaContent)) {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
		applied++
	}
	log.Printf("Schema execution completed. Successfully executed %d statements", applied)
	return nil
}

// splitStatements splits on semicolons and drops blank and comment-only
// fragments.
func splitStatements(schema string) []string {
	var out []string
	for _, raw := range strings.Split(schema, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				lines = append(lines, line)
			}
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// RetryConnectOnFailed keeps retrying every wait until a connection is made.
func RetryConnectOnFailed(wait time.Duration, cfg config.PostgresConfig) *sqlx.DB {
	for attempt := 1; ; attempt++ {
		db, err := ConnectAndCreateDB(cfg)
		if err == nil {
			log.Printf("database connection established after %d attempt(s)", attempt)
			return db
		}
		log.Printf("failed to connect database: %s, next retry in %v", err, wait)
		time.Sleep(wait)
	}
}
