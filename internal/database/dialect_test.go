package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"mysql untouched", MySQL, "SELECT * FROM movie WHERE title = ?", "SELECT * FROM movie WHERE title = ?"},
		{"no placeholders", Postgres, "SELECT title FROM movie", "SELECT title FROM movie"},
		{"numbered", Postgres, "INSERT INTO userr (username, password, email, dob) VALUES (?, ?, ?, NULL)",
			"INSERT INTO userr (username, password, email, dob) VALUES ($1, $2, $3, NULL)"},
		{"mysql insert untouched", MySQL, "INSERT INTO test (name) VALUES (?)", "INSERT INTO test (name) VALUES (?)"},
		{"join", Postgres, "SELECT a.name FROM actor a JOIN plays_in p ON p.actor_id = a.id WHERE p.movie_id = ? AND a.name <> ?",
			"SELECT a.name FROM actor a JOIN plays_in p ON p.actor_id = a.id WHERE p.movie_id = $1 AND a.name <> $2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Rebind(tt.in))
		})
	}
}

func TestParseDialect(t *testing.T) {
	for _, s := range []string{"postgres", "PostgreSQL", "pgx"} {
		d, err := ParseDialect(s)
		require.NoError(t, err)
		assert.Equal(t, Postgres, d)
		assert.Equal(t, "pgx", d.DriverName())
	}
	d, err := ParseDialect("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.DriverName())

	_, err = ParseDialect("sqlite3")
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key")))
	assert.False(t, IsUniqueViolation(nil))
}
