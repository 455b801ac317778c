package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConnectionParams_ConnString(t *testing.T) {
	params := ConnectionParams{
		Host:     "db",
		Port:     5433,
		User:     "rag",
		Password: "secret",
		DBName:   "manuals",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5433 user=rag password=secret dbname=manuals sslmode=disable", params.ConnString())
}

func TestGenerateLockID_Deterministic(t *testing.T) {
	a := GenerateLockID("fridge_manuals", "abc")
	b := GenerateLockID("fridge_manuals", "abc")
	c := GenerateLockID("fridge_manuals", "abd")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	undefined := fmt.Errorf("select: %w", &pgconn.PgError{Code: "42P01"})

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(undefined))
	assert.True(t, IsUndefinedTable(undefined))
	assert.False(t, IsUndefinedTable(fmt.Errorf("plain")))
}
