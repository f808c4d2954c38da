package main

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogGooseLogger(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	l := &slogGooseLogger{logger: log}

	l.Printf("OK   %s (%d ms)\n", "00001_create_tasks.sql", 12)
	l.Fatalf("failed to apply %s", "00002_bad.sql")

	logger.AssertLogContains(t, buf, "OK   00001_create_tasks.sql (12 ms)")
	logger.AssertLogContains(t, buf, "failed to apply 00002_bad.sql")
}

func TestRunMigrations_UnknownCommand(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log, _ := logger.GetTestLogger(t)

	err = runMigrations(context.Background(), db, "sideways", log)

	assert.ErrorContains(t, err, `unknown migration command "sideways"`)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement should reach the database")
}
