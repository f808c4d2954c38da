// Package testdb provides utilities for database integration tests.
//
// Tests obtain a connection with GetTestDBWithT, which skips the test when no
// database URL is configured, apply the embedded goose migrations with
// SetupTestDatabaseSchema and run each case inside WithTx so every change is
// rolled back when the case completes:
//
//	func TestFindDue(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.SetupTestDatabaseSchema(t, db)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewPostgresTaskStore(tx, nil)
//	        // ...
//	    })
//	}
//
// Environment variables, first non-empty wins: DATABASE_URL,
// TASKNOTIFY_TEST_DB_URL, TASKNOTIFY_DATABASE_URL.
package testdb
