package testhelpers

import (
	"database/sql"
	"fmt"
	"os"
)

// ApplySchema executes a DDL file against the database. The schema uses
// IF NOT EXISTS throughout, so repeated application is harmless.
func ApplySchema(db *sql.DB, schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", schemaPath, err)
	}

	if _, err := db.Exec(string(content)); err != nil {
		return fmt.Errorf("apply schema %s: %w", schemaPath, err)
	}

	return nil
}
