package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence increments the counter in table's "<table>_sequence" row and returns the new value.
//
// Sequence numbers are the run numbers shown by the history command (run #42).
func NextSequence(db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}
