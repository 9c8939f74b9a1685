package mariadb

import (
	"context"
	"fmt"

	"github.com/rohan1205/NeuraAttend/internal/database"
)

// AttendanceRepository provides MariaDB-backed attendance storage
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new MariaDB attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Exists reports whether name has a record for date
func (r *AttendanceRepository) Exists(ctx context.Context, name, date string) (bool, error) {
	var exists bool
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendance WHERE name = ? AND date = ?)`, name, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return exists, nil
}

// InsertIfAbsent inserts the record unless (name, date) is taken. INSERT IGNORE
// on the unique key makes this atomic; RowsAffected tells the two cases apart.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	query := `INSERT IGNORE INTO attendance (id, name, date, time, created_at) VALUES (?, ?, ?, ?, ?)`

	result, err := r.pool.db.ExecContext(ctx, query, rec.ID, rec.Name, rec.Date, rec.Time, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attendance rows affected: %w", err)
	}
	return n == 1, nil
}

// List returns the records of a date ordered by time, or all records when date is empty
func (r *AttendanceRepository) List(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	query := `
		SELECT id, name, DATE_FORMAT(date, '%Y-%m-%d'), TIME_FORMAT(time, '%H:%i:%s'), created_at
		FROM attendance
		WHERE ? = '' OR date = ?
		ORDER BY date, time, name
	`

	rows, err := r.pool.db.QueryContext(ctx, query, date, date)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Date, &rec.Time, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
