package sqlite

import (
	"database/sql"
	"time"

	"sprintreport/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type ReportRun = domain.ReportRun
type ReportRow = domain.ReportRow

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		sprint_id    INTEGER NOT NULL,
		sprint_name  TEXT NOT NULL DEFAULT '',
		choice       TEXT NOT NULL DEFAULT 'current',
		csv_path     TEXT DEFAULT '',
		generated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_sprint ON report_runs(sprint_id);
	CREATE INDEX IF NOT EXISTS idx_report_runs_generated_at ON report_runs(generated_at);

	CREATE TABLE IF NOT EXISTS report_rows (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      INTEGER NOT NULL REFERENCES report_runs(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		label       TEXT NOT NULL,
		points      REAL NOT NULL DEFAULT 0,
		not_started REAL NOT NULL DEFAULT 0,
		started     REAL NOT NULL DEFAULT 0,
		done        REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_report_rows_run ON report_rows(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InsertReportRun stores a run and its rows in one transaction and returns
// the new run ID.
func InsertReportRun(db *sql.DB, run ReportRun) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO report_runs (sprint_id, sprint_name, choice, csv_path, generated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.SprintID, run.SprintName, run.Choice, run.CSVPath, run.GeneratedAt,
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO report_rows (run_id, position, label, points, not_started, started, done)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, row := range run.Rows {
		if _, err := stmt.Exec(runID, i, row.Label, row.Points, row.NotStarted, row.Started, row.Done); err != nil {
			return 0, err
		}
	}

	return runID, tx.Commit()
}

// GetRecentRuns returns the latest runs, newest first, without their rows.
func GetRecentRuns(db *sql.DB, limit int) ([]ReportRun, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := db.Query(
		`SELECT id, sprint_id, sprint_name, choice, csv_path, generated_at
		 FROM report_runs ORDER BY generated_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		var run ReportRun
		if err := rows.Scan(&run.ID, &run.SprintID, &run.SprintName, &run.Choice, &run.CSVPath, &run.GeneratedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func GetRunRows(db *sql.DB, runID int64) ([]ReportRow, error) {
	rows, err := db.Query(
		`SELECT label, points, not_started, started, done
		 FROM report_rows WHERE run_id = ? ORDER BY position, id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.Label, &row.Points, &row.NotStarted, &row.Started, &row.Done); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetLatestRunForSprint returns the newest run for a sprint generated before
// the given time, with its rows. ok is false when there is none.
func GetLatestRunForSprint(db *sql.DB, sprintID int64, before time.Time) (ReportRun, bool, error) {
	var run ReportRun
	err := db.QueryRow(
		`SELECT id, sprint_id, sprint_name, choice, csv_path, generated_at
		 FROM report_runs WHERE sprint_id = ? AND generated_at < ?
		 ORDER BY generated_at DESC, id DESC LIMIT 1`,
		sprintID, before,
	).Scan(&run.ID, &run.SprintID, &run.SprintName, &run.Choice, &run.CSVPath, &run.GeneratedAt)
	if err == sql.ErrNoRows {
		return ReportRun{}, false, nil
	}
	if err != nil {
		return ReportRun{}, false, err
	}
	run.Rows, err = GetRunRows(db, run.ID)
	if err != nil {
		return ReportRun{}, false, err
	}
	return run, true, nil
}
