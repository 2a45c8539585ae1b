package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"agronomist/ml"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the audit tables.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(100) NOT NULL,
        schema VARCHAR(20) NOT NULL,
        score REAL,
        rows INTEGER,
        trained_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(100) NOT NULL,
        source VARCHAR(20) NOT NULL,
        value REAL NOT NULL,
        predicted_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close closes the database connection.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// TrainingLog is one recorded training run.
type TrainingLog struct {
	ModelName string    `json:"model_name"`
	Schema    string    `json:"schema"`
	Score     float64   `json:"score"`
	Rows      int       `json:"rows"`
	TrainedAt time.Time `json:"trained_at"`
}

// SaveTrainingLog records a completed training run.
func SaveTrainingLog(result *ml.TrainResult) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_log (model_name, schema, score, rows, trained_at)
        VALUES (?, ?, ?, ?, ?)`,
		result.ModelName, string(result.Schema), result.Score, result.Rows, time.Now().UTC())
	return err
}

// LoadTrainingLog returns recorded training runs, newest first.
func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT model_name, schema, score, rows, trained_at
        FROM training_log
        ORDER BY trained_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Schema, &log.Score, &log.Rows, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// SavePredictions records served predictions for a model.
func SavePredictions(modelName string, predictions []ml.Prediction) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if modelName == "" {
		return errors.New("model name required")
	}
	if len(predictions) == 0 {
		return nil
	}

	stmt, err := database.Prepare(`
        INSERT INTO predictions (model_name, source, value, predicted_at)
        VALUES (?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range predictions {
		if _, err := stmt.Exec(modelName, string(p.Source), p.Value, now); err != nil {
			return err
		}
	}
	return nil
}
