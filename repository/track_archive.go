package repository

import (
	"database/sql"
	"fmt"

	"GreetFM/db"
	"GreetFM/model"
)

// TrackArchive defines persistence for terminal tracks.
type TrackArchive interface {
	Save(trk model.Track) error
	GetByID(id string) (*model.Track, error)
	ListByDevice(deviceID string, limit int) ([]model.Track, error)
}

// mysqlTrackArchive implements TrackArchive for MySQL.
type mysqlTrackArchive struct {
	DB *sql.DB
}

// NewMySQLTrackArchive creates a new archive over the global connection.
func NewMySQLTrackArchive() TrackArchive {
	return &mysqlTrackArchive{DB: db.DB}
}

// Save upserts a terminal track. Archival may fire more than once for the
// same track (finalize paths overlap), so the write is idempotent.
func (r *mysqlTrackArchive) Save(trk model.Track) error {
	query := `INSERT INTO tracks (id, device_id, kind, text, category, state, error, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE state = VALUES(state), error = VALUES(error), updated_at = VALUES(updated_at)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for Save: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(trk.ID, trk.DeviceID, trk.Kind, trk.Text, trk.Category, string(trk.State), trk.Error, trk.CreatedAt, trk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute Save for track %s: %w", trk.ID, err)
	}
	return nil
}

// GetByID retrieves an archived track. Returns (nil, nil) when absent.
func (r *mysqlTrackArchive) GetByID(id string) (*model.Track, error) {
	query := `SELECT id, device_id, kind, text, category, state, error, created_at, updated_at
	           FROM tracks WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	trk, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return trk, nil
}

// ListByDevice retrieves archived tracks for a device, newest first.
func (r *mysqlTrackArchive) ListByDevice(deviceID string, limit int) ([]model.Track, error) {
	query := `SELECT id, device_id, kind, text, category, state, error, created_at, updated_at
	           FROM tracks WHERE device_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.DB.Query(query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for device %s: %w", deviceID, err)
	}
	defer rows.Close()

	tracks := make([]model.Track, 0)
	for rows.Next() {
		trk, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, *trk)
	}
	return tracks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*model.Track, error) {
	trk := &model.Track{}
	var state string
	var errDetail sql.NullString
	err := row.Scan(&trk.ID, &trk.DeviceID, &trk.Kind, &trk.Text, &trk.Category, &state, &errDetail, &trk.CreatedAt, &trk.UpdatedAt)
	if err != nil {
		return nil, err
	}
	trk.State = model.TrackState(state)
	if errDetail.Valid {
		trk.Error = errDetail.String
	}
	return trk, nil
}
