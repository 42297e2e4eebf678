package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hedgemm/hmm/internal/domain"
)

// RecordDownload inserts a history entry and sets rec.ID
func (d *DB) RecordDownload(rec *domain.DownloadRecord) error {
	var finished *time.Time
	if !rec.FinishedAt.IsZero() {
		t := rec.FinishedAt.UTC()
		finished = &t
	}

	res, err := d.Exec(`
		INSERT INTO downloads (url, path, size, checksum, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.URL, rec.Path, rec.Size, rec.Checksum, string(rec.Status), rec.Error, rec.StartedAt.UTC(), finished)
	if err != nil {
		return fmt.Errorf("recording download: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading download id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListDownloads returns the most recent downloads first. A limit <= 0 returns all.
func (d *DB) ListDownloads(limit int) ([]domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.Query(`
		SELECT id, url, path, size, checksum, status, error, started_at, finished_at
		FROM downloads
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	var records []domain.DownloadRecord
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating downloads: %w", err)
	}
	return records, nil
}

// LastDownload returns the newest entry for url, or nil if there is none
func (d *DB) LastDownload(url string) (*domain.DownloadRecord, error) {
	row := d.QueryRow(`
		SELECT id, url, path, size, checksum, status, error, started_at, finished_at
		FROM downloads
		WHERE url = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, url)

	rec, err := scanDownload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteDownloads clears the history and returns how many entries were removed
func (d *DB) DeleteDownloads() (int64, error) {
	res, err := d.Exec("DELETE FROM downloads")
	if err != nil {
		return 0, fmt.Errorf("deleting downloads: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (*domain.DownloadRecord, error) {
	var (
		rec      domain.DownloadRecord
		status   string
		checksum sql.NullString
		errText  sql.NullString
		finished sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.URL, &rec.Path, &rec.Size, &checksum, &status, &errText, &rec.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning download: %w", err)
	}

	rec.Status = domain.DownloadStatus(status)
	rec.Checksum = checksum.String
	rec.Error = errText.String
	if finished.Valid {
		rec.FinishedAt = finished.Time
	}
	return &rec, nil
}
