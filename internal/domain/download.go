package domain

import "time"

// SourceDirect is the source ID for plain URLs that need no resolving.
const SourceDirect = "direct"

// RemoteFile is a downloadable file resolved from a mod reference
type RemoteFile struct {
	SourceID string // "gamebanana", "nexusmods", "curseforge", or SourceDirect
	Ref      string // Source-specific reference the file was resolved from
	URL      string // Direct download URL
	FileName string // Suggested local file name
	Version  string
	Size     int64  // Size in bytes, 0 if unknown
	Checksum string // Hex MD5 published by the source, empty if unknown
}

// DownloadStatus is the outcome of a download attempt
type DownloadStatus string

const (
	DownloadCompleted DownloadStatus = "completed"
	DownloadFailed    DownloadStatus = "failed"
	DownloadCancelled DownloadStatus = "cancelled"
)

// DownloadRecord is one entry of the download history
type DownloadRecord struct {
	ID         int64
	URL        string
	Path       string
	Size       int64
	Checksum   string // MD5, empty unless completed
	Status     DownloadStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the download took
func (r DownloadRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Release describes a published version of the application
type Release struct {
	Version   string `json:"version"`
	URL       string `json:"url"`
	Changelog string `json:"changelog"`
}
