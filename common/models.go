package common

import (
	"time"
)

// Station a radio station being managed by the service.
//
// The live-state fields (IsStreamerLive, CurrentStreamerID) are mutated
// exclusively through the session transition operations of the persistence
// layer, never directly.
type Station struct {
	// ID station ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`
	// Name station name
	Name string `json:"name" gorm:"column:name;not null;uniqueIndex:station_name_index" validate:"required"`
	// EnableStreamers whether live streamers / DJs may broadcast to this station
	EnableStreamers bool `json:"enable_streamers" gorm:"column:enable_streamers;not null"`
	// IsStreamerLive whether a streamer is currently connected and broadcasting
	IsStreamerLive bool `json:"is_streamer_live" gorm:"column:is_streamer_live;not null"`
	// CurrentStreamerID ID of the streamer currently broadcasting, if any
	CurrentStreamerID *string `json:"current_streamer,omitempty" gorm:"column:current_streamer;default:null"`
	// StorageLocationID media storage location holding this station's media
	StorageLocationID string `json:"storage_location" gorm:"column:storage_location;not null" validate:"required"`
	// BaseDir station base directory on local disk. Transient working files
	// live under `<BaseDir>/temp`.
	BaseDir   string    `json:"base_dir" gorm:"column:base_dir;not null" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TempDirName name of the transient working file directory within a station base directory
const TempDirName = "temp"

// Streamer a credentialed identity permitted to broadcast live audio to a station
type Streamer struct {
	// ID streamer entry ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`
	// StationID owning station
	StationID string `json:"station" gorm:"column:station;not null;index:streamer_station_index" validate:"required"`
	// Username login name the broadcast ingest process authenticates with
	Username string `json:"username" gorm:"column:username;not null;index:streamer_username_index" validate:"required"`
	// PasswordHash bcrypt hash of the streamer password
	PasswordHash string `json:"-" gorm:"column:password_hash;not null" validate:"required"`
	// DisplayName optional public name for the streamer
	DisplayName *string `json:"display_name,omitempty" gorm:"column:display_name;default:null"`
	// IsActive whether the credential may currently be used
	IsActive bool `json:"is_active" gorm:"column:is_active;not null"`
	// ReactivateAt if set while inactive, the credential is re-enabled once
	// this timestamp has passed
	ReactivateAt *time.Time `json:"reactivate_at,omitempty" gorm:"column:reactivate_at;default:null"`
	// ScheduleWindows weekly time windows during which streaming is allowed.
	// An empty set means the streamer may broadcast at any time.
	ScheduleWindows []ScheduleWindow `json:"schedule_windows,omitempty" gorm:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ScheduleWindow one weekly allowed broadcast time window for a streamer.
//
// StartMinute and EndMinute are minutes from midnight on DayOfWeek. A window
// whose EndMinute is less than its StartMinute crosses midnight into the
// following day.
type ScheduleWindow struct {
	ID uint `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// StreamerID owning streamer
	StreamerID string `json:"streamer" gorm:"column:streamer;not null;index:schedule_window_streamer_index" validate:"required"`
	// DayOfWeek day the window starts on. 0 = Sunday, matching time.Weekday.
	DayOfWeek int `json:"day_of_week" gorm:"column:day_of_week;not null" validate:"gte=0,lte=6"`
	// StartMinute window start, minutes from midnight
	StartMinute int `json:"start_minute" gorm:"column:start_minute;not null" validate:"gte=0,lt=1440"`
	// EndMinute window end, minutes from midnight
	EndMinute int `json:"end_minute" gorm:"column:end_minute;not null" validate:"gte=0,lt=1440"`
}

// BroadcastSession one continuous live-connection interval for a streamer.
//
// A session with a nil EndedAt is open. A station holds at most one open
// session at any time; the session transition operations defensively close
// every open session they find rather than assuming the invariant held.
type BroadcastSession struct {
	// ID session entry ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`
	// StationID station broadcast on
	StationID string `json:"station" gorm:"column:station;not null;index:broadcast_session_station_index" validate:"required"`
	// StreamerID streamer which held the connection
	StreamerID string `json:"streamer" gorm:"column:streamer;not null;index:broadcast_session_streamer_index" validate:"required"`
	// StartedAt when the ingest process reported the connect
	StartedAt time.Time `json:"started_at" gorm:"column:started_at;not null" validate:"required"`
	// EndedAt when the session ended. Nil while the session is open.
	EndedAt   *time.Time `json:"ended_at,omitempty" gorm:"column:ended_at;default:null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StorageLocation a pluggable backend holding station media and derived artifacts
type StorageLocation struct {
	// ID storage location ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`
	// Backend storage backend type
	Backend string `json:"backend" gorm:"column:backend;not null" validate:"required,oneof=local s3"`
	// Path backend specific base path. For "local" this is a directory on
	// disk; for "s3" this is the bucket name.
	Path      string    `json:"path" gorm:"column:path;not null" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supported storage location backends
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// MediaFile a media record within a storage location. Derived artifacts
// (album art, waveform images) are keyed by the record's UniqueID.
type MediaFile struct {
	// ID media entry ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`
	// StorageLocationID owning storage location
	StorageLocationID string `json:"storage_location" gorm:"column:storage_location;not null;index:media_file_location_index" validate:"required"`
	// UniqueID content key the derived artifact paths are built from
	UniqueID string `json:"unique_id" gorm:"column:unique_id;not null;uniqueIndex:media_file_unique_id_index" validate:"required"`
	// Path media file path within the storage location
	Path      string    `json:"path" gorm:"column:path;not null" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SongHistory one playback history entry for a station
type SongHistory struct {
	ID uint `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// StationID station the entry belongs to
	StationID string `json:"station" gorm:"column:station;not null;index:song_history_station_index" validate:"required"`
	// Title played track title
	Title string `json:"title" gorm:"column:title;not null" validate:"required"`
	// PlayedAt when playback started
	PlayedAt time.Time `json:"played_at" gorm:"column:played_at;not null;index:song_history_played_at_index" validate:"required"`
}

// ListenerRecord one listener connection log entry for a station
type ListenerRecord struct {
	ID uint `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// StationID station the listener connected to
	StationID string `json:"station" gorm:"column:station;not null;index:listener_record_station_index" validate:"required"`
	// ClientAddr listener client address
	ClientAddr string `json:"client_addr" gorm:"column:client_addr;not null"`
	// ConnectedAt when the listener connected
	ConnectedAt time.Time `json:"connected_at" gorm:"column:connected_at;not null;index:listener_record_connected_at_index" validate:"required"`
}

// QueueEntry one entry in a station's upcoming playback queue
type QueueEntry struct {
	ID uint `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// StationID owning station
	StationID string `json:"station" gorm:"column:station;not null;index:queue_entry_station_index" validate:"required"`
	// MediaUniqueID unique ID of the queued media record
	MediaUniqueID string `json:"media_unique_id" gorm:"column:media_unique_id;not null" validate:"required"`
	// QueuedAt when the entry was placed in the queue
	QueuedAt time.Time `json:"queued_at" gorm:"column:queued_at;not null;index:queue_entry_queued_at_index" validate:"required"`
}

// Settings deployment wide settings. Exactly one row exists.
type Settings struct {
	ID uint `json:"id" gorm:"column:id;primaryKey"`
	// HistoryKeepDays days to keep playback history and listener records.
	// 0 means retain indefinitely.
	HistoryKeepDays int       `json:"history_keep_days" gorm:"column:history_keep_days;not null;default:0" validate:"gte=0"`
	UpdatedAt       time.Time `json:"updated_at"`
}
