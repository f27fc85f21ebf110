package db

import (
	"github.com/alwitt/onair/common"
)

// station a managed radio station
type station struct {
	common.Station
	// Streamers streamer credentials owned by this station
	Streamers []streamer `gorm:"foreignKey:StationID"`
}

// TableName hard code table name
func (station) TableName() string {
	return "stations"
}

// streamer a streamer credential record
type streamer struct {
	common.Streamer
	// Windows associated weekly schedule windows
	Windows []scheduleWindow `gorm:"foreignKey:StreamerID"`
}

// TableName hard code table name
func (streamer) TableName() string {
	return "streamers"
}

// scheduleWindow one weekly allowed broadcast window
type scheduleWindow struct {
	common.ScheduleWindow
}

// TableName hard code table name
func (scheduleWindow) TableName() string {
	return "streamer_schedule_windows"
}

// broadcastSession one connect-to-disconnect interval
type broadcastSession struct {
	common.BroadcastSession
}

// TableName hard code table name
func (broadcastSession) TableName() string {
	return "broadcast_sessions"
}

// storageLocation a pluggable media storage backend
type storageLocation struct {
	common.StorageLocation
}

// TableName hard code table name
func (storageLocation) TableName() string {
	return "storage_locations"
}

// mediaFile a media record within a storage location
type mediaFile struct {
	common.MediaFile
}

// TableName hard code table name
func (mediaFile) TableName() string {
	return "media_files"
}

// songHistory one playback history entry
type songHistory struct {
	common.SongHistory
}

// TableName hard code table name
func (songHistory) TableName() string {
	return "song_history"
}

// listenerRecord one listener connection log entry
type listenerRecord struct {
	common.ListenerRecord
}

// TableName hard code table name
func (listenerRecord) TableName() string {
	return "listener_records"
}

// queueEntry one upcoming playback queue entry
type queueEntry struct {
	common.QueueEntry
}

// TableName hard code table name
func (queueEntry) TableName() string {
	return "queue_entries"
}

// settings deployment wide settings singleton
type settings struct {
	common.Settings
}

// TableName hard code table name
func (settings) TableName() string {
	return "settings"
}
