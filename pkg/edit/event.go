package edit

// EventType discriminates the outcome variants of executing a Command.
type EventType string

// Event type constants.
const (
	EventFileViewed    EventType = "file_viewed"
	EventFileEdited    EventType = "file_edited"
	EventFileCreated   EventType = "file_created"
	EventBackupCreated EventType = "backup_created"
	EventErrorRaised   EventType = "error_raised"
)

// LineStats counts line-level changes from one edit.
type LineStats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// Add accumulates other into s.
func (s *LineStats) Add(other LineStats) {
	s.Added += other.Added
	s.Removed += other.Removed
	s.Changed += other.Changed
}

// Event is the post-execution outcome of one Command. Exactly one of
// the variant pointers matching Type is set; Event values are created
// once and never mutated afterward.
type Event struct {
	Type EventType `json:"type"`

	// CommandID is the originating Command's ID, preserved for
	// traceability.
	CommandID string `json:"command_id"`

	Path string `json:"path,omitempty"`

	FileViewed    *FileViewedEvent    `json:"file_viewed,omitempty"`
	FileEdited    *FileEditedEvent    `json:"file_edited,omitempty"`
	FileCreated   *FileCreatedEvent   `json:"file_created,omitempty"`
	BackupCreated *BackupCreatedEvent `json:"backup_created,omitempty"`
	ErrorRaised   *ErrorRaisedEvent   `json:"error_raised,omitempty"`
}

// FileViewedEvent reports the content returned by a view command.
type FileViewedEvent struct {
	Content   string `json:"content"`
	LineCount int    `json:"line_count"`
}

// FileEditedEvent reports a completed insert, str_replace, or undo_edit.
type FileEditedEvent struct {
	// Stats is nil when line accounting was not possible (e.g. a
	// restore of a binary backup); such events do not contribute to
	// the run's edit totals.
	Stats *LineStats `json:"stats,omitempty"`

	// BackupPath is set when a backup was written before this edit.
	BackupPath string `json:"backup_path,omitempty"`

	// RestoredFrom is set by undo_edit to the backup it consumed.
	RestoredFrom string `json:"restored_from,omitempty"`
}

// FileCreatedEvent reports a completed create.
type FileCreatedEvent struct {
	LineCount int `json:"line_count"`
}

// BackupCreatedEvent reports a backup written before a mutating edit.
type BackupCreatedEvent struct {
	BackupPath string `json:"backup_path"`
}

// ErrorRaisedEvent reports an expected failure executing one command.
type ErrorRaisedEvent struct {
	Message string `json:"message"`
}

// NewError builds an ErrorRaised event for the given command and message.
func NewError(commandID, path, message string) Event {
	return Event{
		Type:        EventErrorRaised,
		CommandID:   commandID,
		Path:        path,
		ErrorRaised: &ErrorRaisedEvent{Message: message},
	}
}
