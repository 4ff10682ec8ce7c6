package index

// GraphStore is the snapshot interface consumed by the build pipeline.
type GraphStore interface {
	ReplaceGraph(notes []NoteRow, links []LinkRow) error
	Backlinks(target string) ([]string, error)
	Outbound(source string) ([]string, error)
	Notes() ([]NoteRow, error)
	Close() error
}

// Verify *DB satisfies GraphStore at compile time.
var _ GraphStore = (*DB)(nil)
