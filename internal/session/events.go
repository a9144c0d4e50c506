package session

// EventKind identifies what changed.
type EventKind int

const (
	// ListChanged: the visible list must be re-rendered (collection or filter changed).
	ListChanged EventKind = iota + 1
	// TagIndexChanged: tag counts or the active tag changed.
	TagIndexChanged
	// ActiveChanged: a different note (or none) is now active.
	ActiveChanged
	// Notice: a non-fatal problem the user should see.
	Notice
)

func (k EventKind) String() string {
	switch k {
	case ListChanged:
		return "list_changed"
	case TagIndexChanged:
		return "tag_index_changed"
	case ActiveChanged:
		return "active_changed"
	case Notice:
		return "notice"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners after the session lock is released.
type Event struct {
	Kind EventKind
	// ActiveID is set for ActiveChanged ("" means no active note).
	ActiveID string
	// Message and Err are set for Notice.
	Message string
	Err     error
}

// Listener receives session events. Listeners run on the goroutine that
// performed the operation and may call back into the session.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}
