package tasks

// NoticeLevel is the severity of a user-visible [Notice].
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "info"
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return ""
	}
}

// Notice asks the presentation layer to notify the user. Rendering is up to the consumer.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// IsZero reports whether there is nothing to show.
func (n Notice) IsZero() bool { return n.Message == "" }

// Update is published after every session mutation.
type Update struct {
	Snapshot Snapshot
	Notice   Notice // zero when the mutation carries no notification
}

// sendUpdate sends an update through the channel without blocking.
func sendUpdate(ch chan<- Update, u Update) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
		// Channel full, drop this update; the next one carries a full snapshot
	}
}
