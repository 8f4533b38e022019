package tracking

import "cloud-hospital/queue/queue-tracker/pkg/msg"

type State int

const (
	Idle State = iota
	FetchingSnapshot
	Live
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingSnapshot:
		return "fetchingSnapshot"
	case Live:
		return "live"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type ChannelStatus int

const (
	ChannelIdle ChannelStatus = iota
	ChannelConnecting
	ChannelOpen
	ChannelClosed
)

func (c ChannelStatus) String() string {
	switch c {
	case ChannelIdle:
		return "idle"
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// View is what a rendering surface needs to draw one ticket. Snapshot is
// a copy, nil until a snapshot or a partial update seeded it.
type View struct {
	QueueId       msg.QueueId
	State         State
	ChannelStatus ChannelStatus
	Snapshot      *msg.TicketSnapshot
	LastError     *Error
}

func (v View) HasError() bool {
	return v.LastError != nil
}

func (v View) ToEvent() *msg.TrackStateServerEvent {
	event := &msg.TrackStateServerEvent{
		QueueId:       v.QueueId,
		State:         v.State.String(),
		ChannelStatus: v.ChannelStatus.String(),
		Ticket:        v.Snapshot,
	}
	if v.LastError != nil {
		event.ErrorKind = v.LastError.Kind.String()
		event.ErrorMessage = v.LastError.Message
	}
	return event
}
