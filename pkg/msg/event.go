package msg

type EventCode uint

const (
	// Viewer -> server. Start tracking a ticket, replacing the current one.
	TrackCode EventCode = 2000

	// Server -> viewer. Current state of the tracking session.
	TrackStateCode EventCode = 2001

	// Server -> viewer. No ticket to track, nothing will be pushed.
	NoDataCode EventCode = 2002
)

type TrackClientEvent struct {
	QueueId QueueId `json:"queue_id"`
}

type TrackStateServerEvent struct {
	QueueId       QueueId         `json:"queue_id"`
	State         string          `json:"state"`
	ChannelStatus string          `json:"channelStatus"`
	Ticket        *TicketSnapshot `json:"ticket"`
	ErrorKind     string          `json:"errorKind,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
}

type NoDataServerEvent struct {
	Reason string `json:"reason"`
}
