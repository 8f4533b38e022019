package msg

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Room number shown while a ticket has no room yet.
const UnassignedRoom = "-"

var (
	ErrMissingQueueId = errors.New("missing queue_id")
	ErrInvalidQueueId = errors.New("queue_id is neither string nor number")
)

// QueueId names one queue ticket. The external service sends it either as
// a JSON string or a JSON number, both decode to the same QueueId.
type QueueId string

func (id *QueueId) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QueueId(s).Normalize()
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrInvalidQueueId
		}
		*id = QueueId(n.String())
		return nil
	}
}

// Normalize is applied to every id entering the service, whether it comes
// from a query param, a viewer event or a push update.
func (id QueueId) Normalize() QueueId {
	return QueueId(strings.TrimSpace(string(id)))
}

func (id QueueId) IsEmpty() bool {
	return id.Normalize() == ""
}

// TicketSnapshot is the full known state of a ticket.
type TicketSnapshot struct {
	QueueId          QueueId `json:"queue_id"`
	PatientFirstname string  `json:"patient_firstname"`
	PatientLastname  string  `json:"patient_lastname"`
	QueueNumber      string  `json:"queueNumber"`
	RemainingQueue   int     `json:"remaining_queue"`
	DeptName         string  `json:"dept_name"`
	RoomNumber       string  `json:"room_number"`
}

func (s *TicketSnapshot) Clone() *TicketSnapshot {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

func (s *TicketSnapshot) IsRoomAssigned() bool {
	return s.RoomNumber != "" && s.RoomNumber != UnassignedRoom
}

// PartialUpdate carries the subset of snapshot fields present in a push
// message. A nil field was absent or null and leaves the snapshot alone.
type PartialUpdate struct {
	QueueId          QueueId `json:"queue_id"`
	PatientFirstname *string `json:"patient_firstname"`
	PatientLastname  *string `json:"patient_lastname"`
	QueueNumber      *string `json:"queueNumber"`
	RemainingQueue   *int    `json:"remaining_queue"`
	DeptName         *string `json:"dept_name"`
	RoomNumber       *string `json:"room_number"`
}

// ParsePartialUpdate decodes one push message. The payload has to be a
// JSON object naming a queue_id, unknown fields are ignored.
func ParsePartialUpdate(raw []byte) (*PartialUpdate, error) {
	update := &PartialUpdate{}
	if err := json.Unmarshal(raw, update); err != nil {
		return nil, err
	}
	if update.QueueId.IsEmpty() {
		return nil, ErrMissingQueueId
	}
	return update, nil
}

// ApplyTo overwrites every field present in the update. Applying the same
// update twice leaves the snapshot as applying it once.
func (u *PartialUpdate) ApplyTo(s *TicketSnapshot) {
	s.QueueId = u.QueueId
	if u.PatientFirstname != nil {
		s.PatientFirstname = *u.PatientFirstname
	}
	if u.PatientLastname != nil {
		s.PatientLastname = *u.PatientLastname
	}
	if u.QueueNumber != nil {
		s.QueueNumber = *u.QueueNumber
	}
	if u.RemainingQueue != nil {
		s.RemainingQueue = *u.RemainingQueue
	}
	if u.DeptName != nil {
		s.DeptName = *u.DeptName
	}
	if u.RoomNumber != nil {
		s.RoomNumber = *u.RoomNumber
	}
}

// Sent once on every channel open.
type TrackQueueRequest struct {
	Action  string  `json:"action"`
	QueueId QueueId `json:"queue_id"`
}

const TrackQueueAction = "trackqueue"

func NewTrackQueueRequest(queueId QueueId) *TrackQueueRequest {
	return &TrackQueueRequest{
		Action:  TrackQueueAction,
		QueueId: queueId,
	}
}
