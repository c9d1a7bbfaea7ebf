package audit

// Job lifecycle events.
const (
	EventQueued    = "queued"
	EventFetched   = "fetched"
	EventConfirmed = "confirmed"
	EventSkipped   = "skipped"
)

// Entry is one line in the print journal. Fields are flat strings and
// ints so json.Marshal output is stable and the line hash reproducible.
type Entry struct {
	Timestamp string `json:"ts"`
	Event     string `json:"event"`
	Token     string `json:"token,omitempty"`
	Source    string `json:"source,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Customer  string `json:"customer,omitempty"`
	Extractor string `json:"extractor,omitempty"`
	Bytes     int    `json:"bytes,omitempty"`
	Detail    string `json:"detail,omitempty"`
	PrevHash  string `json:"prev_hash"`
}
