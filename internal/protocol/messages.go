package protocol

// ClientMsg is the single client-to-server frame shape (spec §6): a
// candidate edit expressed relative to the client's believed document
// version.
type ClientMsg struct {
	Position    int     `json:"position"`
	InsertText  *string `json:"insert_text"`
	DeleteLen   int     `json:"delete_len"`
	BaseVersion int64   `json:"base_version"`
}

// Insert returns the text to insert, treating a nil InsertText as empty.
func (m *ClientMsg) Insert() string {
	if m.InsertText == nil {
		return ""
	}
	return *m.InsertText
}

// OperationView is the `<op>` shape referenced throughout spec §6.
type OperationView struct {
	ID          int64  `json:"id"`
	DocID       string `json:"doc_id"`
	UserID      string `json:"user_id"`
	BaseVersion int64  `json:"base_version"`
	Position    int    `json:"position"`
	InsertText  string `json:"insert_text"`
	DeleteLen   int    `json:"delete_len"`
	CreatedAt   string `json:"created_at"` // ISO-8601
}

// ServerFrame is every server-to-client frame. Only the fields relevant
// to Type are populated; the rest are omitted from the wire encoding.
type ServerFrame struct {
	Type           string         `json:"type"`
	Content        *string        `json:"content,omitempty"`
	Version        *int64         `json:"version,omitempty"`
	Op             *OperationView `json:"op,omitempty"`
	UpdatedVersion *int64         `json:"updated_version,omitempty"`
	Message        *string        `json:"message,omitempty"`
}

// NewInitFrame builds the first frame sent to a newly connected session.
func NewInitFrame(content string, version int64) *ServerFrame {
	return &ServerFrame{Type: TypeInit, Content: &content, Version: &version}
}

// NewAckFrame builds the frame returned to the sender of a committed edit.
func NewAckFrame(op *OperationView, updatedVersion int64) *ServerFrame {
	return &ServerFrame{Type: TypeAck, Op: op, UpdatedVersion: &updatedVersion}
}

// NewOpFrame builds the frame broadcast to every other subscriber of a committed edit.
func NewOpFrame(op *OperationView, updatedVersion int64) *ServerFrame {
	return &ServerFrame{Type: TypeOp, Op: op, UpdatedVersion: &updatedVersion}
}

// NewSyncNeededFrame builds the advisory frame sent when a sender's base_version was stale.
func NewSyncNeededFrame(content string, version int64) *ServerFrame {
	return &ServerFrame{Type: TypeSyncNeeded, Content: &content, Version: &version}
}

// NewErrorFrame builds a recoverable-error frame; the connection stays open.
func NewErrorFrame(message string) *ServerFrame {
	return &ServerFrame{Type: TypeError, Message: &message}
}
