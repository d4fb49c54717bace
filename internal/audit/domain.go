package audit

import "time"

// Actions recorded in the audit trail.
const (
	ActionLogin              = "login"
	ActionView               = "view"
	ActionUpdate             = "update"
	ActionViewStats          = "view_stats"
	ActionPasswordChanged    = "password_changed"
	ActionPasswordResetAdmin = "password_reset_by_admin"
	ActionUserStatusChanged  = "user_status_changed"
	ActionUserCreated        = "user_created"
)

// Tables referenced by audit entries.
const (
	TableVoters = "voters"
	TableUsers  = "users"
)

// Entry is one append-only audit record.
type Entry struct {
	UserID    int64          `json:"user_id"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name,omitempty"`
	RecordID  *int64         `json:"record_id,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	NewValue  map[string]any `json:"new_value,omitempty"`
	At        time.Time      `json:"at"`
}

// Row is a stored entry joined with the acting account.
type Row struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username,omitempty"`
	FullName  string         `json:"full_name,omitempty"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name,omitempty"`
	RecordID  *int64         `json:"record_id,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	NewValue  map[string]any `json:"new_value,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// PagingInfo carries simple offset pagination metadata.
type PagingInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasNext bool `json:"has_next"`
}

// Page is a window of audit rows.
type Page struct {
	Data   []Row      `json:"data"`
	Count  int        `json:"count"`
	Paging PagingInfo `json:"paging"`
}

// RecordID is a convenience for building entries.
func RecordID(id int64) *int64 {
	return &id
}
