package events

// TableEvent é publicado no tópico "table_events" a cada mutação de mesa
type TableEvent struct {
	Type     string `json:"type"` // table_created | table_deleted | member_joined | member_left | admin_granted | admin_revoked
	TableID  string `json:"table_id"`
	UserID   string `json:"user_id,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`
	Name     string `json:"name,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
