package common

// Reserved technician identity. Logins with this username are verified
// against the global technician credential instead of a per-user one.
const TechnicianUsername = "technician"

// Settings keys used by the session manager. The per-user credential key is
// SettingUserPasswordPrefix + user id.
const (
	SettingTechnicianPassword = "technician_password"
	SettingUserPasswordPrefix = "user_password_"
	SettingSessionUser        = "session_user"
	SettingSessionSignKey     = "session_sign_key"
)

// SyncTagAuditData identifies the deferred "flush pending audit mutations"
// task. The connectivity signal carries a tag that is compared against it.
const SyncTagAuditData = "sync-audit-data"
