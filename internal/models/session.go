package models

// SessionState is the process-wide view of who is logged in. Instances are
// built only by the session manager; IsAuthenticated is true exactly when
// User is non-nil.
type SessionState struct {
	User            *User
	IsAuthenticated bool
	IsLoading       bool
}

// Clone returns a copy safe to hand to subscribers: mutating the returned
// state (or its user) never affects the manager's own state.
func (s SessionState) Clone() SessionState {
	out := s
	if s.User != nil {
		u := *s.User
		if s.User.LastLogin != nil {
			ll := *s.User.LastLogin
			u.LastLogin = &ll
		}
		out.User = &u
	}
	return out
}
