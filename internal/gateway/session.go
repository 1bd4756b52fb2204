package gateway

import (
	"net/url"
)

// session holds the resumable identity of a gateway session.
type session struct {
	id        string
	seq       int64
	hasSeq    bool
	resumeURL string
	userID    string
	username  string
}

// canResume reports whether a RESUME should be sent instead of IDENTIFY.
func (s *session) canResume() bool {
	return s.id != "" && s.hasSeq
}

// observe records the sequence number carried by a server frame.
func (s *session) observe(seq *int64) {
	if seq == nil {
		return
	}
	s.seq = *seq
	s.hasSeq = true
}

// sequence returns the last sequence number, or nil before the first one.
func (s *session) sequence() *int64 {
	if !s.hasSeq {
		return nil
	}
	seq := s.seq
	return &seq
}

// establish records the identity confirmed by READY.
func (s *session) establish(ready ReadyData) {
	s.id = ready.SessionID
	s.userID = ready.User.ID
	s.username = ready.User.Username
	s.resumeURL = resumeEndpoint(ready.ResumeGatewayURL)
}

// invalidate drops the session id and sequence after a non-resumable
// INVALID_SESSION. The resume URL and user identity are kept.
func (s *session) invalidate() {
	s.id = ""
	s.seq = 0
	s.hasSeq = false
}

// reset clears everything.
func (s *session) reset() {
	*s = session{}
}

// endpoint returns the URL the next socket should open.
func (s *session) endpoint(fallback string) string {
	if s.resumeURL != "" {
		return s.resumeURL
	}
	return fallback
}

// resumeEndpoint appends the gateway version and encoding to a resume URL
// that does not carry a query of its own.
func resumeEndpoint(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery == "" {
		u.RawQuery = "v=10&encoding=json"
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
