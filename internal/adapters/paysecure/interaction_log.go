package paysecure

import "github.com/google/uuid"

// InteractionRecord is one diagnostic record of an outbound gateway
// call, returned to the relying party alongside both success and error
// responses for support purposes. Request bodies are captured as sent;
// credentials travel in headers and are never recorded.
type InteractionRecord struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	RequestBody    *string `json:"request_body,omitempty"`
	ResponseStatus int     `json:"response_status"`
	ResponseBody   string  `json:"response_body"`
}

// InteractionRecorder accumulates interaction records over the life of
// one bridge request. Not safe for concurrent use; each inbound request
// owns its recorder.
type InteractionRecorder struct {
	records []*InteractionRecord
}

// NewInteractionRecorder creates an empty recorder
func NewInteractionRecorder() *InteractionRecorder {
	return &InteractionRecorder{}
}

// Span opens a named record and returns it for the caller to fill in.
func (r *InteractionRecorder) Span(name string) *InteractionRecord {
	record := &InteractionRecord{
		ID:   uuid.NewString(),
		Name: name,
	}
	r.records = append(r.records, record)
	return record
}

// Build returns the accumulated records in call order.
func (r *InteractionRecorder) Build() []*InteractionRecord {
	if r.records == nil {
		return []*InteractionRecord{}
	}
	return r.records
}

// SetRequest records the outbound call shape. A nil body marks a
// bodyless method such as GET.
func (s *InteractionRecord) SetRequest(method, url string, body []byte) {
	s.Method = method
	s.URL = url
	if body != nil {
		b := string(body)
		s.RequestBody = &b
	}
}

// SetResponse records the gateway's answer.
func (s *InteractionRecord) SetResponse(status int, body []byte) {
	s.ResponseStatus = status
	s.ResponseBody = string(body)
}
