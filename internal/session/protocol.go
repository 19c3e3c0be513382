package session

// Protocol carries the wire payload shapes for the session control protocol
// between a transport adapter (WebSocket, gRPC, whatever the deployment
// uses — out of scope for this module) and the session core. The core never
// speaks the transport itself; it only defines these struct shapes so a
// transport adapter can marshal/unmarshal them consistently.

// StartMessage is the inbound "start" control message.
type StartMessage struct {
	Action               string `json:"action"`
	SessionID            string `json:"session_id"`
	PresentationID       string `json:"presentation_id"`
	LectureID            int64  `json:"lecture_id"`
	LanguageCode         string `json:"language_code"`
	Model                string `json:"model"`
	EnableInterimResults bool   `json:"enable_interim_results"`
}

// StopMessage is the inbound "stop" control message.
type StopMessage struct {
	Action string `json:"action"`
}

// SessionStartedEvent echoes the accepted start parameters back to the
// transport adapter.
type SessionStartedEvent struct {
	Event                string `json:"event"`
	SessionID            string `json:"session_id"`
	PresentationID       string `json:"presentation_id"`
	LanguageCode         string `json:"language_code"`
	Model                string `json:"model"`
	EnableInterimResults bool   `json:"enable_interim_results"`
}

// ResultPayload mirrors [Result] for the wire, adding the flattened slide
// annotation fields used by the "transcription" event and the webhook POST.
type ResultPayload struct {
	Text           string  `json:"text"`
	IsFinal        bool    `json:"is_final"`
	Confidence     float64 `json:"confidence"`
	Timestamp      int64   `json:"timestamp"`
	SessionID      string  `json:"session_id"`
	PresentationID string  `json:"presentation_id"`
	Slide          *SlidePayload `json:"slide,omitempty"`
}

// SlidePayload is the slide annotation attached to a final [ResultPayload]
// when a match exists.
type SlidePayload struct {
	SlideID         string   `json:"slide_id"`
	Score           float64  `json:"score"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// TranscriptionEvent is the outbound "transcription" control message.
type TranscriptionEvent struct {
	Event  string        `json:"event"`
	Result ResultPayload `json:"result"`
}

// SummaryPayload mirrors [Summary] for the wire.
type SummaryPayload struct {
	SessionID       string  `json:"session_id"`
	PresentationID  string  `json:"presentation_id"`
	RenewalCount    int     `json:"renewal_count"`
	FramesSent      uint64  `json:"frames_sent"`
	BytesSent       uint64  `json:"bytes_sent"`
	FinalTranscript string  `json:"final_transcript"`
	AvgConfidence   float64 `json:"avg_confidence"`
}

// SessionClosedEvent is the outbound "session_closed" control message.
type SessionClosedEvent struct {
	Event     string         `json:"event"`
	SessionID string         `json:"session_id"`
	Summary   SummaryPayload `json:"summary"`
}

// ErrorEvent is the outbound "error" control message, used for asynchronous
// errors that cannot be returned from a synchronous public method.
type ErrorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// WebhookPayload is the body of the optional outgoing webhook POST fired on
// every final result.
type WebhookPayload struct {
	LectureID       int64   `json:"lecture_id"`
	SessionID       string  `json:"session_id"`
	PresentationID  string  `json:"presentation_id"`
	Text            string  `json:"text"`
	Confidence      float64 `json:"confidence"`
	Timestamp       int64   `json:"timestamp"`
	IsFinal         bool    `json:"is_final"`
	SlideNumber     string  `json:"slide_number,omitempty"`
	SlideScore      float64 `json:"slide_score,omitempty"`
	SlideConfidence float64 `json:"slide_confidence,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// ToResultPayload converts a [Result] to its wire shape.
func ToResultPayload(r Result) ResultPayload {
	p := ResultPayload{
		Text:       r.Text,
		IsFinal:    r.IsFinal,
		Confidence: r.Confidence,
		Timestamp:  r.Timestamp.UnixMilli(),
		SessionID:  string(r.SessionID),
	}
	if r.Slide != nil {
		p.Slide = &SlidePayload{
			SlideID:         r.Slide.SlideID,
			Score:           r.Slide.Score,
			Confidence:      r.Slide.Confidence,
			MatchedKeywords: r.Slide.MatchedKeywords,
		}
	}
	return p
}
