package common

// FaceMatch is a single candidate returned by the face-search service.
type FaceMatch struct {
	Identity string  `json:"identity"`
	Score    float64 `json:"score"`
}

// MatchEvent is one decoded face-match evaluation from the video-analysis
// stream. An empty Matches list means an unidentified face was in frame.
type MatchEvent struct {
	StreamHandle string      `json:"streamHandle"`
	Timestamp    int64       `json:"timestampSeconds"`
	Matches      []FaceMatch `json:"matches"`
}

func (e *MatchEvent) BestMatch() (FaceMatch, bool) {
	if len(e.Matches) == 0 {
		return FaceMatch{}, false
	}

	return e.Matches[0], true
}
