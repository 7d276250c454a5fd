package domain

import (
	"strings"
	"time"
)

// CaptionTrack describes one caption stream offered by the transcript provider.
type CaptionTrack struct {
	VideoID        string `json:"video_id"`
	LanguageCode   string `json:"language_code"`
	Language       string `json:"language"`
	IsGenerated    bool   `json:"is_generated"`    // machine-generated (ASR) captions
	IsTranslatable bool   `json:"is_translatable"` // provider can translate this track itself
	BaseURL        string `json:"-"`
}

// TranscriptSegment is one spoken unit as segmented by the source captions.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is the final text handed to the chunker along with the language
// the captions were originally in.
type Transcript struct {
	VideoID        string `json:"video_id"`
	Text           string `json:"text"`
	LanguageCode   string `json:"language_code"`
	SourceLanguage string `json:"source_language"`
}

// JoinSegments concatenates segment texts in order with single spaces.
func JoinSegments(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// VideoStatus reports which video, if any, is currently answerable.
type VideoStatus struct {
	Ready          bool      `json:"ready"`
	VideoID        string    `json:"video_id,omitempty"`
	LanguageCode   string    `json:"language_code,omitempty"`
	SourceLanguage string    `json:"source_language,omitempty"`
	Passages       int       `json:"passages"`
	IngestedAt     time.Time `json:"ingested_at,omitempty"`
}
