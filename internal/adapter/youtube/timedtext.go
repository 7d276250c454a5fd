package youtube

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

// timedText covers both caption XML formats YouTube serves: the classic
// <transcript><text start dur> layout and format 3 (<timedtext><body><p t d>).
type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
	Body struct {
		Paragraphs []struct {
			T     string `xml:"t,attr"`
			D     string `xml:"d,attr"`
			Text  string `xml:",chardata"`
			Spans []struct {
				Text string `xml:",chardata"`
			} `xml:"s"`
		} `xml:"p"`
	} `xml:"body"`
}

func parseTimedText(data []byte) ([]domain.TranscriptSegment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var segments []domain.TranscriptSegment
	for _, l := range tt.Lines {
		text := cleanCaption(l.Text)
		if text == "" {
			continue
		}
		segments = append(segments, domain.TranscriptSegment{
			Text:     text,
			Start:    parseFloat(l.Start),
			Duration: parseFloat(l.Dur),
		})
	}

	for _, p := range tt.Body.Paragraphs {
		raw := p.Text
		if len(p.Spans) > 0 {
			parts := make([]string, len(p.Spans))
			for i, s := range p.Spans {
				parts[i] = s.Text
			}
			raw = strings.Join(parts, "")
		}
		text := cleanCaption(raw)
		if text == "" {
			continue
		}
		segments = append(segments, domain.TranscriptSegment{
			Text:     text,
			Start:    parseFloat(p.T) / 1000,
			Duration: parseFloat(p.D) / 1000,
		})
	}
	return segments, nil
}

// cleanCaption strips markup such as <font> or <i> and decodes entities
// left over after XML decoding (captions are often double-escaped).
func cleanCaption(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			sb.WriteByte(' ')
		}
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
