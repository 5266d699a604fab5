package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// speakerPattern recognizes one style of speaker header line.
type speakerPattern struct {
	re      *regexp.Regexp
	speaker int // capture group index for the name, 0 for fixed names
	role    int // capture group index for the role, 0 when absent
}

var speakerRoles = `CEO|CFO|COO|CTO|CMO|President|Chairman|Analyst|Director|VP|Vice President|Executive`

// Ordered from most to least specific; the bare-name pattern must come last
// or it would shadow the role-carrying forms.
var speakerPatterns = []speakerPattern{
	{re: regexp.MustCompile(`^([A-Z][A-Za-z\s\.]+?)(?:\s*[-–—]\s*|\s*,\s*)(` + speakerRoles + `)[:\s]*$`), speaker: 1, role: 2},
	{re: regexp.MustCompile(`^([A-Z][A-Za-z\s\.]+?)\s*\((` + speakerRoles + `)\)[:\s]*$`), speaker: 1, role: 2},
	{re: regexp.MustCompile(`^Operator[:\s]*$`)},
	{re: regexp.MustCompile(`^([A-Z][A-Za-z\s\.]+?):\s*$`), speaker: 1},
}

var transcriptDateRe = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`)

// TranscriptParser handles earnings-call transcripts published as HTML. The
// HTML is converted to markdown text, then segmented into speaker turns.
type TranscriptParser struct{}

// NewTranscriptParser creates a new TranscriptParser.
func NewTranscriptParser() *TranscriptParser {
	return &TranscriptParser{}
}

// Supports requires an HTML extension plus a transcript-flavored filename so
// arbitrary HTML pages are not mistaken for call transcripts.
func (p *TranscriptParser) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".html" && ext != ".htm" {
		return false
	}
	lower := strings.ToLower(filename)
	for _, keyword := range []string{"transcript", "earnings", "call", "conference"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Parse converts the HTML body to text and segments it by speaker turn.
// Lines before the first recognized speaker header form an unattributed
// section so no text is lost.
func (p *TranscriptParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	text, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to convert transcript HTML '%s': %w", filename, err)
	}

	sections := p.parseSections(text)

	metadata := map[string]interface{}{
		schema.MetadataKeyFileName: filepath.Base(filename),
		"type":                     "earnings_call_transcript",
		"section_count":            len(sections),
		"has_qa_section":           hasQASection(sections),
	}
	if m := transcriptDateRe.FindString(text); m != "" {
		metadata["date"] = m
	}

	return &schema.ParsedDocument{
		Text:     text,
		Metadata: metadata,
		Sections: sections,
	}, nil
}

// parseSections splits transcript text into speaker-turn sections.
func (p *TranscriptParser) parseSections(text string) []schema.Section {
	var sections []schema.Section
	current := schema.Section{Heading: "Unattributed"}

	flush := func() {
		if len(current.Content) > 0 {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*_#"))
		if line == "" {
			continue
		}
		if speaker, role, ok := matchSpeaker(line); ok {
			flush()
			current = schema.Section{Heading: speaker, SpeakerRole: role}
			continue
		}
		current.Content = append(current.Content, line)
	}
	flush()

	return sections
}

// matchSpeaker tries each pattern in order against a candidate header line.
func matchSpeaker(line string) (speaker, role string, ok bool) {
	for _, pat := range speakerPatterns {
		m := pat.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if pat.speaker == 0 {
			return "Operator", "Operator", true
		}
		speaker = strings.TrimSpace(m[pat.speaker])
		if pat.role != 0 {
			role = m[pat.role]
		}
		return speaker, role, true
	}
	return "", "", false
}

func hasQASection(sections []schema.Section) bool {
	for _, s := range sections {
		lower := strings.ToLower(s.Heading + " " + s.Text())
		if strings.Contains(lower, "question") && strings.Contains(lower, "answer") {
			return true
		}
	}
	return false
}

var _ interfaces.DocumentParser = (*TranscriptParser)(nil)
