package parsers

import (
	"context"
	"errors"
	"testing"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

type stubParser struct {
	ext    string
	called bool
}

func (s *stubParser) Supports(filename string) bool {
	return len(filename) >= len(s.ext) && filename[len(filename)-len(s.ext):] == s.ext
}

func (s *stubParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	s.called = true
	return &schema.ParsedDocument{Text: "from " + s.ext}, nil
}

func TestRegistryDispatchOrder(t *testing.T) {
	first := &stubParser{ext: ".txt"}
	second := &stubParser{ext: ".txt"}
	r := NewRegistryWithParsers(logger.New("test"), first, second)

	doc, err := r.Parse(context.Background(), []byte("hello"), "notes.txt")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !first.called {
		t.Error("first matching parser was not used")
	}
	if second.called {
		t.Error("later parser was called despite earlier match")
	}
	if doc.Text != "from .txt" {
		t.Errorf("unexpected document text %q", doc.Text)
	}
}

func TestRegistryUnsupportedFormat(t *testing.T) {
	r := NewRegistry(logger.New("test"))

	doc, err := r.Parse(context.Background(), []byte("data"), "payload.xyz")
	if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if doc != nil {
		t.Error("expected no document for unsupported format")
	}
}

func TestRegistryRejectsLegacyOfficeFormats(t *testing.T) {
	r := NewRegistry(logger.New("test"))

	// Only the OOXML variants are readable; the old binary containers must be
	// refused rather than claimed and failed mid-parse.
	for _, filename := range []string{"report.doc", "deck.ppt"} {
		if _, err := r.Parse(context.Background(), []byte("data"), filename); !errors.Is(err, apperrors.ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", filename, err)
		}
	}
	for _, ext := range r.SupportedExtensions() {
		if ext == ".doc" || ext == ".ppt" {
			t.Errorf("legacy extension %s still advertised", ext)
		}
	}
}

func TestRegistryDefaultExtensionRouting(t *testing.T) {
	r := NewRegistry(logger.New("test"))

	cases := []struct {
		filename  string
		supported bool
	}{
		{"report.pdf", true},
		{"deck.pptx", true},
		{"memo.docx", true},
		{"metrics.xlsx", true},
		{"q2_earnings_transcript.html", true},
		{"readme.md", true},
		{"notes.TXT", true},
		{"landing_page.html", false}, // html without transcript keywords
		{"archive.zip", false},
	}

	for _, tc := range cases {
		matched := false
		for _, p := range r.parsers {
			if p.Supports(tc.filename) {
				matched = true
				break
			}
		}
		if matched != tc.supported {
			t.Errorf("%s: supported = %v, want %v", tc.filename, matched, tc.supported)
		}
	}
}

func TestTextParserMarkdownSections(t *testing.T) {
	p := NewTextParser()
	md := "intro line\n# Strategy\nexpand into Europe\nhire sales\n## Details\nbudget TBD\n"

	doc, err := p.Parse(context.Background(), []byte(md), "plan.md")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Text == "" {
		t.Fatal("expected full text to be preserved")
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "" {
		t.Errorf("preamble section should have no heading, got %q", doc.Sections[0].Heading)
	}
	if doc.Sections[1].Heading != "Strategy" || doc.Sections[1].HeadingLevel != 1 {
		t.Errorf("unexpected section 1: %+v", doc.Sections[1])
	}
	if doc.Sections[2].Heading != "Details" || doc.Sections[2].HeadingLevel != 2 {
		t.Errorf("unexpected section 2: %+v", doc.Sections[2])
	}
}

func TestTextParserPlainTxtHasNoSections(t *testing.T) {
	p := NewTextParser()
	doc, err := p.Parse(context.Background(), []byte("# looks like a heading\nbody"), "notes.txt")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Sections) != 0 {
		t.Errorf("txt files should not get markdown sections, got %d", len(doc.Sections))
	}
}

func TestDecodeText(t *testing.T) {
	t.Run("utf8", func(t *testing.T) {
		s, err := decodeText([]byte("héllo"))
		if err != nil || s != "héllo" {
			t.Fatalf("got %q, %v", s, err)
		}
	})

	t.Run("utf16le bom", func(t *testing.T) {
		raw := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
		s, err := decodeText(raw)
		if err != nil || s != "hi" {
			t.Fatalf("got %q, %v", s, err)
		}
	})

	t.Run("latin1", func(t *testing.T) {
		s, err := decodeText([]byte{'c', 0xE9, 'd'}) // é in Latin-1
		if err != nil || s != "céd" {
			t.Fatalf("got %q, %v", s, err)
		}
	})

	t.Run("binary", func(t *testing.T) {
		_, err := decodeText([]byte{0x89, 'P', 'N', 'G', 0x00, 0x01})
		if !errors.Is(err, apperrors.ErrDecode) {
			t.Fatalf("expected ErrDecode, got %v", err)
		}
	})
}

func TestTranscriptSpeakerMatching(t *testing.T) {
	cases := []struct {
		line    string
		speaker string
		role    string
		ok      bool
	}{
		{"Jane Smith - CEO:", "Jane Smith", "CEO", true},
		{"Jane Smith – CFO:", "Jane Smith", "CFO", true},
		{"John Doe (Analyst):", "John Doe", "Analyst", true},
		{"Operator:", "Operator", "Operator", true},
		{"Mary Jones:", "Mary Jones", "", true},
		{"Revenue grew 20% this quarter.", "", "", false},
		{"the lowercase line:", "", "", false},
	}

	for _, tc := range cases {
		speaker, role, ok := matchSpeaker(tc.line)
		if ok != tc.ok || speaker != tc.speaker || role != tc.role {
			t.Errorf("matchSpeaker(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.line, speaker, role, ok, tc.speaker, tc.role, tc.ok)
		}
	}
}

func TestTranscriptParse(t *testing.T) {
	html := `<html><body>
<p>Q2 2024 Earnings Call, July 25, 2024</p>
<p><strong>Operator:</strong></p>
<p>Welcome to the call.</p>
<p><strong>Jane Smith - CEO:</strong></p>
<p>We launched our new AI platform this quarter.</p>
<p>Question and Answer Session</p>
</body></html>`

	p := NewTranscriptParser()
	doc, err := p.Parse(context.Background(), []byte(html), "acme_q2_transcript.html")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if doc.Metadata["date"] != "July 25, 2024" {
		t.Errorf("date = %v, want July 25, 2024", doc.Metadata["date"])
	}
	if doc.Metadata["type"] != "earnings_call_transcript" {
		t.Errorf("type = %v", doc.Metadata["type"])
	}

	var headings []string
	for _, s := range doc.Sections {
		headings = append(headings, s.Heading)
	}
	wantOrder := []string{"Unattributed", "Operator", "Jane Smith"}
	if len(headings) < len(wantOrder) {
		t.Fatalf("sections %v, want at least %v", headings, wantOrder)
	}
	for i, h := range wantOrder {
		if headings[i] != h {
			t.Errorf("section %d heading = %q, want %q", i, headings[i], h)
		}
	}
	if doc.Sections[2].SpeakerRole != "CEO" {
		t.Errorf("speaker role = %q, want CEO", doc.Sections[2].SpeakerRole)
	}
}

func TestTranscriptSupportsRequiresKeyword(t *testing.T) {
	p := NewTranscriptParser()
	if p.Supports("random_page.html") {
		t.Error("html without a transcript keyword should not be supported")
	}
	if !p.Supports("2024_earnings_call.htm") {
		t.Error("earnings call html should be supported")
	}
	if p.Supports("transcript.pdf") {
		t.Error("non-html extension should not be supported")
	}
}
