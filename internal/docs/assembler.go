package docs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/profile-twin/chatbot/internal/repository/objectstore"
)

// Kind tells the assembler how to turn a document's bytes into text
type Kind int

const (
	KindText Kind = iota
	KindJSON
	KindPDF
)

// Document is one entry in the profile manifest
type Document struct {
	Key   string
	Label string
	Kind  Kind
}

// Manifest is the fixed, ordered set of profile documents the assembler
// looks for on every request.
func Manifest() []Document {
	return []Document{
		{Key: "documents/communication_style.txt", Label: "Communication Style", Kind: KindText},
		{Key: "documents/professional_summary.txt", Label: "Professional Summary", Kind: KindText},
		{Key: "documents/structured_facts.json", Label: "Structured Facts", Kind: KindJSON},
		{Key: "documents/resume.pdf", Label: "Resume", Kind: KindPDF},
		{Key: "documents/cover_letter.pdf", Label: "Cover Letter", Kind: KindPDF},
		{Key: "documents/portfolio.pdf", Label: "Portfolio", Kind: KindPDF},
		{Key: "documents/publications.pdf", Label: "Publications", Kind: KindPDF},
		{Key: "documents/certifications.pdf", Label: "Certifications", Kind: KindPDF},
		{Key: "documents/projects.pdf", Label: "Projects", Kind: KindPDF},
		{Key: "documents/references.pdf", Label: "References", Kind: KindPDF},
	}
}

// Placeholder is the corpus used when no profile document can be loaded
const Placeholder = `Professional with experience in software development, cloud architecture, and AI/ML.
Skills include Go, AWS, Terraform, and modern DevOps practices.`

// Extractor turns raw PDF bytes into plain text
type Extractor interface {
	ExtractText(data []byte) (string, error)
}

// Assembler builds the model-facing profile corpus. Sources are tried in
// order for each document (remote store first, then local); a not-found
// skips to the next source silently, and any single document's failure is
// logged and isolated, never propagated. Nothing is cached: the corpus is
// re-derived on every call.
type Assembler struct {
	sources   []objectstore.Store
	extractor Extractor
}

// NewAssembler creates an assembler over ordered sources
func NewAssembler(sources []objectstore.Store, extractor Extractor) *Assembler {
	return &Assembler{sources: sources, extractor: extractor}
}

// Assemble returns the concatenated corpus, or Placeholder when no
// document loads.
func (a *Assembler) Assemble(ctx context.Context) string {
	var b strings.Builder

	for _, doc := range Manifest() {
		data, ok := a.fetch(ctx, doc)
		if !ok {
			continue
		}

		text, err := a.render(doc, data)
		if err != nil {
			log.Warn().Err(err).Str("document", doc.Key).Msg("failed to render document")
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		fmt.Fprintf(&b, "## %s\n%s\n\n", doc.Label, strings.TrimSpace(text))
	}

	if b.Len() == 0 {
		return Placeholder
	}
	return strings.TrimSpace(b.String())
}

// Available returns how many manifest documents are currently resolvable,
// for health reporting.
func (a *Assembler) Available(ctx context.Context) int {
	count := 0
	for _, doc := range Manifest() {
		for _, src := range a.sources {
			exists, err := src.Exists(ctx, doc.Key)
			if err != nil {
				log.Warn().Err(err).Str("document", doc.Key).Msg("failed to probe document")
				continue
			}
			if exists {
				count++
				break
			}
		}
	}
	return count
}

// SourceLabel identifies the primary document source
func (a *Assembler) SourceLabel() string {
	if len(a.sources) == 0 {
		return "none"
	}
	return a.sources[0].Label()
}

func (a *Assembler) fetch(ctx context.Context, doc Document) ([]byte, bool) {
	for _, src := range a.sources {
		data, err := src.Get(ctx, doc.Key)
		if err == nil {
			return data, true
		}
		if errors.Is(err, objectstore.ErrNotFound) {
			continue
		}
		log.Warn().Err(err).Str("document", doc.Key).Str("source", src.Label()).Msg("failed to load document")
	}
	return nil, false
}

func (a *Assembler) render(doc Document, data []byte) (string, error) {
	switch doc.Kind {
	case KindJSON:
		return formatJSON(data)
	case KindPDF:
		if a.extractor == nil {
			return "", fmt.Errorf("no PDF extractor configured")
		}
		return a.extractor.ExtractText(data)
	default:
		return string(data), nil
	}
}

// formatJSON re-serializes the structured-facts document as indented text
// so the model sees readable key/value pairs rather than a raw blob.
func formatJSON(data []byte) (string, error) {
	var facts map[string]any
	if err := json.Unmarshal(data, &facts); err != nil {
		return "", fmt.Errorf("invalid structured facts: %w", err)
	}

	out, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
