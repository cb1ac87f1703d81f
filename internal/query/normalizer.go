// Package query normalizes heterogeneous troubleshooting inputs into a
// canonical text representation plus structured hints.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInputKind is returned when no input arm carries usable text.
var ErrInvalidInputKind = errors.New("invalid input kind: no usable text")

// Source identifies the modality an input came from.
type Source string

const (
	// SourceText is a plain text query.
	SourceText Source = "text"
	// SourceAudio carries a transcript from a speech-to-text collaborator.
	SourceAudio Source = "audio"
	// SourceImage carries OCR-extracted text from a vision collaborator.
	SourceImage Source = "image"
	// SourceLogs carries a parsed log summary.
	SourceLogs Source = "logs"
)

// Input is the discriminated union of accepted query modalities.
// Source selects the arm; Text is an optional free-text hint that is
// combined with the modality payload.
type Input struct {
	Source Source `json:"source"`

	// Text is the user's free-text query, or an accompanying hint when
	// another modality is used.
	Text string `json:"text,omitempty"`

	// Transcript is speech-to-text output (Source == SourceAudio).
	Transcript string `json:"transcript,omitempty"`

	// OCRText is image-extracted text (Source == SourceImage).
	OCRText string `json:"ocr_text,omitempty"`

	// LogSummary is a parsed log excerpt (Source == SourceLogs).
	LogSummary string `json:"log_summary,omitempty"`

	// DeviceCategory is an optional caller-supplied device hint. It takes
	// precedence over category inference.
	DeviceCategory string `json:"device_category,omitempty"`
}

// Hints are the structured signals extracted from a query.
type Hints struct {
	// DeviceCategory is the inferred or caller-supplied device category.
	DeviceCategory string `json:"device_category,omitempty"`

	// ErrorCodes is a sorted, deduplicated set of extracted error codes.
	ErrorCodes []string `json:"error_codes"`
}

// Fingerprint is the ephemeral canonical representation of one query.
// It is created per request and never persisted.
type Fingerprint struct {
	// CanonicalText is the lowercase, whitespace-collapsed query text.
	CanonicalText string

	// Hints carries the extracted device category and error codes.
	Hints Hints

	// Embedding is filled in by the caller once the indexer has run.
	Embedding []float32
}

// Normalize converts an Input into a Fingerprint.
//
// The modality payload is combined with the free-text hint, error codes are
// extracted from the raw text, and the result is lowercased with whitespace
// collapsed. Returns ErrInvalidInputKind if the selected arm carries no
// usable text after trimming.
func Normalize(in Input) (*Fingerprint, error) {
	raw, err := combine(in)
	if err != nil {
		return nil, err
	}

	canonical := Canonicalize(raw)
	if canonical == "" {
		return nil, fmt.Errorf("%w: source %q", ErrInvalidInputKind, in.Source)
	}

	hints := Hints{
		DeviceCategory: in.DeviceCategory,
		ErrorCodes:     ExtractErrorCodes(raw),
	}
	if hints.DeviceCategory == "" {
		hints.DeviceCategory = inferDeviceCategory(canonical)
	}

	return &Fingerprint{CanonicalText: canonical, Hints: hints}, nil
}

// combine joins the modality payload with the free-text hint.
func combine(in Input) (string, error) {
	switch in.Source {
	case SourceText, "":
		if strings.TrimSpace(in.Text) == "" {
			return "", fmt.Errorf("%w: empty text", ErrInvalidInputKind)
		}
		return in.Text, nil
	case SourceAudio:
		return joinNonEmpty(in.Text, in.Transcript)
	case SourceImage:
		return joinNonEmpty(in.Text, in.OCRText)
	case SourceLogs:
		return joinNonEmpty(in.Text, in.LogSummary)
	default:
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidInputKind, in.Source)
	}
}

func joinNonEmpty(hint, payload string) (string, error) {
	combined := strings.TrimSpace(strings.TrimSpace(hint) + " " + strings.TrimSpace(payload))
	if combined == "" {
		return "", ErrInvalidInputKind
	}
	return combined, nil
}

// Canonicalize lowercases text, collapses whitespace and trims it.
func Canonicalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
