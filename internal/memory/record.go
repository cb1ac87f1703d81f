// Package memory implements the problem memory store: a persistent
// collection of solved problems searched by semantic similarity and
// updated from matches and user feedback.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smartfix-ai/braincore/internal/vectorstore"
)

// Common errors for memory operations.
var (
	ErrRecordNotFound    = errors.New("problem record not found")
	ErrInvalidRecord     = errors.New("invalid problem record")
	ErrEmptyProblemText  = errors.New("problem text cannot be empty")
	ErrInvalidConfidence = errors.New("confidence must be between 0.0 and 1.0")
	ErrInvalidSteps      = errors.New("step numbers must form a contiguous 1-based sequence")
	ErrStoreUnavailable  = vectorstore.ErrStoreUnavailable
)

// SolutionStep is one ordered instruction in a solution.
type SolutionStep struct {
	Number      int    `json:"step_number"`
	Description string `json:"description"`
	MediaRef    string `json:"media_ref,omitempty"`
}

// ProblemRecord is a solved problem stored in memory.
//
// Confidence is provenance-weighted and nudged toward observed similarity
// on every match. SuccessRate is a running average fed by user feedback.
// Both stay in [0,1] for the record's whole lifecycle; UsageCount only
// grows. The store owns records exclusively: callers receive copies and
// mutate only through store operations.
type ProblemRecord struct {
	ID             string         `json:"id"`
	ProblemText    string         `json:"problem_text"`
	ProblemType    string         `json:"problem_type"`
	DeviceCategory string         `json:"device_category,omitempty"`
	ErrorCodes     []string       `json:"error_codes,omitempty"`
	Steps          []SolutionStep `json:"solution_steps"`
	Confidence     float64        `json:"confidence_score"`
	SuccessRate    float64        `json:"success_rate"`
	UsageCount     int            `json:"usage_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Validate checks the record invariants.
func (r *ProblemRecord) Validate() error {
	if r.ProblemText == "" {
		return ErrEmptyProblemText
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrInvalidConfidence
	}
	if r.SuccessRate < 0 || r.SuccessRate > 1 {
		return fmt.Errorf("%w: success rate %v out of range", ErrInvalidRecord, r.SuccessRate)
	}
	if r.UsageCount < 0 {
		return fmt.Errorf("%w: negative usage count", ErrInvalidRecord)
	}
	for i, step := range r.Steps {
		if step.Number != i+1 {
			return fmt.Errorf("%w: step %d numbered %d", ErrInvalidSteps, i+1, step.Number)
		}
		if step.Description == "" {
			return fmt.Errorf("%w: step %d has no description", ErrInvalidRecord, i+1)
		}
	}
	return nil
}

// Match pairs a record with its similarity to a query embedding.
type Match struct {
	Record     ProblemRecord
	Similarity float64
}

// Metadata keys for the backing vector store.
const (
	metaProblemType    = "problem_type"
	metaDeviceCategory = "device_category"
	metaErrorCodes     = "error_codes"
	metaSteps          = "solution_steps"
	metaConfidence     = "confidence_score"
	metaSuccessRate    = "success_rate"
	metaUsageCount     = "usage_count"
	metaCreatedAt      = "created_at"
	metaUpdatedAt      = "updated_at"
)

// encodeRecord converts a record and its embedding into a store document.
// Structured fields travel as JSON in string metadata.
func encodeRecord(r *ProblemRecord, embedding []float32) (vectorstore.Document, error) {
	codes, err := json.Marshal(r.ErrorCodes)
	if err != nil {
		return vectorstore.Document{}, fmt.Errorf("encoding error codes: %w", err)
	}
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return vectorstore.Document{}, fmt.Errorf("encoding steps: %w", err)
	}

	return vectorstore.Document{
		ID:        r.ID,
		Content:   r.ProblemText,
		Embedding: embedding,
		Metadata: map[string]string{
			metaProblemType:    r.ProblemType,
			metaDeviceCategory: r.DeviceCategory,
			metaErrorCodes:     string(codes),
			metaSteps:          string(steps),
			metaConfidence:     strconv.FormatFloat(r.Confidence, 'f', -1, 64),
			metaSuccessRate:    strconv.FormatFloat(r.SuccessRate, 'f', -1, 64),
			metaUsageCount:     strconv.Itoa(r.UsageCount),
			metaCreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339Nano),
			metaUpdatedAt:      r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// decodeRecord rebuilds a record from a store document.
func decodeRecord(doc vectorstore.Document) (ProblemRecord, error) {
	r := ProblemRecord{
		ID:             doc.ID,
		ProblemText:    doc.Content,
		ProblemType:    doc.Metadata[metaProblemType],
		DeviceCategory: doc.Metadata[metaDeviceCategory],
	}

	if raw := doc.Metadata[metaErrorCodes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.ErrorCodes); err != nil {
			return r, fmt.Errorf("%w: decoding error codes for %s: %v", ErrInvalidRecord, doc.ID, err)
		}
	}
	if raw := doc.Metadata[metaSteps]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Steps); err != nil {
			return r, fmt.Errorf("%w: decoding steps for %s: %v", ErrInvalidRecord, doc.ID, err)
		}
	}

	var err error
	if r.Confidence, err = strconv.ParseFloat(doc.Metadata[metaConfidence], 64); err != nil {
		return r, fmt.Errorf("%w: decoding confidence for %s: %v", ErrInvalidRecord, doc.ID, err)
	}
	if r.SuccessRate, err = strconv.ParseFloat(doc.Metadata[metaSuccessRate], 64); err != nil {
		return r, fmt.Errorf("%w: decoding success rate for %s: %v", ErrInvalidRecord, doc.ID, err)
	}
	if r.UsageCount, err = strconv.Atoi(doc.Metadata[metaUsageCount]); err != nil {
		return r, fmt.Errorf("%w: decoding usage count for %s: %v", ErrInvalidRecord, doc.ID, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, doc.Metadata[metaCreatedAt]); err != nil {
		return r, fmt.Errorf("%w: decoding created_at for %s: %v", ErrInvalidRecord, doc.ID, err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, doc.Metadata[metaUpdatedAt]); err != nil {
		return r, fmt.Errorf("%w: decoding updated_at for %s: %v", ErrInvalidRecord, doc.ID, err)
	}
	return r, nil
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
