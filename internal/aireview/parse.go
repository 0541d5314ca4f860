package aireview

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/procurelane/evalengine/internal/domain"
)

// foldCaser is a package-level Unicode case folder used when matching
// oracle-reported subscore keys against canonical criterion names.
var foldCaser = cases.Fold()

// scoreEntry is one element of the oracle's restated JSON array. Pointer
// fields keep the JSON null distinction: a null subscore means the oracle
// declined to score that dimension, which is different from zero.
type scoreEntry struct {
	SubmissionID string              `json:"submission_id"`
	Subscores    map[string]*float64 `json:"subscores"`
	FinalScore   *float64            `json:"final_score"`
}

// extractJSONArray pulls a JSON array out of a response that may wrap it in
// markdown code fences or surround it with prose. It returns the empty
// string when no array can be located.
func extractJSONArray(response string) string {
	response = strings.TrimSpace(response)

	// Prefer an explicit ```json fence when present.
	if idx := strings.Index(response, "```json"); idx != -1 {
		body := response[idx+len("```json"):]
		if end := strings.Index(body, "```"); end != -1 {
			return strings.TrimSpace(body[:end])
		}
	}

	// Generic fence: skip the optional language identifier line.
	if idx := strings.Index(response, "```"); idx != -1 {
		body := response[idx+3:]
		if nl := strings.Index(body, "\n"); nl != -1 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			candidate := strings.TrimSpace(body[:end])
			if strings.HasPrefix(candidate, "[") {
				return candidate
			}
		}
	}

	// Bare array: find the matching close bracket, tracking strings and
	// escapes so brackets inside reasoning text do not confuse the scan.
	start := strings.Index(response, "[")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}

// parseScoreEntries decodes the oracle's restated response. Any failure here
// is fatal for the whole review request: a malformed response must surface
// as an explicit error, never as a partially attached score set.
func parseScoreEntries(response string) ([]scoreEntry, error) {
	raw := extractJSONArray(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array found in oracle response (%d chars)", len(response))
	}

	var entries []scoreEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decoding oracle score array: %w", err)
	}
	return entries, nil
}

// normalizeSubscores maps oracle-reported subscore keys onto canonical
// criterion names. Keys are matched case-insensitively first, then by
// Levenshtein similarity against the folded names; a key that matches no
// criterion above the threshold is dropped rather than guessed at.
func normalizeSubscores(criteria []domain.Criterion, subscores map[string]*float64, threshold float64) map[string]*float64 {
	if len(subscores) == 0 {
		return nil
	}

	folded := make(map[string]string, len(criteria))
	for _, c := range criteria {
		folded[foldCaser.String(c.Name)] = c.Name
	}

	normalized := make(map[string]*float64, len(subscores))
	for key, value := range subscores {
		foldedKey := foldCaser.String(key)
		if canonical, ok := folded[foldedKey]; ok {
			normalized[canonical] = value
			continue
		}

		bestName := ""
		bestSimilarity := 0.0
		for foldedName, canonical := range folded {
			similarity := stringSimilarity(foldedKey, foldedName)
			if similarity > bestSimilarity {
				bestSimilarity = similarity
				bestName = canonical
			}
		}
		if bestName != "" && bestSimilarity >= threshold {
			normalized[bestName] = value
		}
	}

	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

// stringSimilarity converts Levenshtein edit distance into a 0.0-1.0
// similarity score relative to the longer string.
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(longest)
}

// mergeByID aligns parsed entries back to the submissions they score,
// keyed by the echoed submission id. A submission absent from the response
// gets an explicit nil sentinel; entries naming unknown submissions are
// reported so the caller can log the discrepancy instead of guessing.
func mergeByID(criteria []domain.Criterion, submissions []domain.Submission, entries []scoreEntry, threshold float64) (scores []*domain.AiScore, unknown []string) {
	byID := make(map[string]scoreEntry, len(entries))
	known := make(map[string]struct{}, len(submissions))
	for _, sub := range submissions {
		known[sub.ID] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := known[e.SubmissionID]; !ok {
			unknown = append(unknown, e.SubmissionID)
			continue
		}
		byID[e.SubmissionID] = e
	}

	scores = make([]*domain.AiScore, len(submissions))
	for i, sub := range submissions {
		entry, ok := byID[sub.ID]
		if !ok {
			continue // missing sentinel: nil, never a fabricated score
		}
		scores[i] = &domain.AiScore{
			Subscores:  normalizeSubscores(criteria, entry.Subscores, threshold),
			FinalScore: entry.FinalScore,
		}
	}
	return scores, unknown
}
