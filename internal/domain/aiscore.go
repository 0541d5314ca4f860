package domain

// AiScore is the advisory assessment the scoring oracle produced for one
// submission. Subscores are keyed by canonical criterion name; a nil value
// means the oracle declined to score that dimension. A nil FinalScore means
// no overall figure was returned.
//
// AiScore is ephemeral: it is recomputed on every pipeline invocation and is
// never merged into the authoritative evaluator-based ranking.
type AiScore struct {
	Subscores  map[string]*float64 `json:"subscores"`
	FinalScore *float64            `json:"final_score"`
}
