package retrieval

import "encoding/json"

const maxV2PayloadBytes = 12 * 1024

// CapResults serializes results under key "results" inside envelope and,
// if the encoded payload exceeds maxV2PayloadBytes, pops entries from
// the end until it fits (or until none remain), setting truncated=true.
// Worst case returns an empty results list with truncated=true.
func CapResults(envelope map[string]any, results []any) (cappedResults []any, truncated bool) {
	cappedResults = results
	for {
		envelope["results"] = cappedResults
		size, err := jsonSize(envelope)
		if err != nil || size <= maxV2PayloadBytes || len(cappedResults) == 0 {
			break
		}
		cappedResults = cappedResults[:len(cappedResults)-1]
		truncated = true
	}
	return cappedResults, truncated
}

func jsonSize(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
