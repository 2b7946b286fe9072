package chat

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// maxWineRefs caps how many distinct wines one exchange can reference.
const maxWineRefs = 10

// collectWineIDs harvests every "wine_id" value from tool payloads in
// document order, deduplicating across payloads. Harvesting stops once
// maxWineRefs distinct IDs are found.
//
// Payloads are re-encoded through JSON first: that is the shape the model
// saw, and scanning the token stream keeps the harvest order identical to
// the order the model read the values in.
func collectWineIDs(payloads []any) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID

	for _, payload := range payloads {
		if len(ids) >= maxWineRefs {
			break
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		ids = scanWineIDs(raw, seen, ids)
	}
	return ids
}

// scanWineIDs walks the JSON token stream and captures the string value
// following every "wine_id" object key.
func scanWineIDs(raw []byte, seen map[uuid.UUID]struct{}, ids []uuid.UUID) []uuid.UUID {
	dec := json.NewDecoder(bytes.NewReader(raw))
	depthKey := false
	for len(ids) < maxWineRefs {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		s, isString := tok.(string)
		if !isString {
			depthKey = false
			continue
		}
		if depthKey {
			depthKey = false
			if id, err := uuid.Parse(s); err == nil {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
			continue
		}
		// A string token is the key "wine_id" only when the decoder sits
		// inside an object and the next token is its value. More permissive
		// matching (a "wine_id" array element) is harmless: the value check
		// requires a parseable UUID anyway.
		if s == "wine_id" {
			depthKey = true
		}
	}
	return ids
}
