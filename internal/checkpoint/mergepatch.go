package checkpoint

import "encoding/json"

// jsonMergePatch applies patch over base as a shallow, single-level
// merge: every top-level key present in patch overwrites the
// corresponding key in base (or is added if absent). A patch key
// mapped to JSON null removes the key from base. Nested objects are
// replaced wholesale, not deep-merged — the checkpoint record only
// ever needs field-level patches (byteCursor, subPhase, skips, ...),
// never partial updates of a nested object.
func jsonMergePatch(base, patch []byte) ([]byte, error) {
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}
	if baseMap == nil {
		baseMap = map[string]json.RawMessage{}
	}

	var patchMap map[string]json.RawMessage
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return nil, err
	}

	for k, v := range patchMap {
		if string(v) == "null" {
			delete(baseMap, k)
			continue
		}
		baseMap[k] = v
	}

	return json.Marshal(baseMap)
}
