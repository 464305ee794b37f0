package event

import "encoding/json"

// DecodePayload returns the payload as T. In-process publishers hand over
// the struct itself (or a pointer to it); payloads replayed from the dead
// letter file or the event log arrive as raw JSON or generic maps and are
// converted through JSON. A nil payload decodes to the zero value.
func DecodePayload[T any](input interface{}) (T, error) {
	var result T
	switch v := input.(type) {
	case nil:
		return result, nil
	case T:
		return v, nil
	case *T:
		if v == nil {
			return result, nil
		}
		return *v, nil
	case json.RawMessage:
		return result, json.Unmarshal(v, &result)
	}

	data, err := json.Marshal(input)
	if err != nil {
		return result, err
	}
	return result, json.Unmarshal(data, &result)
}
