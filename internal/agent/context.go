package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ContextMap decodes a JSON object while preserving the order its keys were
// written in. encoding/json's map type would lose that order, and the
// rendered preamble must keep the entries exactly as the caller supplied
// them.
type ContextMap []ContextEntry

func (m *ContextMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("agent: decode context: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("agent: context must be a JSON object")
	}

	var entries ContextMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("agent: decode context key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("agent: context keys must be strings")
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("agent: decode context value: %w", err)
		}
		value, err := renderPrimitive(key, valTok)
		if err != nil {
			return err
		}
		entries = append(entries, ContextEntry{Key: key, Value: value})
	}

	*m = entries
	return nil
}

func (m ContextMap) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}
	buf.WriteByte('{')
	for i, entry := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func renderPrimitive(key string, tok json.Token) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("agent: context value for %q must be a primitive", key)
	}
}
