package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Codec serializes entries as JSON with an optional size bound applied in both directions.
type Codec struct {
	// MaxBytes limits the serialized entry size. Zero disables the limit.
	MaxBytes int
}

func (c Codec) Encode(entry *Entry) ([]byte, error) {
	if entry == nil {
		return nil, fmt.Errorf("cache: encode nil entry")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("cache: encode entry: %w", err)
	}
	if c.MaxBytes > 0 && len(raw) > c.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrEntryTooLarge, len(raw), c.MaxBytes)
	}
	return raw, nil
}

func (c Codec) Decode(raw []byte) (*Entry, bool, error) {
	if c.MaxBytes > 0 && len(raw) > c.MaxBytes {
		return nil, false, fmt.Errorf("%w: %d > %d", ErrEntryTooLarge, len(raw), c.MaxBytes)
	}
	return DecodeEntry(raw)
}

// DecodeEntry accepts whatever a backend handed back: an already parsed entry, a generic
// JSON object, serialized bytes, or a JSON document that was itself stored as a JSON string.
// Empty input is a miss.
func DecodeEntry(raw any) (*Entry, bool, error) {
	switch v := raw.(type) {
	case nil:
		return nil, false, nil
	case *Entry:
		if v == nil {
			return nil, false, nil
		}
		cpy := *v
		return &cpy, true, nil
	case Entry:
		return &v, true, nil
	case map[string]any:
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("cache: re-encode entry object: %w", err)
		}
		return DecodeEntry(buf)
	case string:
		return DecodeEntry([]byte(v))
	case []byte:
		data := bytes.TrimSpace(v)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return nil, false, nil
		}
		if data[0] == '"' {
			var inner string
			if err := json.Unmarshal(data, &inner); err != nil {
				return nil, false, fmt.Errorf("cache: decode quoted entry: %w", err)
			}
			if strings.HasPrefix(strings.TrimSpace(inner), `"`) {
				return nil, false, fmt.Errorf("cache: entry is quoted more than once")
			}
			return DecodeEntry(inner)
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, false, fmt.Errorf("cache: decode entry: %w", err)
		}
		if entry.Headers == nil {
			entry.Headers = map[string]string{}
		}
		return &entry, true, nil
	default:
		return nil, false, fmt.Errorf("cache: unsupported entry representation %T", raw)
	}
}
