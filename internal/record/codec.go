package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const nextIDKey = "next_id"

// Encode renders c as the persisted document for schema s:
//
//	{"<s.Name>": [records...], "next_id": n}
//
// indented by two spaces and terminated by a newline.
func Encode(s Schema, c *Collection) ([]byte, error) {
	recs := make([]Record, len(c.Records))
	for i, r := range c.Records {
		r.Fields = r.Fields.normalized()
		recs[i] = r
	}
	body, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("record: encode %s records: %w", s.Name, err)
	}
	key, err := json.Marshal(s.Name)
	if err != nil {
		return nil, fmt.Errorf("record: encode %s key: %w", s.Name, err)
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	compact.Write(key)
	compact.WriteByte(':')
	compact.Write(body)
	compact.WriteString(`,"` + nextIDKey + `":`)
	compact.WriteString(strconv.FormatInt(c.NextID, 10))
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("record: indent %s document: %w", s.Name, err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Decode parses a persisted document for schema s. A missing collection key
// yields no records; a missing or stale next_id is raised above the largest
// stored id so that ids are never reissued.
func Decode(s Schema, data []byte) (*Collection, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Collection: s.Name, Err: err}
	}

	c := NewCollection()
	if body, ok := raw[s.Name]; ok {
		var recs []Record
		if err := json.Unmarshal(body, &recs); err != nil {
			return nil, &DecodeError{Collection: s.Name, Err: err}
		}
		if recs != nil {
			c.Records = recs
		}
	}
	if body, ok := raw[nextIDKey]; ok {
		if err := json.Unmarshal(body, &c.NextID); err != nil {
			return nil, &DecodeError{Collection: s.Name, Err: err}
		}
	}

	seen := make(map[int64]struct{}, len(c.Records))
	var maxID int64
	for i := range c.Records {
		r := &c.Records[i]
		if _, dup := seen[r.ID]; dup {
			return nil, &DecodeError{Collection: s.Name, Err: fmt.Errorf("duplicate id %d", r.ID)}
		}
		seen[r.ID] = struct{}{}
		if r.Tags == nil {
			r.Tags = []string{}
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	if c.NextID <= maxID {
		c.NextID = maxID + 1
	}
	if c.NextID < 1 {
		c.NextID = 1
	}
	return c, nil
}
