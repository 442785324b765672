package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is the most portable option: snapshot records are flat structs with
// explicit nulls, which JSON represents faithfully. Use it when snapshots
// must be readable by non-Go tooling without surprises.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly written snapshots.
//
// Existing snapshot files are self-describing (the codec name is in their
// header), so changing the default never breaks reads of old files.
var Default Codec = GoJSON{}
