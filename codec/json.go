package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is stable, portable, and sufficient for the small metadata payloads
// persisted here (snapshot configs, catalog entries). Callers that need a
// custom encoding implement Codec and pass it where supported; persisted
// files always record the codec name so readers can validate on load.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly-created artifacts. Existing files are
// self-describing and are opened by selecting their recorded codec by name.
var Default Codec = JSON{}
