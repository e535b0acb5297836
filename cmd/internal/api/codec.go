package api

import (
	"encoding/base64"
	"encoding/json"
)

// decodeInline unpacks a value the frontend ships inline on the query
// string: base64 over JSON. Malformed payloads are the caller's signal to
// degrade to a no-op, never to fail the whole call.
func decodeInline(s string, dst any) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
