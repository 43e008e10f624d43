// jsonstream.go decodes the Go toolchain's line-delimited (but not
// newline-delimited: concatenated, with arbitrary whitespace between
// objects) JSON object streams, the same shape `go mod download -json`
// and `go list -json` emit. It never buffers the whole stream into one
// string, per the spec's JSON-stream protocol notes; cyclonedx-gomod's
// parseModules shows the same pattern using one shared json.Decoder.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// decodeJSONStream decodes a stream of concatenated JSON objects,
// calling into for each one. Whitespace between objects is accepted; a
// truncated final object is a fatal error.
func decodeJSONStream(r io.Reader, into func(json.RawMessage) error) error {
	dec := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode JSON stream: %w", err)
		}
		if err := into(raw); err != nil {
			return err
		}
	}
}
