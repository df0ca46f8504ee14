package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes one JSON document followed by a newline. Every command
// emits strict JSON on stdout; human-facing status lines go to stderr.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
