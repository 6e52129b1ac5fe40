// =============================================================================
// EPCIS Converter - JSON Writer Module
// =============================================================================
//
// This module serializes a mapped EventCollection into a JSON document. The
// mapper already produces a JSON-shaped model, so the writer only controls
// layout (indentation, trailing newline) and where the bytes go.
//
// OUTPUT STRUCTURE:
//
//   {
//     "objectEvents": [ ... ],
//     "aggregationEvents": [ ... ],
//     "transactionEvents": [ ... ]
//   }
//
// =============================================================================

package jsonwriter

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/ginjaninja78/epcis-converter/internal/epcis"
)

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// Options controls the JSON layout.
type Options struct {
	// Pretty enables indentation.
	Pretty bool

	// Indent is the string used for one indentation level when Pretty is set.
	// Default: "  " (two spaces)
	Indent string
}

// DefaultOptions returns pretty-printed output with two-space indentation.
func DefaultOptions() Options {
	return Options{
		Pretty: true,
		Indent: "  ",
	}
}

// =============================================================================
// JSON GENERATION FUNCTIONS
// =============================================================================

// Marshal encodes the collection. A nil collection encodes as an empty one
// so the three lists are always present in the output.
func Marshal(c *epcis.EventCollection, opts Options) ([]byte, error) {
	if c == nil {
		c = epcis.NewEventCollection()
	}

	var (
		data []byte
		err  error
	)
	if opts.Pretty {
		data, err = json.MarshalIndent(c, "", indent(opts))
	} else {
		data, err = json.Marshal(c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}

	return append(data, '\n'), nil
}

// Write encodes the collection to w.
func Write(w io.Writer, c *epcis.EventCollection, opts Options) error {
	data, err := Marshal(c, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

func indent(opts Options) string {
	if opts.Indent == "" {
		return "  "
	}
	return opts.Indent
}
