// Package draftrpc defines the connect RPC surface between the draft API and
// the orchestrator. Messages are plain Go structs carried by a JSON codec.
package draftrpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec marshals messages with encoding/json under the "json" codec name.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the connect option every client and handler in this package uses.
func WithJSON() connect.Option {
	return connect.WithCodec(Codec{})
}
