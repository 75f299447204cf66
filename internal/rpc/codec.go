// Package rpc exposes the bill lifecycle operations over Connect. The
// service speaks plain JSON messages rather than protobuf: the only
// consumer is the first-party mobile client, so the request and response
// shapes live as Go structs in this package and a small JSON codec
// plugs them into Connect's handler machinery.
package rpc

import "encoding/json"

// jsonCodec marshals RPC messages with encoding/json. Registering it as
// the handler codec makes Connect accept application/json request bodies
// for plain Go struct message types.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
