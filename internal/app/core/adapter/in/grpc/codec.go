package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName content-subtype，client 需帶上 grpc.CallContentSubtype(CodecName)
const CodecName = "json"

// jsonCodec 讓 LedgerService 的訊息以 JSON 傳輸
// 同一個 server 上的 health / reflection 仍使用 proto codec
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
