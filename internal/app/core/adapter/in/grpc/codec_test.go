package grpc

import (
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatal("json codec not registered")
	}

	data, err := c.Marshal(&GetBalanceRequest{AccountID: 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"account_id":3}` {
		t.Errorf("marshal: got %s", data)
	}

	var out GetBalanceRequest
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.AccountID != 3 {
		t.Errorf("unmarshal: got %+v", out)
	}
}
