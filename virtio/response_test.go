package virtio

import (
	"bytes"
	"testing"
)

func TestResponseWrite(t *testing.T) {
	r := Response{
		Code:            ResponseOk,
		Status:          0x02,
		StatusQualifier: 0,
		Sense:           []byte{0x70, 0, 0x05},
		Residual:        4,
	}
	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x03, 0x00, 0x00, 0x00, // sense_len = 3, LE
		0x04, 0x00, 0x00, 0x00, // residual = 4, LE
		0x00, 0x00, // status qualifier
		0x02,       // status
		0x00,       // response code: Ok
		0x70, 0x00, 0x05, // sense
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %#v, want %#v", buf.Bytes(), want)
	}
}
