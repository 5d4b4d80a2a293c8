package modepage

import (
	"bytes"
	"testing"
)

func TestCaching(t *testing.T) {
	tests := []struct {
		desc string
		wce  bool
		want byte
	}{
		{desc: "write cache disabled", wce: false, want: 0x00},
		{desc: "write cache enabled", wce: true, want: 0x04},
	}
	for _, test := range tests {
		p := Caching(test.wce)
		if p.Code != 0x08 {
			t.Errorf("%s: got code 0x%x, want 0x08", test.desc, p.Code)
		}
		if p.PageLength() != 0x12 {
			t.Errorf("%s: got page length 0x%x, want 0x12", test.desc, p.PageLength())
		}
		if p.Body[2] != test.want {
			t.Errorf("%s: got wce byte 0x%x, want 0x%x", test.desc, p.Body[2], test.want)
		}
		var buf bytes.Buffer
		p.Write(&buf)
		if !bytes.Equal(buf.Bytes(), p.Body) {
			t.Errorf("%s: Write did not emit Body verbatim", test.desc)
		}
	}
}

func TestAllPageZeros(t *testing.T) {
	pages := AllPageZeros(false)
	if len(pages) != 1 || pages[0].Code != 0x08 {
		t.Errorf("got %#v, want a single Caching page", pages)
	}
}
