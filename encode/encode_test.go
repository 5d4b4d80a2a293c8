package encode

import (
	"bytes"
	"testing"
)

func TestStdInquiryLength(t *testing.T) {
	buf := StdInquiry()
	if len(buf) != 96 {
		t.Fatalf("got length %d, want 96", len(buf))
	}
	if buf[0] != 0x00 {
		t.Errorf("got device type 0x%x, want 0x00", buf[0])
	}
	if buf[4] != 91 {
		t.Errorf("got additional length %d, want 91", buf[4])
	}
	if !bytes.Equal(buf[8:16], []byte("rust-vmm")) {
		t.Errorf("got vendor %q, want %q", buf[8:16], "rust-vmm")
	}
	if !bytes.Equal(buf[16:32], []byte("vhost-user-scsi ")) {
		t.Errorf("got product %q, want %q", buf[16:32], "vhost-user-scsi ")
	}
}

func TestReportLunsPayload(t *testing.T) {
	got := ReportLunsPayload([]uint16{0, 1, 2, 3, 4})
	want := []byte{
		0x00, 0x00, 0x00, 0x28,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestLogicalBlockProvisioningPayload(t *testing.T) {
	got := LogicalBlockProvisioningPayload()
	want := []byte{0x00, 0xE4, 0x02, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestOneCommandPayloadUnsupported(t *testing.T) {
	got := OneCommandPayload(false, nil)
	want := []byte{0x00, 0b0000_0001, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestAllCommandsPayloadLength(t *testing.T) {
	opcodes := []byte{0x00, 0x12}
	got := AllCommandsPayload(opcodes, false)
	if len(got) != 4+8*2 {
		t.Fatalf("got length %d, want %d", len(got), 4+16)
	}
	if got[3] != 16 {
		t.Errorf("got data length %d, want 16", got[3])
	}
}
