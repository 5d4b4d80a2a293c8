package main

import (
	"net"
	"os"
	"testing"

	"github.com/coreos/go-vhost-scsi/target"
	"github.com/coreos/go-vhost-scsi/virtio"
)

func newTestTarget(t *testing.T) *target.Target {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "image")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(make([]byte, 512)); err != nil {
		t.Fatal(err)
	}
	dev := target.NewAnonymousBlockDevice(f, false, false)
	return target.New([]target.LogicalUnit{dev})
}

func requestHeader(cdb []byte) []byte {
	buf := make([]byte, virtio.HeaderSize)
	buf[0] = 0x01 // flat-space LUN addressing
	buf[2] = 0b0100_0000
	copy(buf[19:], cdb)
	return buf
}

func TestServeConnAnswersTestUnitReady(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	tgt := newTestTarget(t)
	done := make(chan error, 1)
	go func() { done <- serveConn(serverConn, tgt) }()

	req := requestHeader([]byte{0x00, 0, 0, 0, 0, 0})
	go clientConn.Write(req)

	resp := make([]byte, 12)
	n, err := clientConn.Read(resp)
	if err != nil {
		t.Fatal(err)
	}
	if n < 11 {
		t.Fatalf("got %d response bytes, want at least 11", n)
	}
	if resp[10] != target.StatusGood {
		t.Errorf("got status %d, want good", resp[10])
	}

	clientConn.Close()
	<-done
}
