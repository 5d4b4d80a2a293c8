// Package virtio implements the virtio-scsi wire format: LUN
// addressing, the request/response headers, and the descriptor-chain
// cursors that move bytes between a request and guest memory.
package virtio

import "github.com/coreos/go-vhost-scsi/internal/invariant"

// Lun is a parsed virtio-scsi LUN, addressed either through the
// well-known REPORT LUNS pattern or the flat-space single-level
// target/LUN encoding (virtio v1.1 §5.6.6.1).
type Lun struct {
	ReportLuns bool
	Target     byte
	Number     uint16 // meaningful only when !ReportLuns
}

var reportLunsPattern = [8]byte{0xC1, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// ParseLun decodes the 8-byte virtio-scsi LUN field. Any addressing
// method other than the well-known REPORT LUNS pattern or flat-space
// single-level addressing is a guest protocol violation this target
// never expects to see, and is treated as a programmer-visible
// invariant failure rather than a recoverable error.
func ParseLun(b [8]byte) Lun {
	if b == reportLunsPattern {
		return Lun{ReportLuns: true}
	}
	invariant.Hold(b[0] == 0x01, "unsupported virtio-scsi LUN addressing method 0x%x", b[0])
	invariant.Hold(b[2]&0b1100_0000 == 0b0100_0000, "flat-space LUN high bits not 01: 0x%x", b[2])
	number := uint16(b[2]&0b0011_1111)<<8 | uint16(b[3])
	return Lun{Target: b[1], Number: number}
}
