// Package encode builds the byte payloads for standard INQUIRY, VPD
// pages, REPORT LUNS, and REPORT SUPPORTED OPERATION CODES. It only
// knows how to encode; deciding which payload a request gets is
// target's job.
package encode

import (
	"encoding/binary"

	"github.com/coreos/go-vhost-scsi/cdb"
)

// pad truncates or right-pads s with spaces to exactly length bytes,
// the same fixed-width field convention the teacher's FixedString
// uses for vendor/product strings.
func pad(s string, length int) []byte {
	b := []byte(s)
	if len(b) >= length {
		return b[:length]
	}
	out := make([]byte, length)
	copy(out, b)
	for i := len(b); i < length; i++ {
		out[i] = ' '
	}
	return out
}

// StdInquiry builds the standard (non-EVPD) INQUIRY response body for
// a ready direct-access block device.
func StdInquiry() []byte {
	buf := make([]byte, 0, 96)
	buf = append(buf, 0x00) // peripheral qualifier 0, device type 0 (direct-access block)
	buf = append(buf, 0, 0x07, 0x32, 91, 0, 0, 0x02)
	buf = append(buf, pad("rust-vmm", 8)...)
	buf = append(buf, pad("vhost-user-scsi ", 16)...)
	buf = append(buf, pad("v0  ", 4)...)
	buf = append(buf, make([]byte, 22)...)
	for _, d := range [8]uint16{0xC0, 0x05C0, 0x0600, 0, 0, 0, 0, 0} {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], d)
		buf = append(buf, b[:]...)
	}
	buf = append(buf, make([]byte, 22)...)
	return buf
}

// VpdResponse wraps a VPD page payload in the common INQUIRY/EVPD
// envelope: device type, page code, big-endian payload length.
func VpdResponse(deviceType, page byte, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	buf[0] = deviceType
	buf[1] = page
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(payload)))
	copy(buf[4:], payload)
	return buf
}

// SupportedVpdPagesPayload lists the VPD pages this target answers.
func SupportedVpdPagesPayload() []byte {
	return []byte{0x00, 0x83, 0xB1, 0xB2}
}

// BlockDeviceCharacteristicsPayload reports the medium rotation rate
// (1 for solid-state media, 0 otherwise) and leaves the rest reserved.
func BlockDeviceCharacteristicsPayload(solidState bool) []byte {
	buf := make([]byte, 59)
	if solidState {
		buf[0] = 1
	}
	return buf
}

// LogicalBlockProvisioningPayload advertises thin provisioning with
// unmapped LBAs read as zero.
func LogicalBlockProvisioningPayload() []byte {
	return []byte{0x00, 0xE4, 0x02, 0x00}
}

// DeviceIdentificationPayload builds VPD page 0x83: a T10 vendor-id
// descriptor followed by a binary NAA descriptor.
func DeviceIdentificationPayload(vendorID string, naa [8]byte) []byte {
	buf := make([]byte, 0, 24)

	vendorDesc := make([]byte, 4+8)
	vendorDesc[0] = 2 // code set: ASCII
	vendorDesc[1] = 1 // identifier type: T10 vendor ID
	vendorDesc[3] = 8
	copy(vendorDesc[4:], pad(vendorID, 8))
	buf = append(buf, vendorDesc...)

	naaDesc := make([]byte, 4+8)
	naaDesc[0] = 1 // code set: binary
	naaDesc[1] = 3 // identifier type: NAA
	naaDesc[3] = 8
	copy(naaDesc[4:], naa[:])
	buf = append(buf, naaDesc...)

	return buf
}

// ReportLunsPayload builds the REPORT LUNS data-in body: a big-endian
// LUN list length, 4 reserved bytes, then 8 bytes per LUN in the
// single-level flat format [0, lun, 0, 0, 0, 0, 0, 0].
func ReportLunsPayload(luns []uint16) []byte {
	buf := make([]byte, 8+8*len(luns))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8*len(luns)))
	for i, lun := range luns {
		buf[8+i*8+1] = byte(lun)
	}
	return buf
}

// OneCommandPayload builds REPORT SUPPORTED OPERATION CODES' one-
// command reply: a reserved flags byte, a support indicator, and (when
// supported) the CDB usage template with its length prefix.
func OneCommandPayload(supported bool, template []byte) []byte {
	buf := []byte{0x00}
	if !supported {
		return append(buf, 0b0000_0001, 0x00, 0x00)
	}
	buf = append(buf, 0b0000_0011)
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, uint16(len(template)))
	buf = append(buf, lenBytes...)
	return append(buf, template...)
}

// timeoutDescriptorSize is the command-timeout descriptor appended to
// each entry when RCTD is set. spec.md pins this at 12 bytes (SPC-6
// itself uses 14; this target reports no real per-command timeouts so
// the body is all zero regardless).
const timeoutDescriptorSize = 12

// AllCommandsPayload builds REPORT SUPPORTED OPERATION CODES' "All"
// reply per SPC-6 6.34.3: a 4-byte ALL COMMANDS DATA LENGTH followed
// by one command descriptor per supported opcode.
func AllCommandsPayload(opcodes []byte, rctd bool) []byte {
	descLen := 8
	if rctd {
		descLen += timeoutDescriptorSize
	}
	buf := make([]byte, 4+descLen*len(opcodes))
	binary.BigEndian.PutUint32(buf[0:4], uint32(descLen*len(opcodes)))
	for i, op := range opcodes {
		off := 4 + i*descLen
		buf[off] = op
		// off+1 reserved, off+2:off+4 service action (none of our
		// opcodes report one here), off+4 reserved
		if rctd {
			buf[off+5] = 0b0000_0010 // CTDP: command timeout descriptor present
		}
		binary.BigEndian.PutUint16(buf[off+6:off+8], uint16(len(cdb.Template(op))))
	}
	return buf
}
