// Package sense encodes the fixed-format SCSI sense data returned
// alongside a CHECK CONDITION status. It knows nothing about CDBs or
// devices; it only turns a (sense key, ASC, ASCQ) triple into the
// 18-byte wire form QEMU and Linux guests expect.
package sense

// Triple is a named (sense key, additional sense code, additional
// sense code qualifier) combination.
type Triple struct {
	Key  byte
	Asc  byte
	Ascq byte
}

// Size is the SENSE_SIZE the virtio-scsi response header reserves for
// sense bytes; every encoded sense buffer must stay under it.
const Size = 96

// Fixed encodes t as 18 bytes of fixed-format sense data (response
// code 0x70, current errors, no information/command-specific fields).
func (t Triple) Fixed() []byte {
	return []byte{
		0x70, // response code (fixed, current); valid bit 0
		0x0,  // reserved
		t.Key,
		0x0, 0x0, 0x0, 0x0, // information
		0xa,                // additional sense length
		0x0, 0x0, 0x0, 0x0, // command-specific information
		t.Asc,
		t.Ascq,
		0x0,           // field-replaceable unit code
		0x0, 0x0, 0x0, // sense-key-specific information
	}
}

// Named sense triples used by the target and missing-LUN stub.
var (
	InvalidCommandOperationCode   = Triple{0x5, 0x20, 0x0}
	InvalidFieldInCdb             = Triple{0x5, 0x24, 0x0}
	LogicalBlockAddressOutOfRange = Triple{0x5, 0x21, 0x0}
	UnrecoveredReadError          = Triple{0x3, 0x11, 0x0}
	LogicalUnitNotSupported       = Triple{0x5, 0x25, 0x0}
)
