// Package cdb parses SCSI Command Descriptor Blocks into a typed
// Command plus the allocation length and NACA bit every CDB carries,
// and classifies why a CDB failed to parse.
package cdb

import "encoding/binary"

// Command is implemented by every parsed command variant. The set is
// closed: callers type-switch on it the way the teacher's command
// dispatch switches on an opcode byte.
type Command interface {
	isCommand()
}

type TestUnitReady struct{}

func (TestUnitReady) isCommand() {}

// ReportLunsSelect is the REPORT LUNS SELECT REPORT field.
type ReportLunsSelect byte

const (
	ReportLunsNoWellKnown      ReportLunsSelect = 0x00
	ReportLunsWellKnownOnly    ReportLunsSelect = 0x01
	ReportLunsAll              ReportLunsSelect = 0x02
	ReportLunsAdministrative   ReportLunsSelect = 0x10
	ReportLunsTopLevel         ReportLunsSelect = 0x11
	ReportLunsSameConglomerate ReportLunsSelect = 0x12
)

func (s ReportLunsSelect) valid() bool {
	switch s {
	case ReportLunsNoWellKnown, ReportLunsWellKnownOnly, ReportLunsAll,
		ReportLunsAdministrative, ReportLunsTopLevel, ReportLunsSameConglomerate:
		return true
	}
	return false
}

type ReportLuns struct {
	Select ReportLunsSelect
}

func (ReportLuns) isCommand() {}

type ReadCapacity10 struct{}

func (ReadCapacity10) isCommand() {}

type ReadCapacity16 struct{}

func (ReadCapacity16) isCommand() {}

// PageControl is the MODE SENSE PC field.
type PageControl byte

const (
	PageControlCurrent    PageControl = 0b00
	PageControlChangeable PageControl = 0b01
	PageControlDefault    PageControl = 0b10
	PageControlSaved      PageControl = 0b11
)

// PageSelection names which mode page(s) MODE SENSE(6) should return.
// Only two combinations are supported: a single named page, or "all
// pages, subpage 0".
type PageSelection struct {
	AllPageZeros bool
	Page         byte // meaningful only when !AllPageZeros
}

type ModeSense6 struct {
	PC   PageControl
	Page PageSelection
	Dbd  bool
}

func (ModeSense6) isCommand() {}

type Read10 struct {
	Dpo            bool
	Fua            bool
	Lba            uint32
	GroupNumber    byte
	TransferLength uint16
}

func (Read10) isCommand() {}

// VpdPage is an INQUIRY EVPD page code. Inquiry.Page is nil for a
// standard (non-EVPD) inquiry; a non-nil page 0x00 is the Supported
// VPD Pages page.
type VpdPage byte

const (
	VpdSupportedVpdPages          VpdPage = 0x00
	VpdUnitSerialNumber           VpdPage = 0x80
	VpdDeviceIdentification       VpdPage = 0x83
	VpdSoftwareInterfaceID        VpdPage = 0x84
	VpdManagementNetworkAddresses VpdPage = 0x85
	VpdExtendedInquiry            VpdPage = 0x86
	VpdModePagePolicy             VpdPage = 0x87
	VpdScsiPorts                  VpdPage = 0x88
	VpdAta                        VpdPage = 0x89
	VpdPowerCondition             VpdPage = 0x8a
	VpdDeviceConstituents         VpdPage = 0x8b
	VpdCfaProfile                 VpdPage = 0x8c
	VpdPowerConsumption           VpdPage = 0x8d
	VpdThirdPartyCopy             VpdPage = 0x8f
	VpdProtocolSpecificLU         VpdPage = 0x90
	VpdProtocolSpecificPort       VpdPage = 0x91
	VpdScsiFeatureSets            VpdPage = 0x92
	VpdBlockLimits                VpdPage = 0xb0
	VpdBlockDeviceCharacteristics VpdPage = 0xb1
	VpdLogicalBlockProvisioning   VpdPage = 0xb2
	VpdReferrals                  VpdPage = 0xb3
	VpdBlockDeviceCharsExt        VpdPage = 0xb5
	VpdZonedBlockDeviceChars      VpdPage = 0xb6
	VpdBlockLimitsExt             VpdPage = 0xb7
	VpdFormatPresets              VpdPage = 0xb8
)

// validVpdPage reports whether b names a VPD page code a guest could
// legally ask for — not whether this target supports returning it.
// Unsupported-but-valid pages are rejected later, by the executor, as
// INVALID_FIELD_IN_CDB; genuinely undefined codes are rejected here,
// by the parser, for the same reason.
func validVpdPage(b byte) bool {
	if b >= 0x01 && b <= 0x7f {
		return true
	}
	switch VpdPage(b) {
	case VpdSupportedVpdPages, VpdUnitSerialNumber, VpdDeviceIdentification,
		VpdSoftwareInterfaceID, VpdManagementNetworkAddresses, VpdExtendedInquiry,
		VpdModePagePolicy, VpdScsiPorts, VpdAta, VpdPowerCondition,
		VpdDeviceConstituents, VpdCfaProfile, VpdPowerConsumption, VpdThirdPartyCopy,
		VpdProtocolSpecificLU, VpdProtocolSpecificPort, VpdScsiFeatureSets,
		VpdBlockLimits, VpdBlockDeviceCharacteristics, VpdLogicalBlockProvisioning,
		VpdReferrals, VpdBlockDeviceCharsExt, VpdZonedBlockDeviceChars,
		VpdBlockLimitsExt, VpdFormatPresets:
		return true
	}
	return false
}

type Inquiry struct {
	Page *VpdPage // nil = standard inquiry
}

func (Inquiry) isCommand() {}

// SenseFormat is the REQUEST SENSE DESC field.
type SenseFormat int

const (
	SenseFormatFixed SenseFormat = iota
	SenseFormatDescriptor
)

type RequestSense struct {
	Format SenseFormat
}

func (RequestSense) isCommand() {}

// ReportMode is the REPORT SUPPORTED OPERATION CODES reporting option.
type ReportMode interface {
	isReportMode()
}

type ReportAll struct{}

func (ReportAll) isReportMode() {}

type ReportOneCommand struct {
	Opcode byte
}

func (ReportOneCommand) isReportMode() {}

type ReportOneServiceAction struct {
	Opcode byte
	SA     uint16
}

func (ReportOneServiceAction) isReportMode() {}

type ReportOneCommandOrServiceAction struct {
	Opcode byte
	SA     uint16
}

func (ReportOneCommandOrServiceAction) isReportMode() {}

type ReportSupportedOperationCodes struct {
	Rctd bool
	Mode ReportMode
}

func (ReportSupportedOperationCodes) isCommand() {}

// Cdb is a fully parsed Command Descriptor Block.
type Cdb struct {
	Command Command
	// AllocationLength is nil when the command has none (e.g.
	// READ CAPACITY(10)); otherwise the initiator's upper bound on
	// data-in bytes.
	AllocationLength *uint32
	Naca             bool
}

// ErrorKind classifies why a CDB failed to parse.
type ErrorKind int

const (
	InvalidCommand ErrorKind = iota
	InvalidField
	TooShort
)

type ParseError struct {
	Kind ErrorKind
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case InvalidCommand:
		return "cdb: invalid command operation code"
	case InvalidField:
		return "cdb: invalid field in cdb"
	case TooShort:
		return "cdb: too short"
	default:
		return "cdb: parse error"
	}
}

func errKind(k ErrorKind) error { return &ParseError{Kind: k} }

type commandType int

const (
	ctTestUnitReady commandType = iota
	ctRequestSense
	ctInquiry
	ctModeSense6
	ctReadCapacity10
	ctRead10
	ctReadCapacity16
	ctReportLuns
	ctReportSupportedOperationCodes
)

type opcodeEntry struct {
	ct     commandType
	opcode byte
	sa     *uint16
	length int
}

func saOf(v uint16) *uint16 { return &v }

// opcodeTable is the operation-code dispatch table: (opcode, optional
// service action) -> command type, and the CDB length that type uses.
var opcodeTable = []opcodeEntry{
	{ctTestUnitReady, 0x00, nil, 6},
	{ctRequestSense, 0x03, nil, 6},
	{ctInquiry, 0x12, nil, 6},
	{ctModeSense6, 0x1A, nil, 6},
	{ctReadCapacity10, 0x25, nil, 10},
	{ctRead10, 0x28, nil, 10},
	{ctReadCapacity16, 0x9E, saOf(0x10), 16},
	{ctReportLuns, 0xA0, nil, 12},
	{ctReportSupportedOperationCodes, 0xA3, saOf(0x0C), 12},
}

// commandTypeFromOpcodeAndSA looks opcode/sa up in opcodeTable. If
// opcode matches an entry but sa doesn't, that's InvalidField (a known
// command, bad service action); if opcode matches nothing at all,
// that's InvalidCommand.
func commandTypeFromOpcodeAndSA(opcode byte, sa uint16) (commandType, int, error) {
	opcodeKnown := false
	for _, e := range opcodeTable {
		if e.opcode != opcode {
			continue
		}
		opcodeKnown = true
		if e.sa == nil || *e.sa == sa {
			return e.ct, e.length, nil
		}
	}
	if opcodeKnown {
		return 0, 0, errKind(InvalidField)
	}
	return 0, 0, errKind(InvalidCommand)
}

// Parse parses buf as a single CDB. buf may be longer than the
// command actually needs (callers typically hand in a fixed
// CDB_SIZE buffer); only TooShort is possible from a short buffer,
// never "too long".
func Parse(buf []byte) (Cdb, error) {
	if len(buf) < 2 {
		return Cdb{}, errKind(TooShort)
	}
	sa := uint16(buf[1] & 0b0001_1111)
	ct, length, err := commandTypeFromOpcodeAndSA(buf[0], sa)
	if err != nil {
		return Cdb{}, err
	}
	if len(buf) < length {
		return Cdb{}, errKind(TooShort)
	}
	buf = buf[:length]
	naca := buf[length-1]&0b0000_0100 != 0

	switch ct {
	case ctTestUnitReady:
		return Cdb{Command: TestUnitReady{}, Naca: naca}, nil

	case ctRequestSense:
		var format SenseFormat
		if buf[1]&0x01 != 0 {
			format = SenseFormatDescriptor
		}
		alloc := uint32(buf[4])
		return Cdb{Command: RequestSense{Format: format}, AllocationLength: &alloc, Naca: naca}, nil

	case ctInquiry:
		if buf[1]&0b1111_1110 != 0 {
			return Cdb{}, errKind(InvalidField)
		}
		evpd := buf[1]&0x01 != 0
		pageCode := buf[2]
		var page *VpdPage
		switch {
		case !evpd && pageCode == 0:
			page = nil
		case evpd:
			if !validVpdPage(pageCode) {
				return Cdb{}, errKind(InvalidField)
			}
			vp := VpdPage(pageCode)
			page = &vp
		default: // !evpd && pageCode != 0
			return Cdb{}, errKind(InvalidField)
		}
		alloc := uint32(binary.BigEndian.Uint16(buf[3:5]))
		return Cdb{Command: Inquiry{Page: page}, AllocationLength: &alloc, Naca: naca}, nil

	case ctModeSense6:
		var dbd bool
		switch buf[1] {
		case 0b0000_1000:
			dbd = true
		case 0b0000_0000:
			dbd = false
		default:
			return Cdb{}, errKind(InvalidField)
		}
		pc := PageControl((buf[2] & 0b1100_0000) >> 6)
		pageCode := buf[2] & 0b0011_1111
		subpageCode := buf[3]
		var sel PageSelection
		switch {
		case pageCode == 0x08 && subpageCode == 0x00:
			sel = PageSelection{Page: 0x08}
		case pageCode == 0x3f && subpageCode == 0x00:
			sel = PageSelection{AllPageZeros: true}
		default:
			return Cdb{}, errKind(InvalidField)
		}
		alloc := uint32(buf[4])
		return Cdb{
			Command:          ModeSense6{PC: pc, Page: sel, Dbd: dbd},
			AllocationLength: &alloc,
			Naca:             naca,
		}, nil

	case ctReadCapacity10:
		return Cdb{Command: ReadCapacity10{}, Naca: naca}, nil

	case ctRead10:
		if buf[1]&0b0000_0111 != 0 { // RDPROTECT, bits 2..0, must be 0
			return Cdb{}, errKind(InvalidField)
		}
		dpo := buf[1]&0b0001_0000 != 0
		fua := buf[1]&0b0000_1000 != 0
		lba := binary.BigEndian.Uint32(buf[2:6])
		groupNumber := buf[6] & 0b0001_1111
		transferLength := binary.BigEndian.Uint16(buf[7:9])
		return Cdb{
			Command: Read10{
				Dpo:            dpo,
				Fua:            fua,
				Lba:            lba,
				GroupNumber:    groupNumber,
				TransferLength: transferLength,
			},
			Naca: naca,
		}, nil

	case ctReadCapacity16:
		alloc := binary.BigEndian.Uint32(buf[10:14])
		return Cdb{Command: ReadCapacity16{}, AllocationLength: &alloc, Naca: naca}, nil

	case ctReportLuns:
		sel := ReportLunsSelect(buf[2])
		if !sel.valid() {
			return Cdb{}, errKind(InvalidField)
		}
		alloc := binary.BigEndian.Uint32(buf[6:10])
		return Cdb{Command: ReportLuns{Select: sel}, AllocationLength: &alloc, Naca: naca}, nil

	case ctReportSupportedOperationCodes:
		rctd := buf[2]&0b1000_0000 != 0
		opcodeArg := buf[3]
		saArg := binary.BigEndian.Uint16(buf[4:6])
		var mode ReportMode
		switch buf[2] & 0b0000_0111 {
		case 0b000:
			mode = ReportAll{}
		case 0b001:
			mode = ReportOneCommand{Opcode: opcodeArg}
		case 0b010:
			mode = ReportOneServiceAction{Opcode: opcodeArg, SA: saArg}
		case 0b011:
			mode = ReportOneCommandOrServiceAction{Opcode: opcodeArg, SA: saArg}
		default:
			return Cdb{}, errKind(InvalidField)
		}
		alloc := binary.BigEndian.Uint32(buf[6:10])
		return Cdb{
			Command:          ReportSupportedOperationCodes{Rctd: rctd, Mode: mode},
			AllocationLength: &alloc,
			Naca:             naca,
		}, nil
	}
	return Cdb{}, errKind(InvalidCommand)
}

// Template returns a CDB usage template for ct: the shortest legal CDB
// encoding of that command, with every variable field zeroed (or, for
// MODE SENSE(6), pinned to the all-pages selection 0x3F, one of the two
// selections this target supports).
// Every supported opcode's template must parse successfully — that's
// the "CDB usage data" testable property this core relies on.
func Template(opcode byte) []byte {
	switch opcode {
	case 0x00:
		return []byte{0x00, 0, 0, 0, 0, 0}
	case 0x03:
		return []byte{0x03, 0, 0, 0, 0, 0}
	case 0x12:
		return []byte{0x12, 0, 0, 0, 0, 0}
	case 0x1A:
		return []byte{0x1A, 0, 0x3F, 0, 0, 0}
	case 0x25:
		return []byte{0x25, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0x28:
		return []byte{0x28, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0x9E:
		return []byte{0x9E, 0x10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0xA0:
		return []byte{0xA0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0xA3:
		return []byte{0xA3, 0x0C, 0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	}
	return nil
}

// SupportedOpcodes lists the opcodes in opcodeTable, in table order,
// for REPORT SUPPORTED OPERATION CODES' "All" reporting mode.
func SupportedOpcodes() []byte {
	out := make([]byte, 0, len(opcodeTable))
	for _, e := range opcodeTable {
		out = append(out, e.opcode)
	}
	return out
}
