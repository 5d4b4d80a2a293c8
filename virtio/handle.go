package virtio

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/coreos/go-vhost-scsi/internal/invariant"
	"github.com/coreos/go-vhost-scsi/sense"
	"github.com/coreos/go-vhost-scsi/target"
	"github.com/sirupsen/logrus"
)

// cdbSize is the virtio spec's default CDB size; QEMU never lets a
// guest negotiate config space to change it, so it is effectively
// fixed.
const cdbSize = 32

// HeaderSize is the number of bytes a caller must read off the wire
// (LUN, id, task attribute, priority, CRN, and the CDB) before
// calling HandleRequest.
const HeaderSize = 19 + cdbSize

const headerSize = HeaderSize

// reservedPrefix is the response header plus the maximum sense buffer
// (12 + SENSE_SIZE): the offset at which a command's data-in payload
// begins.
const reservedPrefix = 12 + sense.Size

// HandleRequest reads one virtio-scsi request (header, LUN, and CDB)
// from reader, executes it against tgt, and writes the response
// header plus any data-in bytes to writer. It returns nil once the
// response has been written (or deliberately withheld, for a
// descriptor too broken to answer) — io errors reading the request
// itself are the caller's to handle, since they mean the descriptor
// chain itself was malformed.
func HandleRequest(tgt *target.Target, reader *ChainReader, writer *ChainWriter) error {
	var buf [headerSize]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		return err
	}

	var lunBytes [8]byte
	copy(lunBytes[:], buf[0:8])
	lun := ParseLun(lunBytes)
	id := binary.LittleEndian.Uint64(buf[8:16])
	taskAttr := taskAttrFromByte(buf[16])
	prio := buf[17]
	crn := buf[18]
	cdbBytes := buf[19 : 19+cdbSize]

	bodyWriter := writer.Clone()
	bodyWriter.Skip(reservedPrefix)

	req := target.Request{
		ID:       id,
		Cdb:      cdbBytes,
		TaskAttr: taskAttr,
		DataIn:   bodyWriter,
		DataOut:  reader,
		Crn:      crn,
		Prio:     prio,
	}

	resp, abandon := respond(tgt, lun, req, bodyWriter)
	if abandon {
		return nil
	}
	return resp.Write(writer)
}

// lunIndex maps a parsed virtio-scsi Lun to the target-relative LUN
// number this single-target core dispatches on. The well-known
// REPORT LUNS pattern has no backing target to dispatch to and is
// rejected as BadTarget, matching parse_target's ReportLuns => None
// arm; any target byte other than 0 is likewise rejected since this
// is a single-target deployment.
func lunIndex(lun Lun) (uint16, bool) {
	if lun.ReportLuns {
		return 0, false
	}
	if lun.Target != 0 {
		return 0, false
	}
	return lun.Number, true
}

// respond executes req against the LUN lun names and builds the
// response to write. abandon is true when the data-in write failed
// for a reason other than running out of descriptor space — the
// guest handed over a broken descriptor, there is no way to answer,
// and the request is logged and dropped rather than responded to.
func respond(tgt *target.Target, lun Lun, req target.Request, bodyWriter *ChainWriter) (Response, bool) {
	lunNumber, ok := lunIndex(lun)
	if !ok {
		logrus.WithField("target", lun.Target).Debug("rejecting command to unknown target")
		return Response{Code: ResponseBadTarget, Residual: uint32(bodyWriter.Residual())}, false
	}

	output, err := tgt.Execute(lunNumber, req)
	if err != nil {
		var cmdErr *target.CmdError
		if errors.As(err, &cmdErr) && errors.Is(cmdErr.DataInErr, io.ErrShortWrite) {
			return Response{Code: ResponseOverrun}, false
		}
		logrus.WithError(err).Error("error writing response to guest memory")
		return Response{}, true
	}

	return Response{
		Code:            ResponseOk,
		Status:          output.Status,
		StatusQualifier: output.StatusQualifier,
		Sense:           output.Sense,
		Residual:        uint32(bodyWriter.Residual()),
	}, false
}

func taskAttrFromByte(b byte) target.TaskAttr {
	switch b {
	case 0:
		return target.TaskAttrSimple
	case 1:
		return target.TaskAttrOrdered
	case 2:
		return target.TaskAttrHeadOfQueue
	case 3:
		return target.TaskAttrAca
	}
	invariant.Hold(false, "unknown virtio-scsi task attribute 0x%x", b)
	return target.TaskAttrSimple
}
