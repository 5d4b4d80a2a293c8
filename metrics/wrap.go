package metrics

import (
	"io"
	"sync/atomic"

	"github.com/coreos/go-vhost-scsi/target"
)

// Wrap returns a target.LogicalUnit that behaves exactly like lun but
// records every command it executes against c under name (typically
// the backing image's path or serial).
func Wrap(name string, lun target.LogicalUnit, c *Collector) target.LogicalUnit {
	return &instrumented{name: name, lun: lun, c: c}
}

type instrumented struct {
	name string
	lun  target.LogicalUnit
	c    *Collector
}

func (i *instrumented) Execute(req target.Request, t *target.Target) (target.CmdOutput, error) {
	if req.DataIn != nil {
		counter := i.c.bytesInCounter(i.name)
		req.DataIn = &countingWriter{w: req.DataIn, n: counter}
	}

	var opcode byte
	if len(req.Cdb) > 0 {
		opcode = req.Cdb[0]
	}

	out, err := i.lun.Execute(req, t)
	i.c.recordCommand(i.name, opcode, outcome(out, err))
	return out, err
}

func outcome(out target.CmdOutput, err error) string {
	if err != nil {
		return "error"
	}
	if out.Status == target.StatusCheckCondition {
		return "check_condition"
	}
	return "ok"
}

// countingWriter tallies bytes successfully written to w into n,
// shared across every command this logical unit executes.
type countingWriter struct {
	w io.Writer
	n *uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		atomic.AddUint64(c.n, uint64(n))
	}
	return n, err
}
