// Package metrics exposes a prometheus.Collector over the commands
// this core executes: counts by opcode and outcome, and bytes moved
// through each logical unit's data-in cursor.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandsDesc = prometheus.NewDesc(
		"vhost_scsi_commands_total",
		"SCSI commands executed, by opcode and outcome",
		[]string{"lun", "opcode", "outcome"}, nil,
	)
	bytesInDesc = prometheus.NewDesc(
		"vhost_scsi_data_in_bytes_total",
		"Bytes written to the data-in cursor of a logical unit",
		[]string{"lun"}, nil,
	)
)

type commandKey struct {
	lun     string
	opcode  byte
	outcome string
}

// Collector is a prometheus.Collector counting command outcomes and
// data-in bytes across every logical unit it has been told to
// instrument via Wrap. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	commands map[commandKey]uint64
	bytesIn  map[string]*uint64
}

// NewCollector returns an empty Collector ready to register with a
// prometheus.Registerer.
func NewCollector() *Collector {
	return &Collector{commands: make(map[commandKey]uint64)}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- commandsDesc
	ch <- bytesInDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, n := range c.commands {
		ch <- prometheus.MustNewConstMetric(commandsDesc, prometheus.CounterValue,
			float64(n), k.lun, opcodeLabel(k.opcode), k.outcome)
	}
	for lun, n := range c.bytesIn {
		ch <- prometheus.MustNewConstMetric(bytesInDesc, prometheus.CounterValue,
			float64(atomic.LoadUint64(n)), lun)
	}
}

func (c *Collector) recordCommand(lun string, opcode byte, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[commandKey{lun: lun, opcode: opcode, outcome: outcome}]++
}

func (c *Collector) bytesInCounter(lun string) *uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bytesIn == nil {
		c.bytesIn = make(map[string]*uint64)
	}
	n, ok := c.bytesIn[lun]
	if !ok {
		n = new(uint64)
		c.bytesIn[lun] = n
	}
	return n
}

func opcodeLabel(opcode byte) string {
	const hexDigits = "0123456789abcdef"
	return string([]byte{'0', 'x', hexDigits[opcode>>4], hexDigits[opcode&0xf]})
}
