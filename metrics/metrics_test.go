package metrics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/coreos/go-vhost-scsi/target"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var errTest = errors.New("boom")

type fakeLun struct {
	out target.CmdOutput
	err error
}

func (f fakeLun) Execute(req target.Request, t *target.Target) (target.CmdOutput, error) {
	if req.DataIn != nil {
		req.DataIn.Write([]byte("hello"))
	}
	return f.out, f.err
}

func TestWrapRecordsCommandOutcome(t *testing.T) {
	c := NewCollector()
	lun := Wrap("image0", fakeLun{out: target.Ok()}, c)

	var buf bytes.Buffer
	req := target.Request{Cdb: []byte{0x00, 0, 0, 0, 0, 0}, DataIn: &buf}
	if _, err := lun.Execute(req, nil); err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(c)
	got, err := testutil.GatherAndCount(reg, "vhost_scsi_commands_total")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("got %d command series, want 1", got)
	}
}

func TestWrapTracksOutcomeLabel(t *testing.T) {
	tests := []struct {
		name string
		out  target.CmdOutput
		err  error
		want string
	}{
		{"ok", target.Ok(), nil, "ok"},
		{"check_condition", target.CmdOutput{Status: target.StatusCheckCondition}, nil, "check_condition"},
		{"error", target.CmdOutput{}, errTest, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcome(tt.out, tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapCountsDataInBytes(t *testing.T) {
	c := NewCollector()
	lun := Wrap("image0", fakeLun{out: target.Ok()}, c)

	var buf bytes.Buffer
	req := target.Request{Cdb: []byte{0x00}, DataIn: &buf}
	if _, err := lun.Execute(req, nil); err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(c)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "vhost_scsi_data_in_bytes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetCounter().GetValue() == 5 {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("did not find a data-in byte counter with value 5")
	}
}

func TestOpcodeLabelFormatsAsHex(t *testing.T) {
	if got := opcodeLabel(0xA0); got != "0xa0" {
		t.Errorf("got %q, want 0xa0", got)
	}
}
