package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/coreos/go-vhost-scsi/metrics"
	"github.com/coreos/go-vhost-scsi/target"
	"github.com/coreos/go-vhost-scsi/virtio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// maxResponseBody is the size of the single response buffer this
// stand-in transport hands to HandleRequest for each command: the
// 108-byte response prefix plus the data-in payload. Inquiry data, mode
// pages and READ(10) transfers of up to 2047 512-byte blocks fit; a
// larger READ(10) (its transfer length allows up to 65535 blocks) does
// not. A real vhost-user transport has no such cap because it writes
// directly into guest-supplied descriptors.
const maxResponseBody = 1 << 20

type cli struct {
	ReadOnly    bool   `short:"r" help:"Make the images read-only."`
	SolidState  bool   `short:"s" help:"Tell the guest this disk is non-rotational."`
	MetricsAddr string `help:"Address to serve Prometheus metrics on (disabled if empty)."`

	Sock   string   `arg:"" type:"path" help:"Unix socket to listen on."`
	Images []string `arg:"" type:"path" help:"Backing image files, one per LUN, in order."`
}

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	var cli cli
	kong.Parse(&cli,
		kong.Description("Emulates a virtio-scsi target backed by plain files."),
	)

	if len(cli.Images) > 256 {
		logrus.Fatal("more than 256 LUNs aren't currently supported")
	}

	collector := metrics.NewCollector()
	if cli.MetricsAddr != "" {
		serveMetrics(cli.MetricsAddr, collector)
	}

	luns := make([]target.LogicalUnit, 0, len(cli.Images))
	for _, image := range cli.Images {
		dev, err := target.NewBlockDevice(image, cli.ReadOnly, cli.SolidState)
		if err != nil {
			logrus.WithError(err).Fatalf("opening %s", image)
		}
		luns = append(luns, metrics.Wrap(image, dev, collector))
	}
	tgt := target.New(luns)

	if err := unix.Unlink(cli.Sock); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Fatal("removing stale socket")
	}
	listener, err := net.Listen("unix", cli.Sock)
	if err != nil {
		logrus.WithError(err).Fatal("listening on socket")
	}
	defer listener.Close()

	logrus.WithFields(logrus.Fields{
		"sock":   cli.Sock,
		"images": len(cli.Images),
	}).Info("go-vhost-scsi attached")

	go acceptLoop(listener, tgt)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	<-signalChan
	fmt.Println("\nReceived an interrupt, stopping services...")
}

func serveMetrics(addr string, collector *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.WithError(err).Error("metrics server exited")
		}
	}()
}

func acceptLoop(listener net.Listener, tgt *target.Target) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			logrus.WithError(err).Error("accepting connection")
			return
		}
		go func() {
			defer conn.Close()
			if err := serveConn(conn, tgt); err != nil && err != io.EOF {
				logrus.WithError(err).Debug("connection closed")
			}
		}()
	}
}

// serveConn drives one connection's worth of virtio-scsi requests.
// Each request's header and CDB are read into a single in-memory
// descriptor and handed to virtio.HandleRequest exactly as a real
// vhost-user backend would hand it a guest-supplied descriptor chain;
// the response is buffered the same way and flushed back whole.
func serveConn(conn net.Conn, tgt *target.Target) error {
	reqBuf := make([]byte, virtio.HeaderSize)
	respBuf := make([]byte, maxResponseBody)

	for {
		if _, err := io.ReadFull(conn, reqBuf); err != nil {
			return err
		}

		reader := virtio.NewChainReader([][]byte{reqBuf})
		writer := virtio.NewChainWriter([][]byte{respBuf})
		if err := virtio.HandleRequest(tgt, reader, writer); err != nil {
			return err
		}
		if _, err := conn.Write(respBuf[:writer.MaxWritten()]); err != nil {
			return err
		}
	}
}
