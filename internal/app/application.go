package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/basestation"
	"go1090/internal/dispatch"
	"go1090/internal/httpapi"
	"go1090/internal/logging"
	"go1090/internal/netio"
	"go1090/internal/rtlsdr"
)

// registryTick is the aircraft-registry eviction cadence.
const registryTick = 125 * time.Millisecond

// Application wires every component package into the single
// cooperative loop: an IQ source feeding the
// demodulation pipeline, a network dispatcher serving/consuming the
// five fixed services, an HTTP server, and the BaseStation log.
type Application struct {
	config Config
	logger *logrus.Logger

	source     rtlsdr.Source
	processor  *adsb.Processor
	dispatcher *dispatch.Dispatcher
	httpServer *httpapi.Server
	formatter  *basestation.Formatter
	sbsWriter  *basestation.Writer
	logRotator *logging.LogRotator

	rawParser *netio.RawParser
	sbsParser *netio.SBSParser

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApplication creates an Application from an already-validated
// Config.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start runs the application to completion: it initializes every
// component, starts the loop, and blocks until a shutdown signal, an
// active-connect failure, or a finished file replay ends it.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("starting go1090")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, rtlsdr.ShutdownSignals()...)

	if err := app.run(); err != nil {
		app.logger.WithError(err).Error("application error")
		return err
	}

	select {
	case <-sigChan:
		app.logger.Info("received shutdown signal")
	case <-app.dispatcher.ExitRequested():
		app.logger.Warn("active-connect failure requested shutdown")
	case <-app.replayDone():
		app.logger.Info("file replay finished")
	}

	app.shutdown()
	return nil
}

// replayDone returns a channel that fires once a file/stdin source
// has streamed every configured loop, or nil (never fires) when
// reading from live hardware.
func (app *Application) replayDone() <-chan struct{} {
	switch src := app.source.(type) {
	case *rtlsdr.FileSource:
		return src.Done
	case *rtlsdr.StdinSource:
		return src.Done
	default:
		return nil
	}
}

func (app *Application) initializeComponents() error {
	var err error

	if app.source, err = app.openSource(); err != nil {
		return err
	}

	policy := adsb.DefaultCorrectionPolicy()
	if app.config.Aggressive {
		policy.Correct2 = true
		policy.TwoBitAnyLong = true
	}
	if app.config.NoFix {
		policy.Correct1 = false
		policy.Correct2 = false
	}

	ttl := time.Duration(app.config.InteractiveTTL) * time.Second
	app.processor = adsb.NewProcessor(app.logger, float64(DefaultSampleRate), policy, ttl)
	if app.config.HaveHomePosition {
		app.processor.Registry().SetReceiverPosition(app.config.Lat, app.config.Lon)
	}

	app.logRotator, err = logging.NewLogRotator(app.config.LogDir, app.config.LogRotateUTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}

	sessionID := uuid.New()
	app.formatter = basestation.NewFormatter(sessionID)
	app.sbsWriter = basestation.NewWriter(app.logRotator, app.logger)

	app.rawParser = netio.NewRawParser()
	app.sbsParser = netio.NewSBSParser()

	app.dispatcher = dispatch.NewDispatcher(app.logger)
	if app.config.Net || app.config.NetOnly {
		if err := app.initNetworking(); err != nil {
			return fmt.Errorf("failed to initialize networking: %w", err)
		}
	}

	app.processor.OnMessage = app.onMessage

	return nil
}

// openSource resolves --infile into the right rtlsdr.Source: hardware
// by default, a FileSource for a path, or a StdinSource for "-".
func (app *Application) openSource() (rtlsdr.Source, error) {
	switch app.config.InFile {
	case "":
		dev, err := rtlsdr.NewRTLSDRDevice(app.config.DeviceIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RTL-SDR: %w", err)
		}
		if err := dev.Configure(app.config.Frequency, DefaultSampleRate, app.config.Gain); err != nil {
			return nil, fmt.Errorf("failed to configure RTL-SDR: %w", err)
		}
		return dev, nil
	case "-":
		return rtlsdr.NewStdinSource(app.logger), nil
	default:
		return rtlsdr.NewFileSource(app.config.InFile, app.config.Loops, app.logger), nil
	}
}

func (app *Application) initNetworking() error {
	rawOut := dispatch.NewService(dispatch.RawOut, "tcp", app.config.RawOutPort)
	sbsOut := dispatch.NewService(dispatch.SBSOut, "tcp", app.config.SBSOutPort)

	var deny4, deny6 []*net.IPNet
	var err error
	if deny4, err = dispatch.ParseCIDRList(app.config.DenyIPv4); err != nil {
		return err
	}
	if deny6, err = dispatch.ParseCIDRList(app.config.DenyIPv6); err != nil {
		return err
	}
	rawOut.DenyIPv4, rawOut.DenyIPv6 = deny4, deny6
	sbsOut.DenyIPv4, sbsOut.DenyIPv6 = deny4, deny6

	app.dispatcher.AddService(rawOut)
	app.dispatcher.AddService(sbsOut)
	if err := app.dispatcher.ListenPassive(rawOut, nil); err != nil {
		return err
	}
	if err := app.dispatcher.ListenPassive(sbsOut, nil); err != nil {
		return err
	}

	if app.config.NetActive {
		if app.config.HostRawIn != "" {
			rawIn := dispatch.NewService(dispatch.RawIn, "tcp", 0)
			rawIn.RemoteAddr = app.config.HostRawIn
			app.dispatcher.AddService(rawIn)
			app.dispatcher.ConnectActive(app.ctx, rawIn, app.readActiveRawIn)
		}
		if app.config.HostSBSIn != "" {
			sbsIn := dispatch.NewService(dispatch.SBSIn, "tcp", 0)
			sbsIn.RemoteAddr = app.config.HostSBSIn
			app.dispatcher.AddService(sbsIn)
			app.dispatcher.ConnectActive(app.ctx, sbsIn, app.readActiveSBSIn)
		}
	} else {
		rawIn := dispatch.NewService(dispatch.RawIn, "tcp", app.config.RawInPort)
		rawIn.DenyIPv4, rawIn.DenyIPv6 = deny4, deny6
		app.dispatcher.AddService(rawIn)
		if err := app.dispatcher.ListenPassive(rawIn, app.acceptRawIn); err != nil {
			return err
		}
		if err := app.dispatcher.ListenUDP(rawIn, app.datagramRawIn); err != nil {
			app.logger.WithError(err).Warn("RAW_IN UDP listener unavailable")
		}

		if app.config.SBSInPort != 0 {
			sbsIn := dispatch.NewService(dispatch.SBSIn, "tcp", app.config.SBSInPort)
			sbsIn.DenyIPv4, sbsIn.DenyIPv6 = deny4, deny6
			app.dispatcher.AddService(sbsIn)
			if err := app.dispatcher.ListenPassive(sbsIn, app.acceptSBSIn); err != nil {
				return err
			}
		}
	}

	httpSvc := dispatch.NewService(dispatch.HTTP, "tcp", app.config.HTTPPort)
	httpSvc.DenyIPv4, httpSvc.DenyIPv6 = deny4, deny6
	app.dispatcher.AddService(httpSvc)

	app.httpServer = httpapi.NewServer(httpapi.Config{
		Version:     Version,
		RefreshMS:   int(registryTick / time.Millisecond),
		HistorySize: 120,
		Lat:         app.config.Lat,
		Lon:         app.config.Lon,
	}, app.processor.Registry(), app.processor, app.logger)

	handler := app.httpServer.Handler()
	httpSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", app.config.HTTPPort),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpSvc.Denied(r.RemoteAddr) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			handler.ServeHTTP(w, r)
		}),
	}
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		<-app.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	return nil
}

// acceptRawIn reads a RAW_IN TCP client's frames and applies each to
// the registry, sharing the same netio.RawParser instance so a frame
// split across reads is never lost (spec §4.H).
func (app *Application) acceptRawIn(c *dispatch.Client) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		buf := make([]byte, 4096)
		conn := clientConn(c)
		if conn == nil {
			return
		}
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			for _, frame := range app.rawParser.Feed(buf[:n]) {
				app.applyRawFrame(frame.Data)
			}
		}
	}()
}

func (app *Application) datagramRawIn(data []byte, _ net.Addr) {
	for _, frame := range app.rawParser.Feed(data) {
		app.applyRawFrame(frame.Data)
	}
}

func (app *Application) applyRawFrame(data []byte) {
	msg := &adsb.Message{Len: len(data), Timestamp: time.Now(), Valid: true}
	copy(msg.Data[:], data)
	adsb.Decode(msg)
	app.processor.ApplyUpstream(adsb.AircraftUpdate{
		ICAO:      msg.ICAO,
		Now:       msg.Timestamp,
		Callsign:  msg.Callsign,
		HasAlt:    msg.HasAlt,
		Altitude:  msg.Altitude,
		HasSquawk: msg.HasSquawk,
		Squawk:    msg.Squawk,
		HasSpeed:  msg.HasSpeed,
		Speed:     msg.Speed,
		TrackOK:   msg.TrackOK,
		Track:     msg.Track,
		VertRate:  msg.VertRate,
		OnGround:  msg.OnGround,
		HasCPR:    msg.HasCPR,
		CPRLat:    msg.CPRLat,
		CPRLon:    msg.CPRLon,
		CPRFFlag:  msg.CPRFFlag,
		Surface:   msg.Surface,
	})
}

func (app *Application) acceptSBSIn(c *dispatch.Client) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		conn := clientConn(c)
		if conn == nil {
			return
		}
		app.readActiveSBSIn(conn)
	}()
}

func (app *Application) readActiveRawIn(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		for _, frame := range app.rawParser.Feed(buf[:n]) {
			app.applyRawFrame(frame.Data)
		}
	}
}

func (app *Application) readActiveSBSIn(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		for _, u := range app.sbsParser.Feed(buf[:n]) {
			app.processor.ApplyUpstream(u)
		}
	}
}

// onMessage fires for every locally demodulated, decoded message: it
// broadcasts the raw frame and the BaseStation line to their
// respective output services and writes the rotated log.
func (app *Application) onMessage(msg *adsb.Message) {
	if app.config.Raw && !app.config.NetOnly {
		fmt.Print(netio.FormatRawLine(msg.Data))
	}

	if app.dispatcher != nil {
		if rawOut := app.dispatcher.Service(dispatch.RawOut); rawOut != nil {
			rawOut.Broadcast([]byte(netio.FormatRawLine(msg.Data)))
		}
	}

	var lat, lon float64
	var hasPos bool
	if a, ok := app.processor.Registry().Get(msg.ICAO); ok {
		lat, lon, hasPos = a.Latitude, a.Longitude, a.HasPos
	}

	line, ok := app.formatter.Serialize(msg, lat, lon, hasPos)
	if !ok {
		return
	}

	if err := app.sbsWriter.WriteLine(line); err != nil {
		app.logger.WithError(err).Debug("failed to write SBS log line")
	}

	if app.dispatcher != nil {
		if sbsOut := app.dispatcher.Service(dispatch.SBSOut); sbsOut != nil {
			sbsOut.Broadcast([]byte(line + "\r\n"))
		}
	}
}

func (app *Application) run() error {
	dataChan := make(chan []byte, 100)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.source.StartCapture(app.ctx, dataChan); err != nil {
			app.logger.WithError(err).Error("IQ source capture failed")
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logRotator.Start(app.ctx)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.processLoop(dataChan)
	}()

	if app.config.Stats {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.reportStatistics()
		}()
	}

	app.logger.Info("all components started")
	return nil
}

// processLoop is the cooperative event loop: it
// demodulates each incoming block and ticks the registry's eviction
// sweep on a fixed cadence, all on a single goroutine so no locking of
// the registry is required from here.
func (app *Application) processLoop(dataChan <-chan []byte) {
	ticker := time.NewTicker(registryTick)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case data, ok := <-dataChan:
			if !ok {
				return
			}
			app.processor.ProcessBlock(data, time.Now())
		case <-ticker.C:
			app.processor.EvictStale()
		}
	}
}

func (app *Application) reportStatistics() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			stats := app.processor.Stats()
			rate := float64(0)
			if stats.Preambles > 0 {
				rate = float64(stats.ValidMessages) / float64(stats.Preambles) * 100
			}
			app.logger.WithFields(logrus.Fields{
				"samples_processed": stats.SamplesProcessed,
				"preambles_found":   stats.Preambles,
				"valid_messages":    stats.ValidMessages,
				"rejected_bad":      stats.RejectedBad,
				"corrected_single":  stats.CorrectedSingle,
				"corrected_double":  stats.CorrectedDouble,
				"success_rate_pct":  fmt.Sprintf("%.2f", rate),
			}).Info("15-minute statistics snapshot")
		}
	}
}

func (app *Application) shutdown() {
	app.logger.Info("shutting down")
	app.cancel()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("all goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("shutdown timeout, forcing exit")
	}

	if app.dispatcher != nil {
		app.dispatcher.Shutdown(5 * time.Second)
	}
	if app.source != nil {
		app.source.Close()
	}
	if app.logRotator != nil {
		app.logRotator.Close()
	}

	app.logger.Info("shutdown completed")
}

func clientConn(c *dispatch.Client) net.Conn {
	return c.Conn()
}
