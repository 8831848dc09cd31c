package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"github.com/tzrikka/xdg"

	"github.com/corvid-labs/wsendpoint/internal/logger"
	"github.com/corvid-labs/wsendpoint/pkg/httpws"
	"github.com/corvid-labs/wsendpoint/pkg/websocket"
)

const (
	ConfigDirName  = "wsendpoint"
	ConfigFileName = "config.toml"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "wsendpoint",
		Usage:   "a WebSocket echo server built on the websocket package",
		Version: version(bi),
		Flags:   flags(),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func version(bi *debug.BuildInfo) string {
	if bi == nil {
		return "dev"
	}
	return bi.Main.Version
}

func flags() []cli.Flag {
	path := configFile()

	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging, instead of JSON",
			Sources: cli.NewValueSourceChain(
				toml.TOML("pretty_log", path),
			),
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "address to listen on",
			Value: ":8080",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSENDPOINT_ADDR"),
				toml.TOML("addr", path),
			),
		},
		&cli.DurationFlag{
			Name:  "heartbeat",
			Usage: "ping cadence; 0 disables heartbeat pings",
			Value: websocket.DefaultConfig().HeartbeatPeriod,
			Sources: cli.NewValueSourceChain(
				toml.TOML("heartbeat", path),
			),
		},
		&cli.DurationFlag{
			Name:  "close-period",
			Usage: "how long to wait for the peer's close echo before tearing down",
			Value: websocket.DefaultConfig().ClosePeriod,
			Sources: cli.NewValueSourceChain(
				toml.TOML("close_period", path),
			),
		},
		&cli.BoolFlag{
			Name:  "text-only",
			Usage: "reject BINARY messages with UnacceptableType",
			Sources: cli.NewValueSourceChain(
				toml.TOML("text_only", path),
			),
		},
		&cli.BoolFlag{
			Name:  "validate-utf8",
			Usage: "validate TEXT message payloads as UTF-8",
			Sources: cli.NewValueSourceChain(
				toml.TOML("validate_utf8", path),
			),
		},
	}
}

// configFile returns the path to the app's configuration file, creating an
// empty one if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		logger.FatalError("failed to create config file", err)
	}
	return altsrc.StringSourcer(path)
}

func run(ctx context.Context, cmd *cli.Command) error {
	initLog(cmd.Bool("pretty-log"))
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cmd.Bool("pretty-log") {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	cfg := websocket.NewConfig(
		websocket.WithRole(websocket.RoleServer),
		websocket.WithHeartbeatPeriod(cmd.Duration("heartbeat")),
		websocket.WithClosePeriod(cmd.Duration("close-period")),
		websocket.WithTextOnly(cmd.Bool("text-only")),
		websocket.WithValidateUTF8(cmd.Bool("validate-utf8")),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveEcho(r.Context(), log, cfg, w, r)
	})

	addr := cmd.String("addr")
	log.Info().Str("addr", addr).Msg("listening")
	server := &http.Server{Addr: addr, Handler: mux}
	return server.ListenAndServe()
}

// serveEcho upgrades r and runs an Endpoint whose Application echoes every
// inbound message back to the sender, demonstrating the package end to end.
func serveEcho(ctx context.Context, log zerolog.Logger, cfg websocket.Config, w http.ResponseWriter, r *http.Request) {
	sock, headers, err := httpws.Upgrade(w, r, nil, 5*time.Second)
	if err != nil {
		log.Warn().Err(err).Msg("upgrade rejected")
		return
	}

	id := shortuuid.New()
	app := &echoApplication{log: log.With().Str("endpoint_id", id).Logger()}
	ep, err := websocket.NewEndpoint(id, cfg, sock, headers, app, nil)
	if err != nil {
		log.Warn().Err(err).Msg("endpoint construction rejected")
		return
	}
	ep.Run(ctx)
}

// echoApplication implements websocket.Application by writing every
// inbound message straight back to its sender.
type echoApplication struct {
	log zerolog.Logger
}

func (a *echoApplication) OnOpen(ep *websocket.Endpoint, headers http.Header) {
	a.log.Info().Str("sec_websocket_key", headers.Get("Sec-WebSocket-Key")).Msg("connection opened")
}

func (a *echoApplication) OnData(ep *websocket.Endpoint, msg *websocket.Message) {
	ctx := context.Background()
	var buf []byte
	for {
		chunk, fin, ok, err := msg.Next(ctx)
		if err != nil {
			return
		}
		if !ok {
			return
		}
		buf = append(buf, chunk...)
		if fin {
			break
		}
	}
	if err := <-ep.Send(msg.Opcode, buf); err != nil {
		a.log.Debug().Err(err).Msg("echo send failed")
	}
}

func (a *echoApplication) OnClose(ep *websocket.Endpoint, code websocket.StatusCode, reason string) {
	a.log.Info().Stringer("code", code).Str("reason", reason).Msg("connection closed")
}

// initLog initializes the slog default logger, used for process-level fatal
// errors (see internal/logger) and, since serveEcho passes NewEndpoint a nil
// logger, for each Endpoint's own lifecycle logging; the echo application
// logs through zerolog directly.
func initLog(pretty bool) {
	var handler slog.Handler
	if pretty {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
