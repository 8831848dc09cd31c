// Wstest runs the websocket package's Endpoint as a server under the
// Autobahn Testsuite's fuzzing client (wstest --mode fuzzingclient), which
// drives a scripted battery of RFC 6455 edge cases against it and reports
// pass/fail per case.
//
// This package's role flipped from the teacher's: tzrikka/timpani's wstest
// dialed out to Autobahn's fuzzing *server* to exercise its WebSocket
// *client*. This package is server-role, so it listens and lets Autobahn's
// fuzzing *client* dial in instead; see config/fuzzingclient.json for case
// selection.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corvid-labs/wsendpoint/internal/logger"
	"github.com/corvid-labs/wsendpoint/pkg/httpws"
	"github.com/corvid-labs/wsendpoint/pkg/websocket"
)

const addr = "127.0.0.1:9001"

func main() {
	cfg := websocket.NewConfig(
		websocket.WithRole(websocket.RoleServer),
		websocket.WithValidateUTF8(true),
		websocket.WithHeartbeatPeriod(0), // Autobahn cases don't expect unsolicited pings
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		serveCase(r.Context(), cfg, w, r)
	})

	slog.Info("listening for Autobahn fuzzing client", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.FatalError("server error", err)
	}
}

func serveCase(ctx context.Context, cfg websocket.Config, w http.ResponseWriter, r *http.Request) {
	sock, headers, err := httpws.Upgrade(w, r, nil, 5*time.Second)
	if err != nil {
		slog.Warn("upgrade rejected", slog.Any("error", err))
		return
	}

	ep, err := websocket.NewEndpoint("autobahn", cfg, sock, headers, echoApp{}, nil)
	if err != nil {
		slog.Warn("endpoint construction rejected", slog.Any("error", err))
		return
	}
	ep.Run(ctx)
}

// echoApp is the simplest possible conformant Application: echo every
// message back verbatim. The Autobahn test suite supplies the edge cases;
// the Endpoint's job is to reject the invalid ones and pass the rest
// through unchanged.
type echoApp struct{}

func (echoApp) OnOpen(ep *websocket.Endpoint, headers http.Header) {}

func (echoApp) OnData(ep *websocket.Endpoint, msg *websocket.Message) {
	ctx := context.Background()
	var buf []byte
	for {
		chunk, fin, ok, err := msg.Next(ctx)
		if err != nil || !ok {
			return
		}
		buf = append(buf, chunk...)
		if fin {
			break
		}
	}
	<-ep.Send(msg.Opcode, buf)
}

func (echoApp) OnClose(ep *websocket.Endpoint, code websocket.StatusCode, reason string) {}
