package listener

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/briarcliff/relaygate/internal/dispatch"
	"github.com/briarcliff/relaygate/internal/forward"
	"github.com/briarcliff/relaygate/internal/manager"
	"github.com/briarcliff/relaygate/internal/model"
	"github.com/briarcliff/relaygate/internal/staticfile"
)

const shutdownGrace = 5 * time.Second

var (
	forbiddenBody = []byte("Forbidden")
	notFoundBody  = []byte("Not Found")
)

// RunHTTP binds 0.0.0.0:port and serves plain HTTP/1.1 until ctx is
// cancelled or entry.ShutdownCh receives a signal, whichever comes first.
// It blocks until the listener has fully drained (spec's Draining ->
// Terminated transition) and returns any bind-time error.
func RunHTTP(ctx context.Context, listenerKey string, port uint16, entry *manager.Entry, deps Deps) error {
	return serveHTTP(ctx, listenerKey, port, entry, deps, nil)
}

// RunHTTPS is RunHTTP plus a TLS acceptor built from the entry's
// configured certificate and key. A malformed cert/key pair is a bind-time
// error; per spec §7 the entry stays in the manager table (open question,
// decided in DESIGN.md). Later Reconciler passes only hot-update a present
// entry, so the listener is not restarted.
func RunHTTPS(ctx context.Context, listenerKey string, port uint16, entry *manager.Entry, deps Deps) error {
	cert, err := tlsCertificate(entry.CertPEM, entry.KeyPEM)
	if err != nil {
		return fmt.Errorf("listener %s: tls setup: %w", listenerKey, err)
	}
	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	return serveHTTP(ctx, listenerKey, port, entry, deps, tlsConfig)
}

func serveHTTP(ctx context.Context, listenerKey string, port uint16, entry *manager.Entry, deps Deps, tlsConfig *tls.Config) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("listener %s: bind: %w", listenerKey, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	handler := &httpHandler{listenerKey: listenerKey, entry: entry, deps: deps}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err == http.ErrServerClosed {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case <-ctx.Done():
	case <-entry.ShutdownCh:
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return <-serveErr
}

func tlsCertificate(certPEM, keyPEM string) (tls.Certificate, error) {
	if certPEM == "" || keyPEM == "" {
		return tls.Certificate{}, fmt.Errorf("empty certificate or key")
	}
	return tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
}

// httpHandler runs every accepted request through the route engine and
// reacts to its Decision, emitting the observability hook regardless of
// outcome (spec §4.B).
type httpHandler struct {
	listenerKey string
	entry       *manager.Entry
	deps        Deps
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := &statusWriter{ResponseWriter: w}
	peer := r.RemoteAddr

	defer func() {
		status := lw.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		h.deps.AccessLog.Write(peer, elapsed.Milliseconds(), status, r.Method, r.URL.Path, r.Header)
		h.deps.Metrics.ObserveRequest(h.listenerKey, r.URL.Path, strconv.Itoa(status), elapsed.Seconds())
	}()

	routes := h.entry.Snapshot()
	decision := dispatch.Dispatch(r.URL.Path, r.Header, hostOnly(peer), routes, h.deps.Limiter)

	switch decision.Kind {
	case dispatch.KindForward:
		h.forward(lw, r, decision)
	case dispatch.KindServeFile:
		h.serveFile(lw, r, decision)
	case dispatch.KindForbidden:
		lw.WriteHeader(http.StatusForbidden)
		_, _ = lw.Write(forbiddenBody)
	case dispatch.KindNotFound:
		lw.WriteHeader(http.StatusNotFound)
		_, _ = lw.Write(notFoundBody)
	case dispatch.KindError:
		writeErrorEnvelope(lw, decision.Cause)
	}
}

func (h *httpHandler) forward(w http.ResponseWriter, r *http.Request, decision dispatch.Decision) {
	target, err := url.Parse(decision.RewrittenURI)
	if err != nil {
		writeErrorEnvelope(w, fmt.Errorf("parse upstream uri: %w", err))
		return
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		writeErrorEnvelope(w, fmt.Errorf("build upstream request: %w", err))
		return
	}
	outReq.Header = cloneHeader(r.Header)
	outReq.Host = target.Host

	transportName := forward.ProtoHTTP1
	if target.Scheme == "https" {
		transportName = forward.ProtoAuto
	}
	tr := h.deps.Transports.Get(transportName)

	resp, err := tr.RoundTrip(outReq)
	if err != nil {
		writeErrorEnvelope(w, fmt.Errorf("upstream %s: %w", target.String(), err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (h *httpHandler) serveFile(w http.ResponseWriter, r *http.Request, decision dispatch.Decision) {
	err := staticfile.Serve(w, r, decision.Endpoint.Upstream, r.URL.Path, decision.Endpoint.TryFile)
	if err != nil {
		writeErrorEnvelope(w, err)
	}
}

func writeErrorEnvelope(w http.ResponseWriter, cause error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	env := model.BaseResponse[string]{ResponseCode: -1, ResponseObject: cause.Error()}
	_ = json.NewEncoder(w).Encode(env)
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		cc := make([]string, len(vv))
		copy(cc, vv)
		out[k] = cc
	}
	return out
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func hostOnly(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}
