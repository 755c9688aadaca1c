package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/samber/lo"

	"tts-relay/logging"
	"tts-relay/models"
	"tts-relay/utils"
)

const (
	defaultAudioType = "application/octet-stream"
	defaultErrorType = "application/json"
	proxyErrorType   = "application/json; charset=utf-8"
	proxyErrorPrefix = "proxy server error: "
)

// ErrBodyTooLarge is returned when the upstream sends more than MaxBodyBytes.
var ErrBodyTooLarge = errors.New("upstream response body too large")

// Relay forwards GET /tts requests to the configured TTS API and mirrors
// the answer back with CORS headers attached.
type Relay struct {
	client *http.Client
	target atomic.Pointer[models.Upstream]
	log    *logging.Logger
}

// NewRelay creates a relay. A nil client means http.DefaultClient.
func NewRelay(target models.Upstream, client *http.Client, log *logging.Logger) *Relay {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logging.Discard()
	}
	rl := &Relay{client: client, log: log}
	rl.SetTarget(target)
	return rl
}

// SetTarget swaps the upstream for requests that start after the call.
func (rl *Relay) SetTarget(u models.Upstream) {
	rl.target.Store(&u)
}

// Target returns the upstream currently in use.
func (rl *Relay) Target() models.Upstream {
	return *rl.target.Load()
}

// ServeHTTP handles GET /tts*
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := rl.Target()

	resp, body, err := rl.forward(r.Context(), target, r.URL.RawQuery)
	if err != nil {
		rl.log.Warn("relay failed", logging.Error(err))
		writeProxyError(w, err)
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")

	if resp.StatusCode >= http.StatusBadRequest {
		rl.log.Info("upstream error",
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(body)))
		h.Set("Content-Type", lo.CoalesceOrEmpty(resp.Header.Get("Content-Type"), defaultErrorType))
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
		return
	}

	h.Set("Content-Type", lo.CoalesceOrEmpty(resp.Header.Get("Content-Type"), defaultAudioType))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

// forward performs the single upstream attempt and reads the whole body.
// The returned response's body is already closed.
func (rl *Relay) forward(ctx context.Context, target models.Upstream, rawQuery string) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, target.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, utils.UpstreamURL(target, ""), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build upstream request: %w", err)
	}
	// Set after parsing so the query goes out byte-for-byte, "?" included.
	req.URL.RawQuery = rawQuery
	req.URL.ForceQuery = true
	req.Header.Set("User-Agent", target.UserAgent)

	rl.log.Debug("forwarding", logging.String("url", utils.UpstreamURL(target, rawQuery)))

	resp, err := rl.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body, target.MaxBodyBytes)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

func writeProxyError(w http.ResponseWriter, err error) {
	msg, _ := json.Marshal(proxyErrorPrefix + err.Error())

	h := w.Header()
	h.Set("Content-Type", proxyErrorType)
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `{"error": %s}`, msg)
}
