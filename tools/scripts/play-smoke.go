// Package main is a CI-friendly end-to-end smoke test for a running playgate server.
//
// It validates:
//   - event feed handshake + subprotocol selection
//   - session_init -> game_start -> game_complete with a fresh ed25519 wallet
//   - one session_event per committed transition
//   - replaying the spent entropy is rejected
//   - a new run can be initialized right after completion
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"playgate/cmd/security/wallet"
	v1 "playgate/contracts/play/v1"
)

const maxReadBytes = 1 << 16

type smoke struct {
	base    string
	client  *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "server base URL")
		origin  = flag.String("origin", "http://localhost", "Origin header for the event feed handshake")
		timeout = flag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	s := &smoke{
		base:    strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{Timeout: *timeout},
		timeout: *timeout,
		verbose: *verbose,
	}
	root := context.Background()

	signer, err := wallet.Ed25519Scheme{}.Generate()
	if err != nil {
		fatalf("keygen: %v", err)
	}
	id := signer.Identity()
	s.logf("identity=%s", id)

	conn := s.mustSubscribe(root, id, *origin)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	var initResp v1.SessionInitResponse
	s.mustPost(root, v1.PathSessionInit, v1.SessionInitRequest{Identity: id}, &initResp)
	mustResult("session_init", initResp.Result, v1.ResultSuccess)
	if initResp.Entropy == "" {
		fatalf("session_init: empty entropy")
	}
	s.mustEvent(root, conn, "session_init", v1.SessionStateActive)

	entropy := initResp.Entropy

	var startResp v1.GameStartResponse
	s.mustPost(root, v1.PathGameStart, v1.GameStartRequest{
		Identity:  id,
		Entropy:   entropy,
		Signature: mustSign(signer, v1.StartMessage(id, entropy)),
	}, &startResp)
	mustResult("game_start", startResp.Result, v1.ResultSuccess)
	s.mustEvent(root, conn, "game_start", v1.SessionStateActive)

	nfts := []string{"nft-1", "nft-2"}
	var completeResp v1.GameCompleteResponse
	s.mustPost(root, v1.PathGameComplete, v1.GameCompleteRequest{
		Identity:  id,
		Entropy:   entropy,
		NFTList:   nfts,
		Replay:    json.RawMessage(`{"frames":[]}`),
		Signature: mustSign(signer, v1.CompleteMessage(id, entropy, nfts)),
	}, &completeResp)
	mustResult("game_complete", completeResp.Result, v1.ResultSuccess)
	s.mustEvent(root, conn, "game_complete", v1.SessionStateExpired)

	var replayResp v1.GameStartResponse
	s.mustPost(root, v1.PathGameStart, v1.GameStartRequest{
		Identity:  id,
		Entropy:   entropy,
		Signature: mustSign(signer, v1.StartMessage(id, entropy)),
	}, &replayResp)
	mustResult("game_start replay", replayResp.Result, v1.ResultErrorRequestDataDoesNotMatch)

	var again v1.SessionInitResponse
	s.mustPost(root, v1.PathSessionInit, v1.SessionInitRequest{Identity: id}, &again)
	mustResult("session_init again", again.Result, v1.ResultSuccess)
	if again.Entropy == entropy {
		fatalf("session_init again: entropy was reused")
	}

	fmt.Printf("OK: identity=%s\n", id)
}

func (s *smoke) mustSubscribe(parent context.Context, identity, origin string) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	u, _ := url.Parse(s.base)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = v1.PathEvents
	u.RawQuery = url.Values{"identity": {identity}}.Encode()

	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{v1.EventsSubprotocol},
		HTTPHeader:   h,
	})
	if err != nil {
		if resp != nil {
			fatalf("dial %s: %v (status=%d)", u.String(), err, resp.StatusCode)
		}
		fatalf("dial %s: %v", u.String(), err)
	}
	if got := conn.Subprotocol(); got != v1.EventsSubprotocol {
		fatalf("subprotocol: got %q want %q", got, v1.EventsSubprotocol)
	}
	conn.SetReadLimit(maxReadBytes)
	s.logf("subscribed: %s", u.String())
	return conn
}

func (s *smoke) mustPost(parent context.Context, path string, body, out any) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	b, err := json.Marshal(body)
	if err != nil {
		fatalf("%s: marshal: %v", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(b))
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s: read: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		fatalf("%s: status=%d body=%s", path, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		fatalf("%s: decode: %v (body=%s)", path, err, raw)
	}
	s.logf("%s -> %s", path, raw)
}

func (s *smoke) mustEvent(parent context.Context, conn *websocket.Conn, wantOp string, wantState v1.SessionState) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	typ, b, err := conn.Read(ctx)
	if err != nil {
		fatalf("event %s: read: %v", wantOp, err)
	}
	if typ != websocket.MessageText {
		fatalf("event %s: unexpected frame type %v", wantOp, typ)
	}

	var ev v1.SessionEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		fatalf("event %s: decode: %v", wantOp, err)
	}
	if ev.Type != v1.TypeSessionEvent || ev.Op != wantOp || ev.State != wantState {
		fatalf("event: got type=%s op=%s state=%s, want op=%s state=%s", ev.Type, ev.Op, ev.State, wantOp, wantState)
	}
	if bytes.Contains(b, []byte("entropy")) {
		fatalf("event %s: leaked entropy: %s", wantOp, b)
	}
	s.logf("event: %s", b)
}

func mustSign(signer wallet.Signer, msg string) string {
	sig, err := signer.Sign(msg)
	if err != nil {
		fatalf("sign: %v", err)
	}
	return sig
}

func mustResult(step string, got, want v1.Result) {
	if got != want {
		fatalf("%s: result=%s want=%s", step, got, want)
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func (s *smoke) logf(format string, args ...any) {
	if s.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
