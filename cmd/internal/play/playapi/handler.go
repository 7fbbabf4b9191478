package playapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"playgate/cmd/internal/play/protocol"
	"playgate/cmd/security/token"
	"playgate/cmd/security/wallet"
	v1 "playgate/contracts/play/v1"
)

// Handler exposes the protocol over JSON POST endpoints under /play.
//
// Every protocol response is HTTP 200 with a result discriminator, including
// malformed bodies. Only method mismatches (405) and rate limiting (429) are
// reported at the HTTP level.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	svc     *protocol.Service
	audit   Auditor
	limiter *clientLimiter
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithAuditor overrides the default no-op auditor.
func WithAuditor(a Auditor) HandlerOption {
	return func(h *Handler) {
		if h == nil || a == nil {
			return
		}
		h.audit = a
	}
}

// NewHandler constructs a Handler over svc.
func NewHandler(log *slog.Logger, svc *protocol.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("playapi: nil protocol service")
	}
	if log == nil {
		log = slog.Default()
	}

	cfg = cfg.normalized()
	h := &Handler{
		log:   log,
		cfg:   cfg,
		svc:   svc,
		audit: NoopAuditor{},
	}
	if cfg.RateLimitRPS > 0 {
		h.limiter = newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the protocol routes onto r.
func (h *Handler) Register(r *mux.Router) {
	if h == nil || r == nil {
		return
	}
	sub := r.PathPrefix(v1.PathPrefix).Subrouter()
	sub.Use(h.rateLimit)

	route := func(path string, fn http.HandlerFunc) {
		sub.HandleFunc(strings.TrimPrefix(path, v1.PathPrefix), fn).Methods(http.MethodPost)
	}
	route(v1.PathSessionGet, h.handleSessionGet)
	route(v1.PathSessionInit, h.handleSessionInit)
	route(v1.PathSessionCancel, h.handleSessionCancel)
	route(v1.PathGameStart, h.handleGameStart)
	route(v1.PathGameComplete, h.handleGameComplete)
}

// ---- handlers ----

func (h *Handler) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	var req v1.SessionGetRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.log.Debug("play.session_get.decode.fail", "err", err)
		writeJSON(w, http.StatusOK, v1.SessionGetResponse{State: v1.SessionStateNone})
		return
	}

	out := h.svc.Get(r.Context(), normalizeIdentity(req.Identity))
	writeJSON(w, http.StatusOK, v1.SessionGetResponse{State: out.State, Entropy: out.Entropy})
}

func (h *Handler) handleSessionInit(w http.ResponseWriter, r *http.Request) {
	var req v1.SessionInitRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.log.Debug("play.session_init.decode.fail", "err", err)
		writeJSON(w, http.StatusOK, v1.SessionInitResponse{Result: v1.ResultErrorUnexpected})
		return
	}

	identity := normalizeIdentity(req.Identity)
	out := h.svc.Init(r.Context(), identity)
	h.record(r, protocol.OpInit, identity, out.Result, map[string]any{
		"entropy_fp": token.Fingerprint(out.Entropy),
	})
	writeJSON(w, http.StatusOK, v1.SessionInitResponse{Result: out.Result, Entropy: out.Entropy})
}

func (h *Handler) handleSessionCancel(w http.ResponseWriter, r *http.Request) {
	var req v1.SessionCancelRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.log.Debug("play.session_cancel.decode.fail", "err", err)
		writeJSON(w, http.StatusOK, v1.SessionCancelResponse{Result: v1.ResultErrorUnexpected})
		return
	}

	identity := normalizeIdentity(req.Identity)
	res := h.svc.Cancel(r.Context(), protocol.CancelInput{
		Identity:  identity,
		Signature: strings.TrimSpace(req.Signature),
	})
	h.record(r, protocol.OpCancel, identity, res, nil)
	writeJSON(w, http.StatusOK, v1.SessionCancelResponse{Result: res})
}

func (h *Handler) handleGameStart(w http.ResponseWriter, r *http.Request) {
	var req v1.GameStartRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.log.Debug("play.game_start.decode.fail", "err", err)
		writeJSON(w, http.StatusOK, v1.GameStartResponse{Result: v1.ResultErrorUnexpected})
		return
	}

	identity := normalizeIdentity(req.Identity)
	res := h.svc.Start(r.Context(), protocol.StartInput{
		Identity:  identity,
		Entropy:   req.Entropy,
		Signature: strings.TrimSpace(req.Signature),
	})
	h.record(r, protocol.OpStart, identity, res, map[string]any{
		"entropy_fp": token.Fingerprint(req.Entropy),
	})
	writeJSON(w, http.StatusOK, v1.GameStartResponse{Result: res})
}

func (h *Handler) handleGameComplete(w http.ResponseWriter, r *http.Request) {
	var req v1.GameCompleteRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.log.Debug("play.game_complete.decode.fail", "err", err)
		writeJSON(w, http.StatusOK, v1.GameCompleteResponse{Result: v1.ResultErrorUnexpected})
		return
	}

	identity := normalizeIdentity(req.Identity)
	out := h.svc.Complete(r.Context(), protocol.CompleteInput{
		Identity:  identity,
		Entropy:   req.Entropy,
		NFTList:   req.NFTList,
		Replay:    req.Replay,
		Signature: strings.TrimSpace(req.Signature),
	})
	h.record(r, protocol.OpComplete, identity, out.Result, map[string]any{
		"entropy_fp":   token.Fingerprint(req.Entropy),
		"nft_count":    len(req.NFTList),
		"replay_bytes": len(req.Replay),
	})
	writeJSON(w, http.StatusOK, v1.GameCompleteResponse{Result: out.Result, Reward: out.Reward})
}

// ---- helpers ----

func (h *Handler) record(r *http.Request, op protocol.Op, identity string, res v1.Result, meta map[string]any) {
	if identity == "" {
		return
	}
	h.audit.Record(r.Context(), AuditEntry{
		Action:    "play." + string(op),
		Identity:  identity,
		Result:    string(res),
		IP:        clientIP(r, h.cfg.TrustProxy),
		UserAgent: r.UserAgent(),
		Meta:      meta,
	})
}

// normalizeIdentity maps a request identity to its store key.
func normalizeIdentity(raw string) string {
	return wallet.CanonicalIdentity(raw)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
