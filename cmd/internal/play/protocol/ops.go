package protocol

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"playgate/cmd/internal/play/session"
	"playgate/cmd/security/token"
	v1 "playgate/contracts/play/v1"
)

// GetOutput is the result of Get. Entropy is set only when State is Active.
type GetOutput struct {
	State   v1.SessionState
	Entropy string
}

// InitOutput is the result of Init. Entropy is set only on Success.
type InitOutput struct {
	Result  v1.Result
	Entropy string
}

type StartInput struct {
	Identity  string
	Entropy   string
	Signature string
}

type CompleteInput struct {
	Identity  string
	Entropy   string
	NFTList   []string
	Replay    json.RawMessage
	Signature string
}

// CompleteOutput carries the reward payload of a successful completion, if any.
type CompleteOutput struct {
	Result v1.Result
	Reward json.RawMessage
}

type CancelInput struct {
	Identity  string
	Signature string
}

// Get reports the identity's session state under shared access.
func (s *Service) Get(ctx context.Context, identity string) GetOutput {
	started := time.Now()
	ctx, span := s.span(ctx, OpGet, identity)
	defer span.End()

	out := s.get(ctx, identity)
	span.SetAttributes(attribute.String("play.result", string(out.State)))
	s.metrics.observe(OpGet, string(out.State), started)
	return out
}

func (s *Service) get(ctx context.Context, identity string) GetOutput {
	if !validIdentity(identity) {
		return GetOutput{State: v1.SessionStateNone}
	}
	cur, ok, err := s.store.Get(ctx, identity)
	if err != nil {
		s.log.Error("play.get.store.fail", "identity", identity, "error", err)
		return GetOutput{State: v1.SessionStateNone}
	}
	if !ok {
		return GetOutput{State: v1.SessionStateNone}
	}
	if s.policy.Expired(cur, s.now()) {
		return GetOutput{State: v1.SessionStateExpired}
	}
	return GetOutput{State: v1.SessionStateActive, Entropy: cur.Entropy}
}

// Init opens a session when none is live for identity.
func (s *Service) Init(ctx context.Context, identity string) InitOutput {
	started := time.Now()
	ctx, span := s.span(ctx, OpInit, identity)

	out := s.init(ctx, identity)
	s.finish(span, OpInit, out.Result, started)
	return out
}

func (s *Service) init(ctx context.Context, identity string) InitOutput {
	if !validIdentity(identity) {
		return InitOutput{Result: v1.ResultErrorUnexpected}
	}

	// Drawn before the exclusive section; discarded unless the guard admits it.
	entropy, err := s.entropy.NewEntropy()
	if err != nil {
		s.log.Error("play.init.entropy.fail", "identity", identity, "error", err)
		return InitOutput{Result: v1.ResultErrorUnexpected}
	}

	now := s.now()
	var res v1.Result
	err = s.store.Upsert(ctx, identity, func(cur *session.Session) session.Mutation {
		if cur != nil && !s.policy.Expired(*cur, now) {
			res = v1.ResultErrorGameActive
			return session.Keep()
		}
		res = v1.ResultSuccess
		return session.Put(session.Session{
			Entropy:          entropy,
			State:            session.StateAwaitingSignature,
			LastTransitionAt: now,
		})
	})
	if err != nil {
		s.log.Error("play.init.store.fail", "identity", identity, "error", err)
		return InitOutput{Result: v1.ResultErrorUnexpected}
	}
	if res != v1.ResultSuccess {
		return InitOutput{Result: res}
	}

	s.log.Info("play.init.ok", "identity", identity, "entropy_fp", token.Fingerprint(entropy))
	s.publish(identity, OpInit, v1.SessionStateActive, now)
	return InitOutput{Result: v1.ResultSuccess, Entropy: entropy}
}

// Start moves an AwaitingSignature session to GameStarted.
func (s *Service) Start(ctx context.Context, in StartInput) v1.Result {
	started := time.Now()
	ctx, span := s.span(ctx, OpStart, in.Identity)

	res := s.start(ctx, in)
	s.finish(span, OpStart, res, started)
	return res
}

func (s *Service) start(ctx context.Context, in StartInput) v1.Result {
	if !validIdentity(in.Identity) {
		return v1.ResultErrorUnexpected
	}

	sigOK := s.verifier.Verify(in.Identity, v1.StartMessage(in.Identity, in.Entropy), in.Signature)

	now := s.now()
	var res v1.Result
	err := s.store.Upsert(ctx, in.Identity, func(cur *session.Session) session.Mutation {
		switch {
		case cur == nil:
			res = v1.ResultErrorNoSuchSession
		case !entropyEqual(cur.Entropy, in.Entropy) || !s.policy.StartAllowed(*cur, now):
			res = v1.ResultErrorRequestDataDoesNotMatch
		case !sigOK:
			res = v1.ResultErrorSignatureInvalid
		default:
			res = v1.ResultSuccess
			next := *cur
			next.State = session.StateGameStarted
			next.LastTransitionAt = now
			return session.Put(next)
		}
		return session.Keep()
	})
	if err != nil {
		s.log.Error("play.start.store.fail", "identity", in.Identity, "error", err)
		return v1.ResultErrorUnexpected
	}
	if res != v1.ResultSuccess {
		s.log.Debug("play.start.rejected", "identity", in.Identity, "result", string(res))
		return res
	}

	s.log.Info("play.start.ok", "identity", in.Identity, "entropy_fp", token.Fingerprint(in.Entropy))
	s.publish(in.Identity, OpStart, v1.SessionStateActive, now)
	return res
}

// Complete ends a GameStarted run and hands the replay to the reward engine.
// The session returns to AwaitingSignature with a zero timestamp so the next
// Init is accepted immediately.
func (s *Service) Complete(ctx context.Context, in CompleteInput) CompleteOutput {
	started := time.Now()
	ctx, span := s.span(ctx, OpComplete, in.Identity)

	out := s.complete(ctx, in)
	s.finish(span, OpComplete, out.Result, started)
	return out
}

func (s *Service) complete(ctx context.Context, in CompleteInput) CompleteOutput {
	if !validIdentity(in.Identity) {
		return CompleteOutput{Result: v1.ResultErrorUnexpected}
	}

	msg := v1.CompleteMessage(in.Identity, in.Entropy, in.NFTList)
	sigOK := s.verifier.Verify(in.Identity, msg, in.Signature)

	now := s.now()
	var res v1.Result
	err := s.store.Upsert(ctx, in.Identity, func(cur *session.Session) session.Mutation {
		switch {
		case cur == nil:
			res = v1.ResultErrorNoSuchSession
		case !entropyEqual(cur.Entropy, in.Entropy) || !s.policy.CompleteAllowed(*cur, now):
			res = v1.ResultErrorRequestDataDoesNotMatch
		case !sigOK:
			res = v1.ResultErrorSignatureInvalid
		default:
			res = v1.ResultSuccess
			next := *cur
			next.State = session.StateAwaitingSignature
			next.LastTransitionAt = 0
			return session.Put(next)
		}
		return session.Keep()
	})
	if err != nil {
		s.log.Error("play.complete.store.fail", "identity", in.Identity, "error", err)
		return CompleteOutput{Result: v1.ResultErrorUnexpected}
	}
	if res != v1.ResultSuccess {
		s.log.Debug("play.complete.rejected", "identity", in.Identity, "result", string(res))
		return CompleteOutput{Result: res}
	}

	s.log.Info("play.complete.ok",
		"identity", in.Identity,
		"entropy_fp", token.Fingerprint(in.Entropy),
		"nfts", len(in.NFTList),
	)
	s.publish(in.Identity, OpComplete, v1.SessionStateExpired, 0)

	// The transition has committed; a reward failure cannot undo it.
	reward, err := s.rewards.Compute(ctx, in.Identity, in.Replay, in.NFTList)
	if err != nil {
		s.log.Error("play.complete.reward.fail", "identity", in.Identity, "error", err)
		return CompleteOutput{Result: v1.ResultSuccess}
	}
	return CompleteOutput{Result: v1.ResultSuccess, Reward: reward}
}

// Cancel deletes the identity's session after verifying a signature over
// CancelMessage with the stored entropy.
func (s *Service) Cancel(ctx context.Context, in CancelInput) v1.Result {
	started := time.Now()
	ctx, span := s.span(ctx, OpCancel, in.Identity)

	res := s.cancel(ctx, in)
	s.finish(span, OpCancel, res, started)
	return res
}

func (s *Service) cancel(ctx context.Context, in CancelInput) v1.Result {
	if !validIdentity(in.Identity) {
		return v1.ResultErrorUnexpected
	}

	cur, ok, err := s.store.Get(ctx, in.Identity)
	if err != nil {
		s.log.Error("play.cancel.store.fail", "identity", in.Identity, "error", err)
		return v1.ResultErrorUnexpected
	}
	if !ok {
		return v1.ResultErrorUnexpected
	}

	if !s.verifier.Verify(in.Identity, v1.CancelMessage(in.Identity, cur.Entropy), in.Signature) {
		return v1.ResultErrorSignatureInvalid
	}

	var res v1.Result
	err = s.store.Upsert(ctx, in.Identity, func(latest *session.Session) session.Mutation {
		// A concurrent init replaced the session the signature was made for.
		if latest == nil || latest.Entropy != cur.Entropy {
			res = v1.ResultErrorUnexpected
			return session.Keep()
		}
		res = v1.ResultSuccess
		return session.Delete()
	})
	if err != nil {
		s.log.Error("play.cancel.store.fail", "identity", in.Identity, "error", err)
		return v1.ResultErrorUnexpected
	}
	if res != v1.ResultSuccess {
		return res
	}

	s.log.Info("play.cancel.ok", "identity", in.Identity)
	s.publish(in.Identity, OpCancel, v1.SessionStateNone, s.now())
	return res
}

func entropyEqual(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
