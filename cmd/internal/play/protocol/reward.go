package protocol

import (
	"context"
	"encoding/json"
)

// RewardEngine computes the reward payload for a completed run.
// It is called after the completion has committed and outside any store lock.
type RewardEngine interface {
	Compute(ctx context.Context, identity string, replay json.RawMessage, nftList []string) (json.RawMessage, error)
}

// RewardFunc adapts a function to RewardEngine.
type RewardFunc func(ctx context.Context, identity string, replay json.RawMessage, nftList []string) (json.RawMessage, error)

func (f RewardFunc) Compute(ctx context.Context, identity string, replay json.RawMessage, nftList []string) (json.RawMessage, error) {
	return f(ctx, identity, replay, nftList)
}

// NoopRewardEngine grants nothing.
type NoopRewardEngine struct{}

func (NoopRewardEngine) Compute(context.Context, string, json.RawMessage, []string) (json.RawMessage, error) {
	return nil, nil
}
