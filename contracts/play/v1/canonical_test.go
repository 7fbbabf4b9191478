package v1

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		got  string
		want string
	}{
		{name: "start", got: StartMessage("Alice", "E1"), want: "START GAME Alice:E1"},
		{name: "complete one nft", got: CompleteMessage("Alice", "E1", []string{"nft-1"}), want: "COMPLETE GAME Alice:E1:nft-1"},
		{name: "complete many nfts", got: CompleteMessage("Alice", "E1", []string{"a", "b", "c"}), want: "COMPLETE GAME Alice:E1:abc"},
		{name: "complete no nfts", got: CompleteMessage("Alice", "E1", nil), want: "COMPLETE GAME Alice:E1:"},
		{name: "cancel", got: CancelMessage("Bob", "E9"), want: "CANCEL GAME Bob:E9"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, tc.got, tc.name)
	}
}
