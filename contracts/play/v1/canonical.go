package v1

import "strings"

// Version is the canonical message format version. Any change to field order or
// separators below is a breaking change and must bump it.
const Version = 1

// StartMessage is the text a client signs to start a run.
func StartMessage(identity, entropy string) string {
	return "START GAME " + identity + ":" + entropy
}

// CompleteMessage is the text a client signs to complete a run.
// NFT ids are concatenated in request order with no separator.
func CompleteMessage(identity, entropy string, nftList []string) string {
	return "COMPLETE GAME " + identity + ":" + entropy + ":" + strings.Join(nftList, "")
}

// CancelMessage is the text a client signs to cancel its current session.
// entropy is the value issued by the session_init that created the session.
func CancelMessage(identity, entropy string) string {
	return "CANCEL GAME " + identity + ":" + entropy
}
