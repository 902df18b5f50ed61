package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// hashEnvelope is the canonical hash input. Field order is fixed by the
// struct so the hash cannot drift between writers.
type hashEnvelope struct {
	Type      string          `json:"type"`
	EntityID  string          `json:"entity_id"`
	Timestamp int64           `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

type chainEnvelope struct {
	Seq       uint64 `json:"seq"`
	EventHash string `json:"event_hash"`
	PrevHash  string `json:"prev_hash"`
}

// EventHash computes the content hash of an event, independent of its
// position in the journal.
func EventHash(evt Event) (string, error) {
	if !evt.Type.IsValid() {
		return "", fmt.Errorf("event type is required")
	}
	payload := json.RawMessage(evt.PayloadJSON)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data, err := json.Marshal(hashEnvelope{
		Type:      string(evt.Type),
		EntityID:  evt.EntityID,
		Timestamp: evt.Timestamp.UTC().UnixMilli(),
		Payload:   payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode hash envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ChainHash links evt (whose Hash and Seq are set) to the chain hash of its
// predecessor. The first event uses an empty prevHash.
func ChainHash(evt Event, prevHash string) (string, error) {
	if strings.TrimSpace(evt.Hash) == "" {
		return "", fmt.Errorf("event hash is required")
	}
	if evt.Seq == 0 {
		return "", fmt.Errorf("event seq is required")
	}
	data, err := json.Marshal(chainEnvelope{Seq: evt.Seq, EventHash: evt.Hash, PrevHash: prevHash})
	if err != nil {
		return "", fmt.Errorf("encode chain envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal assigns seq, hash and chain hash to evt given the chain hash of the
// previous event.
func Seal(evt Event, seq uint64, prevChainHash string) (Event, error) {
	evt.Seq = seq
	hash, err := EventHash(evt)
	if err != nil {
		return Event{}, err
	}
	evt.Hash = hash
	chain, err := ChainHash(evt, prevChainHash)
	if err != nil {
		return Event{}, err
	}
	evt.PrevHash = prevChainHash
	evt.ChainHash = chain
	return evt, nil
}

// VerifyChain checks that evt's hashes match its content and that it links
// to prevChainHash.
func VerifyChain(evt Event, prevChainHash string) error {
	hash, err := EventHash(evt)
	if err != nil {
		return err
	}
	if hash != evt.Hash {
		return fmt.Errorf("event %d hash mismatch", evt.Seq)
	}
	if evt.PrevHash != prevChainHash {
		return fmt.Errorf("event %d does not link to its predecessor", evt.Seq)
	}
	chain, err := ChainHash(evt, prevChainHash)
	if err != nil {
		return err
	}
	if chain != evt.ChainHash {
		return fmt.Errorf("event %d chain hash mismatch", evt.Seq)
	}
	return nil
}
