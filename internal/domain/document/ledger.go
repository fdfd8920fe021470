package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Ledger is the ordered endorsement history of one document.
type Ledger []Endorsement

// Append returns a new ledger with e added at the end. Earlier entries are
// never touched. Append stamps the sequence number and the hash chain.
func Append(l Ledger, e Endorsement) (Ledger, error) {
	if err := ValidatePlacement(e.Placement); err != nil {
		return nil, err
	}

	e = e.clone()
	e.Seq = len(l) + 1
	e.CreatedAt = e.CreatedAt.UTC()
	e.PrevHash = ""
	if len(l) > 0 {
		e.PrevHash = l[len(l)-1].Hash
	}
	hash, err := hashEndorsement(e)
	if err != nil {
		return nil, err
	}
	e.Hash = hash

	next := make(Ledger, len(l), len(l)+1)
	copy(next, l)
	return append(next, e), nil
}

// Verify recomputes the hash chain and reports ErrLedgerTampered when any
// entry was altered, removed or reordered.
func Verify(l Ledger) error {
	prev := ""
	for i, e := range l {
		if e.Seq != i+1 || e.PrevHash != prev {
			return fmt.Errorf("entry %d: %w", i+1, ErrLedgerTampered)
		}
		hash, err := hashEndorsement(e)
		if err != nil {
			return err
		}
		if hash != e.Hash {
			return fmt.Errorf("entry %d: %w", i+1, ErrLedgerTampered)
		}
		prev = e.Hash
	}
	return nil
}

// ValidatePlacement checks placement ranges. A nil placement is unanchored.
func ValidatePlacement(p *Placement) error {
	if p == nil {
		return nil
	}
	if math.IsNaN(p.XPercent) || math.IsNaN(p.YPercent) || math.IsNaN(p.Scale) || math.IsInf(p.Scale, 0) {
		return ErrInvalidPlacement
	}
	if p.XPercent < 0 || p.XPercent > 100 || p.YPercent < 0 || p.YPercent > 100 {
		return ErrInvalidPlacement
	}
	if !(p.Scale > 0) {
		return ErrInvalidPlacement
	}
	return nil
}

type hashInput struct {
	DocumentID       string     `json:"document_id"`
	Seq              int        `json:"seq"`
	StageIndex       int        `json:"stage_index"`
	StageRole        string     `json:"stage_role"`
	SignerID         string     `json:"signer_id"`
	SignerName       string     `json:"signer_name"`
	SignerPosition   string     `json:"signer_position"`
	Decision         Decision   `json:"decision"`
	Comment          string     `json:"comment"`
	SignatureRef     string     `json:"signature_ref"`
	Placement        *Placement `json:"placement"`
	DelegateTargetID *string    `json:"delegate_target_id"`
	IdempotencyKey   string     `json:"idempotency_key"`
	CreatedAt        string     `json:"created_at"`
	PrevHash         string     `json:"prev_hash"`
}

func hashEndorsement(e Endorsement) (string, error) {
	b, err := json.Marshal(hashInput{
		DocumentID:       e.DocumentID,
		Seq:              e.Seq,
		StageIndex:       e.StageIndex,
		StageRole:        e.StageRole,
		SignerID:         e.SignerID,
		SignerName:       e.SignerName,
		SignerPosition:   e.SignerPosition,
		Decision:         e.Decision,
		Comment:          e.Comment,
		SignatureRef:     e.SignatureRef,
		Placement:        e.Placement,
		DelegateTargetID: e.DelegateTargetID,
		IdempotencyKey:   e.IdempotencyKey,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339Nano),
		PrevHash:         e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("encoding endorsement: %w", err)
	}
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
