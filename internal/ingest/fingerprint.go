package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

// Fingerprint computes the stable identity key of a draft. Two scans
// reporting the same issue must collapse to one fingerprint, so the
// title is case-folded and whitespace-collapsed before hashing. The
// rule id sharpens identity when the tool has stable rule ids; tools
// without one fall back to a digest of the description so that
// distinct issues sharing a title on one asset stay separate.
func Fingerprint(draft models.FindingDraft) string {
	discriminator := strings.ToLower(strings.TrimSpace(draft.RuleID))
	if discriminator == "" && strings.TrimSpace(draft.Description) != "" {
		sum := sha256.Sum256([]byte(canonicalText(draft.Description)))
		discriminator = hex.EncodeToString(sum[:8])
	}

	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(draft.Tool)),
		canonicalText(draft.Title),
		models.NormalizeAssetKey(draft.AssetKey),
		discriminator,
	}, "|")

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// canonicalText lowercases and collapses all internal whitespace runs
// to single spaces.
func canonicalText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
