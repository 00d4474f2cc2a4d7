package types

import (
	"encoding/json"
	"reflect"
)

// Reserved line item metadata keys.
const (
	MetadataKeyGiftWrapLine = "gift_wrap_line"
	MetadataKeyGiftWrapFee  = "gift_wrap_fee"
)

// MetadataKeyRewardsToApply is the cart-level metadata key carrying the
// requested reward spend in cents.
const MetadataKeyRewardsToApply = "rewards_to_apply"

// Metadata is the open key-value bag carried by carts and line items.
type Metadata map[string]any

// Equal reports deep equality, with nil and empty treated as the same bag.
// Numbers compare by value rather than Go type: the same bag arrives as int
// from caller input and as float64 once a server snapshot has been through
// JSON decoding.
func (m Metadata) Equal(other Metadata) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		return ok && an == bn
	}
	if am, ok := asBag(a); ok {
		bm, ok := asBag(b)
		return ok && am.Equal(bm)
	}
	if as, ok := a.([]any); ok {
		bs, ok := b.([]any)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !valueEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func asBag(v any) (Metadata, bool) {
	switch b := v.(type) {
	case Metadata:
		return b, true
	case map[string]any:
		return Metadata(b), true
	}
	return nil, false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Clone returns a shallow copy safe for independent key mutation.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsGiftWrapLine reports whether the bag marks a synthetic gift-wrap charge.
func (m Metadata) IsGiftWrapLine() bool {
	flag, ok := m[MetadataKeyGiftWrapLine].(bool)
	return ok && flag
}

// GiftWrapFeeCents returns the fee stored in the bag, or the fallback when
// absent or malformed.
func (m Metadata) GiftWrapFeeCents(fallback int64) int64 {
	if v, ok := m[MetadataKeyGiftWrapFee]; ok {
		if cents, ok := toCents(v); ok {
			return cents
		}
	}
	return fallback
}

// RewardsToApplyCents returns the requested reward spend, defaulting to 0.
func (m Metadata) RewardsToApplyCents() int64 {
	if v, ok := m[MetadataKeyRewardsToApply]; ok {
		if cents, ok := toCents(v); ok {
			return cents
		}
	}
	return 0
}

// toCents coerces the numeric shapes JSON decoding can produce.
func toCents(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if parsed, err := n.Int64(); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
