package core

// Options holds the product decisions the engine exposes as parameters.
type Options struct {
	// PartnerMatchThreshold is the minimum weighted score for an existing partner to be accepted.
	PartnerMatchThreshold int
	// DefaultInboundCeiling caps inbound quantity when the destination has no declared max capacity.
	DefaultInboundCeiling int64
	// MinOrderQuantity is the floor below which a positive inbound quantity gets a warning.
	// Zero disables the warning; only a negative value is replaced by the default.
	MinOrderQuantity int64
}

// DefaultOptions returns the defaults used by the receipt forms: threshold 4, ceiling 1000, floor 10.
func DefaultOptions() Options {
	return Options{
		PartnerMatchThreshold: 4,
		DefaultInboundCeiling: 1000,
		MinOrderQuantity:      10,
	}
}

// withDefaults fills unset thresholds so a partially populated Options is still usable.
// MinOrderQuantity is the exception: zero is a meaningful setting and is kept.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PartnerMatchThreshold <= 0 {
		o.PartnerMatchThreshold = d.PartnerMatchThreshold
	}
	if o.DefaultInboundCeiling <= 0 {
		o.DefaultInboundCeiling = d.DefaultInboundCeiling
	}
	if o.MinOrderQuantity < 0 {
		o.MinOrderQuantity = d.MinOrderQuantity
	}
	return o
}
