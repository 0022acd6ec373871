package domain

// TargetKind is what a raw scan target was recognized as
type TargetKind string

const (
	TargetAddressRange TargetKind = "range"
	TargetAddress      TargetKind = "address"
	TargetDomain       TargetKind = "domain"
	TargetSkip         TargetKind = "skip"
)
