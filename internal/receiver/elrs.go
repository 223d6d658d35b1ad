//go:build elrs

package receiver

// ELRSDecoder reuses the CRSF frame format ELRS speaks over the air;
// ported from an earlier elrs.go type alias.
type ELRSDecoder = CRSFDecoder

// NewDecoder returns the build-selected Decoder for this target.
func NewDecoder() Decoder { return &ELRSDecoder{state: crsfDestination} }
