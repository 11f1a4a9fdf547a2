package entity

// DocumentFingerprint identifies a document for duplicate comparison.
// Checksum is compared for exact equality; PerceptualHash by Hamming distance.
type DocumentFingerprint struct {
	Checksum       string `json:"checksum"`
	PerceptualHash string `json:"perceptual_hash,omitempty"`
}
