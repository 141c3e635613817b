package archiver

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

var rawBuilder = cid.V1Builder{Codec: cid.Raw, MhType: mh.SHA2_256}

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data in its default
// base32 string form.
func ComputeCID(data []byte) (string, error) {
	c, err := rawBuilder.Sum(data)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ParseCID validates s as a CID of any version.
func ParseCID(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("invalid cid %q: %w", s, err)
	}
	return c, nil
}

// Verify checks that data hashes to id using the prefix encoded in id.
func Verify(id string, data []byte) (bool, error) {
	c, err := ParseCID(id)
	if err != nil {
		return false, err
	}
	got, err := c.Prefix().Sum(data)
	if err != nil {
		return false, err
	}
	return got.Equals(c), nil
}
