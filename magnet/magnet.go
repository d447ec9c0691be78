package magnet

import (
	"fmt"
	"net/url"
	"strconv"

	"brightchain.dev/core/checksum"
)

// URNScheme prefixes the xt parameter's value, identifying the checksum as
// a BrightChain root CBL address rather than some other magnet-URI xt
// namespace (spec §6.1 "prefixed with a BrightChain urn scheme").
const URNScheme = "urn:brightchain:"

// Magnet is the decoded form of a root CBL's magnet URL.
type Magnet struct {
	RootChecksum checksum.Checksum
	BlockSize    uint32
	DisplayName  string // empty unless dn was present
}

// Encode builds a "magnet:?xt=...&xs=...[&dn=...]" URL addressing root
// under blockSize, with an optional display name for extended CBLs.
func Encode(root checksum.Checksum, blockSize uint32, displayName string) string {
	q := url.Values{}
	q.Set("xt", URNScheme+checksum.ToHex(root))
	q.Set("xs", strconv.FormatUint(uint64(blockSize), 10))
	if displayName != "" {
		q.Set("dn", displayName)
	}
	return "magnet:?" + q.Encode()
}

// Parse decodes a magnet URL back into its root checksum, block size, and
// optional display name, failing with the spec §6.1
// TupleStorageError::InvalidMagnetURL* taxonomy on any malformed or
// missing required parameter.
func Parse(raw string) (*Magnet, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newErr(KindInvalidMagnetURLScheme, err.Error())
	}
	if u.Scheme != "magnet" {
		return nil, newErr(KindInvalidMagnetURLScheme, fmt.Sprintf("scheme %q is not magnet", u.Scheme))
	}

	q := u.Query()

	xt := q.Get("xt")
	if xt == "" {
		return nil, newErr(KindInvalidMagnetURLMissingXT, "xt parameter is required")
	}
	if len(xt) <= len(URNScheme) || xt[:len(URNScheme)] != URNScheme {
		return nil, newErr(KindInvalidMagnetURLChecksum, "xt is not a "+URNScheme+" urn")
	}
	root, err := checksum.FromHex(xt[len(URNScheme):])
	if err != nil {
		return nil, newErr(KindInvalidMagnetURLChecksum, err.Error())
	}

	xs := q.Get("xs")
	if xs == "" {
		return nil, newErr(KindInvalidMagnetURLMissingXS, "xs parameter is required")
	}
	blockSize, err := strconv.ParseUint(xs, 10, 32)
	if err != nil {
		return nil, newErr(KindInvalidMagnetURLSize, err.Error())
	}

	return &Magnet{
		RootChecksum: root,
		BlockSize:    uint32(blockSize),
		DisplayName:  q.Get("dn"),
	}, nil
}
