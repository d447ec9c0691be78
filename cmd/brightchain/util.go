package main

import (
	"bytes"
	"io"

	"brightchain.dev/core/block"
	"brightchain.dev/core/internal/randsrc"
	"brightchain.dev/core/member"
	"brightchain.dev/core/tuple"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func xorRecover(creator member.Member, prime *block.Block, whiteners, randoms []*block.Block) (*block.Block, error) {
	return tuple.XORDestPrimeWhitenedToOwned(creator, prime, whiteners, randoms, randsrc.Read)
}
