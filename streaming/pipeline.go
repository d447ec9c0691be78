package streaming

import (
	"context"
	"io"
	"sync"
	"time"

	"brightchain.dev/core/block"
	"brightchain.dev/core/brightlog"
	"brightchain.dev/core/cbl"
	"brightchain.dev/core/checksum"
	"brightchain.dev/core/member"
	"brightchain.dev/core/tuple"
)

// WhitenedBlockSource draws a pre-existing whitening block of the given
// size from whatever pool the caller maintains. ok=false means "none
// available", in which case the pipeline falls back to RandomBlockSource
// (spec §4.6 step 2).
type WhitenedBlockSource func(ctx context.Context, size block.Size) (blk *block.Block, ok bool, err error)

// RandomBlockSource generates a fresh cryptographically random block of the
// given size.
type RandomBlockSource func(ctx context.Context, size block.Size) (*block.Block, error)

// PersistTupleFunc persists every member of a tuple. The pipeline awaits
// its completion before advancing (spec §5 backpressure).
type PersistTupleFunc func(ctx context.Context, t *tuple.Tuple) error

// Options configures one Pipeline.Run invocation (spec §4.6 "Inputs").
type Options struct {
	Creator   member.Member
	Ecies     member.EciesService
	BlockSize block.Size

	Source       io.Reader
	SourceLength int

	WhitenedSource WhitenedBlockSource // nil is treated as always-unavailable
	RandomSource   RandomBlockSource

	PersistTuple PersistTupleFunc

	FileName string
	MimeType string

	// Encrypt, when true, wraps the root CBL body through Ecies.Encrypt
	// for RecipientPublicKey instead of emitting a plaintext CBL (spec
	// §4.6 "Encrypted variant").
	Encrypt            bool
	RecipientPublicKey []byte

	// MaxConcurrentChunks bounds how many chunk tuples are assembled and
	// persisted concurrently (spec §4.6 "tuples from successive chunks may
	// be persisted concurrently"). 0 means sequential.
	MaxConcurrentChunks int

	Logger *brightlog.Logger
}

// Result is what Run returns on success.
type Result struct {
	RootChecksum checksum.Checksum
	AddressCount int
}

// Pipeline is stateless, matching the spec's CBLService/ChecksumService/
// TupleService (spec §5 "stateless/pure and hold no locks"); all mutable
// state for one Run lives in that call's runState.
type Pipeline struct{}

// New constructs a Pipeline. There is no configuration to carry between
// calls.
func New() *Pipeline { return &Pipeline{} }

type runState struct {
	opts      Options
	addresses []checksum.Checksum
	mu        sync.Mutex
}

// Run executes the write path described in spec §4.6: chunk the source,
// assemble and persist one tuple per chunk, accumulate the address list in
// chunk order, then build, sign, wrap, and persist the root CBL tuple.
func (p *Pipeline) Run(ctx context.Context, o Options) (*Result, error) {
	if o.RandomSource == nil {
		return nil, newErr(KindGeneratorShortfall, "RandomSource is required")
	}
	if o.PersistTuple == nil {
		return nil, newErr(KindPersistenceFailed, "PersistTuple is required")
	}

	chunkCount := chunkCount(o.SourceLength, int(o.BlockSize))
	rs := &runState{opts: o, addresses: make([]checksum.Checksum, chunkCount)}

	logger := o.Logger
	if logger == nil {
		logger = brightlog.New("streaming")
	}

	concurrency := o.MaxConcurrentChunks
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	errCh := make(chan error, chunkCount)

	remaining := o.SourceLength
	for i := 0; i < chunkCount; i++ {
		chunkLen := int(o.BlockSize)
		if remaining < chunkLen {
			chunkLen = remaining
		}
		remaining -= chunkLen

		buf := make([]byte, o.BlockSize)
		if _, err := io.ReadFull(o.Source, buf[:chunkLen]); err != nil {
			return nil, newErr(KindSourceReadFailed, err.Error())
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(index, length int, data []byte) {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			prime, err := rs.processChunk(ctx, data, length)
			if err != nil {
				errCh <- err
				return
			}
			rs.mu.Lock()
			rs.addresses[index] = prime
			rs.mu.Unlock()
			logger.Op("tuple-persisted").Checksum(prime).Info("chunk tuple persisted")
		}(i, chunkLen, buf)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}

	logger.Op("chunk-drained").Info("all chunks persisted")

	root, err := rs.buildRootCBL(ctx)
	if err != nil {
		return nil, err
	}

	logger.Op("cbl-emitted").Checksum(root).Info("root CBL persisted")

	return &Result{RootChecksum: root, AddressCount: len(rs.addresses)}, nil
}

func chunkCount(sourceLength, blockSize int) int {
	if sourceLength <= 0 {
		return 1
	}
	n := sourceLength / blockSize
	if sourceLength%blockSize != 0 {
		n++
	}
	return n
}

// processChunk builds the ephemeral source block for one chunk, draws its
// randoms/whiteners, XORs the tuple, persists it, and returns the prime's
// checksum (spec §4.6 step 2-3).
func (rs *runState) processChunk(ctx context.Context, data []byte, length int) (checksum.Checksum, error) {
	o := rs.opts

	source, err := block.NewEphemeralBlock(block.EphemeralOpts{
		BlockType:              block.TypeEphemeralOwnedDataBlock,
		DataType:               block.DataTypeRawData,
		Size:                   o.BlockSize,
		Data:                   data,
		Creator:                o.Creator,
		LengthBeforeEncryption: &length,
	})
	if err != nil {
		return checksum.Checksum{}, newErr(KindTupleAssemblyFailed, err.Error())
	}

	tup, err := rs.assembleTuple(ctx, source)
	if err != nil {
		return checksum.Checksum{}, err
	}
	if err := o.PersistTuple(ctx, tup); err != nil {
		return checksum.Checksum{}, newErr(KindPersistenceFailed, err.Error())
	}
	return tup.Prime().IDChecksum(), nil
}

// assembleTuple draws RandomBlocksPerTuple random blocks, fills the
// remaining tuple slots from WhitenedSource (falling back to fresh random
// blocks when none are available), and computes the source's
// prime-whitened XOR (spec §4.4, §4.6 step 2).
func (rs *runState) assembleTuple(ctx context.Context, source *block.Block) (*tuple.Tuple, error) {
	o := rs.opts

	randoms := make([]*block.Block, 0, tuple.RandomBlocksPerTuple)
	for i := 0; i < tuple.RandomBlocksPerTuple; i++ {
		r, err := o.RandomSource(ctx, o.BlockSize)
		if err != nil {
			return nil, newErr(KindGeneratorShortfall, err.Error())
		}
		randoms = append(randoms, r)
	}

	whitenerCount := tuple.Size - 1 - len(randoms)
	whiteners := make([]*block.Block, 0, whitenerCount)
	for i := 0; i < whitenerCount; i++ {
		var w *block.Block
		if o.WhitenedSource != nil {
			candidate, ok, err := o.WhitenedSource(ctx, o.BlockSize)
			if err != nil {
				return nil, newErr(KindGeneratorShortfall, err.Error())
			}
			if ok {
				w = candidate
			}
		}
		if w == nil {
			fresh, err := o.RandomSource(ctx, o.BlockSize)
			if err != nil {
				return nil, newErr(KindGeneratorShortfall, err.Error())
			}
			w = fresh
		}
		whiteners = append(whiteners, w)
	}

	tup, err := tuple.MakeTupleFromSourceXor(source, whiteners, randoms)
	if err != nil {
		return nil, newErr(KindTupleAssemblyFailed, err.Error())
	}
	return tup, nil
}

// buildRootCBL constructs, signs, wraps, and persists the root CBL (spec
// §4.6 step 4; encrypted variant per the paragraph below it).
func (rs *runState) buildRootCBL(ctx context.Context) (checksum.Checksum, error) {
	o := rs.opts

	headerBytes, err := cbl.Build(cbl.BuildOpts{
		Creator:            o.Creator,
		Ecies:              o.Ecies,
		DateCreated:        time.Now(),
		Addresses:          rs.addresses,
		OriginalDataLength: uint32(o.SourceLength),
		BlockSize:          uint32(o.BlockSize),
		FileName:           o.FileName,
		MimeType:           o.MimeType,
	})
	if err != nil {
		return checksum.Checksum{}, newErr(KindHeaderBuildFailed, err.Error())
	}

	cblBody := make([]byte, 0, len(headerBytes)+len(rs.addresses)*checksum.Length)
	cblBody = append(cblBody, headerBytes...)
	for _, a := range rs.addresses {
		cblBody = append(cblBody, a.Bytes()...)
	}

	blockType := block.TypeConstituentBlockList
	if o.FileName != "" || o.MimeType != "" {
		blockType = block.TypeExtendedConstituentBlockListBlock
	}

	var cblBlock *block.Block
	if o.Encrypt {
		// Encrypted variant skips the padding transform: the ciphertext's
		// own length is authoritative (spec §4.6 "Encrypted variant").
		ciphertext, err := o.Ecies.Encrypt(o.RecipientPublicKey, cblBody)
		if err != nil {
			return checksum.Checksum{}, newErr(KindEncryptionFailed, err.Error())
		}
		ephPub, iv, tag, body := splitEciesEnvelope(ciphertext)
		encType := block.TypeEncryptedCBL
		if blockType == block.TypeExtendedConstituentBlockListBlock {
			encType = block.TypeEncryptedExtendedCBL
		}
		cblBlock, err = block.NewEncryptedBlock(block.EncryptedOpts{
			BlockType:          encType,
			DataType:           block.DataTypeEncrypted,
			Size:               o.BlockSize,
			EphemeralPublicKey: ephPub,
			IV:                 iv,
			AuthTag:            tag,
			Ciphertext:         body,
		})
		if err != nil {
			return checksum.Checksum{}, newErr(KindHeaderBuildFailed, err.Error())
		}
	} else {
		cblBlock, err = block.NewTypedBlock(o.BlockSize, blockType, block.DataTypeRawData, cblBody, true, true)
		if err != nil {
			return checksum.Checksum{}, newErr(KindHeaderBuildFailed, err.Error())
		}
	}

	rootTuple, err := rs.assembleTuple(ctx, cblBlock)
	if err != nil {
		return checksum.Checksum{}, err
	}
	if err := o.PersistTuple(ctx, rootTuple); err != nil {
		return checksum.Checksum{}, newErr(KindPersistenceFailed, err.Error())
	}
	return rootTuple.Prime().IDChecksum(), nil
}

// splitEciesEnvelope divides member.DefaultEcies.Encrypt's output
// (ephemeralPublicKey(32) || nonce(24) || sealed) into the four components
// block.EncryptedOpts expects, treating AEAD's trailing 16-byte Poly1305
// tag as the authTag field.
func splitEciesEnvelope(envelope []byte) (ephPub, iv, tag, ciphertext []byte) {
	const pubSize, nonceSize, tagSize = 32, 24, 16
	ephPub = envelope[:pubSize]
	iv = envelope[pubSize : pubSize+nonceSize]
	sealed := envelope[pubSize+nonceSize:]
	tag = sealed[len(sealed)-tagSize:]
	ciphertext = sealed[:len(sealed)-tagSize]
	return
}
