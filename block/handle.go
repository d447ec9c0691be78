package block

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"brightchain.dev/core/checksum"
)

// Handle is the lazy, on-disk-or-cached block reference described in spec
// §3.1 BlockHandle: a checksum identity, an optional backing file path,
// access permissions, and a cache that is populated on first read and
// cleared explicitly (spec §5 resource policy).
type Handle struct {
	id         checksum.Checksum
	path       string
	canRead    bool
	canPersist bool

	mu        sync.Mutex
	cached    []byte
	hasCached bool
}

// NewHandle constructs a file-backed BlockHandle for the block identified
// by id, stored at path (spec §6.2: "the basename is the hex form of the
// block's checksum" — callers are expected to have named path that way;
// the handle itself does not enforce the naming convention).
func NewHandle(id checksum.Checksum, path string, canRead, canPersist bool) *Handle {
	return &Handle{id: id, path: path, canRead: canRead, canPersist: canPersist}
}

// ID returns the checksum this handle resolves to.
func (h *Handle) ID() checksum.Checksum { return h.id }

// CanRead reports the handle's read permission.
func (h *Handle) CanRead() bool { return h.canRead }

// CanPersist reports the handle's write permission.
func (h *Handle) CanPersist() bool { return h.canPersist }

// Data returns the block's bytes, caching them on first successful read
// (I9, P10).
func (h *Handle) Data(ctx context.Context) ([]byte, error) {
	if !h.canRead {
		return nil, &AccessError{Kind: KindNotReadable, Msg: h.id.String()}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hasCached {
		return append([]byte(nil), h.cached...), nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	raw, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &AccessError{Kind: KindFileNotFound, Msg: h.path}
		}
		return nil, err
	}

	h.cached = raw
	h.hasCached = true
	return append([]byte(nil), raw...), nil
}

// GetReadStream returns an io.Reader over the block's bytes, subject to the
// same permission and caching rules as Data.
func (h *Handle) GetReadStream(ctx context.Context) (io.Reader, error) {
	data, err := h.Data(ctx)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// GetWriteStream returns a writer that, once closed, persists its
// accumulated bytes to the handle's backing path and refreshes the cache.
// The written bytes' SHA3-512 digest must equal the handle's id or Close
// fails with *ChecksumMismatchError (I8's no-checksum-mismatch-at-rest
// requirement applied to file-backed storage).
func (h *Handle) GetWriteStream(_ context.Context) (io.WriteCloser, error) {
	if !h.canPersist {
		return nil, &AccessError{Kind: KindNotPersistable, Msg: h.id.String()}
	}
	return &handleWriter{handle: h}, nil
}

type handleWriter struct {
	handle *Handle
	buf    bytes.Buffer
}

func (w *handleWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *handleWriter) Close() error {
	data := w.buf.Bytes()
	actual := checksum.Calculate(data)
	if !actual.Equals(w.handle.id) {
		return &ChecksumMismatchError{Expected: w.handle.id, Actual: actual}
	}

	if err := os.WriteFile(w.handle.path, data, 0o644); err != nil {
		return err
	}

	w.handle.mu.Lock()
	w.handle.cached = append([]byte(nil), data...)
	w.handle.hasCached = true
	w.handle.mu.Unlock()
	return nil
}

// ClearCache drops the cached bytes. A subsequent Data call re-reads the
// backing file; if it has been removed, that call fails with
// *AccessError{Kind: KindFileNotFound} (spec §5).
func (h *Handle) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cached = nil
	h.hasCached = false
}
