// Package streaming implements the StreamingPipeline (spec §4.6): the
// write-path that drains a byte stream into fixed-size padded chunks,
// assembles and persists tuples, accumulates the address list, and emits a
// signed root CBL; and a symmetric read-path Reader.
package streaming

import "fmt"

// ErrorKind is this package's terminal-error taxonomy (spec §7: "streaming
// errors are terminal for the current pipeline invocation").
type ErrorKind string

const (
	KindSourceReadFailed    ErrorKind = "SourceReadFailed"
	KindGeneratorShortfall  ErrorKind = "GeneratorShortfall"
	KindPersistenceFailed   ErrorKind = "PersistenceFailed"
	KindTupleAssemblyFailed ErrorKind = "TupleAssemblyFailed"
	KindHeaderBuildFailed   ErrorKind = "HeaderBuildFailed"
	KindEncryptionFailed    ErrorKind = "EncryptionFailed"
	KindBlockLoadFailed     ErrorKind = "BlockLoadFailed"
	KindSignatureInvalid    ErrorKind = "SignatureInvalid"
)

type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return "streaming: " + string(e.Kind)
	}
	return fmt.Sprintf("streaming: %s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}
