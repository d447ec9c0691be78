// Command brightchain is a CLI over the core block/tuple/CBL/streaming
// packages: put a file into a store as a tuple-whitened CBL tree, get one
// back out, or verify a root CBL's signature, grounded on
// cmd/rubin-node/main.go's run(args, stdout, stderr) separation and
// cmd/synnergy/main.go's cobra command tree.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"brightchain.dev/core/block"
	"brightchain.dev/core/brightlog"
	"brightchain.dev/core/cbl"
	"brightchain.dev/core/checksum"
	"brightchain.dev/core/internal/randsrc"
	"brightchain.dev/core/magnet"
	"brightchain.dev/core/member"
	"brightchain.dev/core/store"
	"brightchain.dev/core/streaming"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var dataDir string

	root := &cobra.Command{
		Use:           "brightchain",
		Short:         "Owner-Free File System block store CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&dataDir, "datadir", "./brightchain-data", "directory holding the block store, tuple index, and identity")

	root.AddCommand(newPutCommand(&dataDir, stdout), newGetCommand(&dataDir, stdout), newVerifyCBLCommand(&dataDir, stdout))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "brightchain:", err)
		return 1
	}
	return 0
}

func newPutCommand(dataDir *string, stdout io.Writer) *cobra.Command {
	var blockSizeFlag uint32
	var fileName, mimeType string

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Chunk, tuple-whiten, and store a file, printing its magnet URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := block.Size(blockSizeFlag)
			if err := block.Validate(size); err != nil {
				return err
			}

			env, err := openEnvironment(*dataDir)
			if err != nil {
				return err
			}
			defer env.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			if fileName == "" {
				fileName = filepath.Base(args[0])
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			result, err := streaming.New().Run(ctx, streaming.Options{
				Creator:      env.identity,
				Ecies:        member.DefaultEcies{},
				BlockSize:    size,
				Source:       bytesReader(data),
				SourceLength: len(data),
				RandomSource: randomBlockSource,
				PersistTuple: persistTupleFunc(env.store, env.index),
				FileName:     fileName,
				MimeType:     mimeType,
				Logger:       brightlog.New("cli"),
			})
			if err != nil {
				return fmt.Errorf("put: %w", err)
			}

			url := magnet.Encode(result.RootChecksum, uint32(size), fileName)
			fmt.Fprintln(stdout, url)
			return nil
		},
	}

	cmd.Flags().Uint32Var(&blockSizeFlag, "block-size", uint32(block.SizeSmall), "chunk size (one of the closed BlockSize set)")
	cmd.Flags().StringVar(&fileName, "filename", "", "extended CBL filename (defaults to the input file's base name)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "extended CBL MIME type")
	return cmd
}

func newGetCommand(dataDir *string, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <magnet-url> <output-file>",
		Short: "Reconstruct a file from its magnet URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := magnet.Parse(args[0])
			if err != nil {
				return err
			}

			env, err := openEnvironment(*dataDir)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			data, err := streaming.NewReader().Run(ctx, streaming.ReaderOptions{
				Creator:      env.identity,
				RootChecksum: m.RootChecksum,
				MaxDepth:     16,
			}, tupleLoader(env.store, env.index, block.Size(m.BlockSize)))
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}

			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Fprintf(stdout, "wrote %d bytes to %s\n", len(data), args[1])
			return nil
		},
	}
	return cmd
}

func newVerifyCBLCommand(dataDir *string, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-cbl <magnet-url>",
		Short: "Verify a root CBL's signature against the local identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := magnet.Parse(args[0])
			if err != nil {
				return err
			}

			env, err := openEnvironment(*dataDir)
			if err != nil {
				return err
			}
			defer env.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			rootData, err := resolveBlock(ctx, env.identity, env.store, env.index, block.Size(m.BlockSize), m.RootChecksum)
			if err != nil {
				return fmt.Errorf("verify-cbl: resolve root: %w", err)
			}

			signPub := env.identity.PublicKey()[:32]

			if cbl.IsSuperCBL(rootData) {
				super, err := cbl.ParseSuper(rootData)
				if err != nil {
					return err
				}
				subs, err := cbl.ReadAddresses(rootData, super.HeaderLength(), super.SubCblCount)
				if err != nil {
					return err
				}
				ok, err := cbl.VerifySuper(super, subs, m.BlockSize, signPub, member.DefaultEcies{})
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "super-cbl valid=%t subCblCount=%d totalBlockCount=%d originalDataLength=%d\n",
					ok, super.SubCblCount, super.TotalBlockCount, super.OriginalDataLength)
				return nil
			}

			header, err := cbl.Parse(rootData)
			if err != nil {
				return err
			}
			addresses, err := cbl.ReadAddresses(rootData, header.HeaderLength(), header.AddressCount)
			if err != nil {
				return err
			}
			ok, err := cbl.Verify(header, addresses, m.BlockSize, signPub, member.DefaultEcies{})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "cbl valid=%t addressCount=%d originalDataLength=%d\n",
				ok, header.AddressCount, header.OriginalDataLength)
			return nil
		},
	}
	return cmd
}

// environment bundles the store/index/identity every subcommand opens from
// --datadir, grounded on cmd/rubin-node/main.go's single bootstrap step
// building a node.Config into concrete store/network handles.
type environment struct {
	store    store.BlockStore
	index    *tupleIndex
	identity *member.LocalMember
}

func openEnvironment(dataDir string) (*environment, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create datadir: %w", err)
	}

	bs, err := store.OpenBoltStore(filepath.Join(dataDir, "blocks.db"))
	if err != nil {
		return nil, err
	}

	idx, err := openTupleIndex(filepath.Join(dataDir, "tupleindex.json"))
	if err != nil {
		_ = bs.Close()
		return nil, err
	}

	identity, err := loadOrCreateIdentity(filepath.Join(dataDir, "identity.json"))
	if err != nil {
		_ = bs.Close()
		return nil, err
	}

	return &environment{store: bs, index: idx, identity: identity}, nil
}

func (e *environment) close() error {
	return e.store.Close()
}

func randomBlockSource(ctx context.Context, size block.Size) (*block.Block, error) {
	return block.NewRandomBlock(size, randsrc.Read)
}

// resolveBlock is verify-cbl's one-shot version of what a Reader.Run walk
// repeats for every chunk: load a tuple by its prime checksum and XOR-
// recover the owned plaintext (spec §4.6 step 4 applies to CBL bodies too).
func resolveBlock(ctx context.Context, creator member.Member, bs store.BlockStore, idx *tupleIndex, size block.Size, id checksum.Checksum) ([]byte, error) {
	load := tupleLoader(bs, idx, size)
	prime, whiteners, randoms, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	owned, err := xorRecover(creator, prime, whiteners, randoms)
	if err != nil {
		return nil, err
	}
	length, ok := owned.LengthBeforeEncryption()
	if !ok {
		length = int(owned.Size())
	}
	return owned.Data()[:length], nil
}
