package account

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrWrongType is returned when the leading discriminator or magic header
	// does not match the requested record kind.
	ErrWrongType = errors.New("account type mismatch")
	// ErrTruncated is returned when the buffer is shorter than the fixed layout.
	ErrTruncated = errors.New("account data truncated")
)

// DiscriminatorSize is the length of an Anchor account discriminator.
const DiscriminatorSize = 8

// Discriminator returns the Anchor discriminator for an account type name,
// sha256("account:<name>")[:8].
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var out [DiscriminatorSize]byte
	copy(out[:], sum[:DiscriminatorSize])
	return out
}

func checkSize(kind string, data []byte, size int) error {
	if len(data) < size {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncated, kind, size, len(data))
	}
	return nil
}

// reader reads little-endian fields at absolute offsets. Callers check the
// buffer size beforehand.
type reader []byte

func (r reader) u32(off int) uint32 { return binary.LittleEndian.Uint32(r[off:]) }
func (r reader) i32(off int) int32 { return int32(r.u32(off)) }
func (r reader) u64(off int) uint64 { return binary.LittleEndian.Uint64(r[off:]) }
func (r reader) i64(off int) int64 { return int64(r.u64(off)) }

func (r reader) pubkey(off int) solana.PublicKey {
	return solana.PublicKeyFromBytes(r[off : off+solana.PublicKeyLength])
}

type writer []byte

func (w writer) u32(off int, v uint32) { binary.LittleEndian.PutUint32(w[off:], v) }
func (w writer) i32(off int, v int32) { w.u32(off, uint32(v)) }
func (w writer) u64(off int, v uint64) { binary.LittleEndian.PutUint64(w[off:], v) }
func (w writer) i64(off int, v int64) { w.u64(off, uint64(v)) }

func (w writer) pubkey(off int, key solana.PublicKey) {
	copy(w[off:off+solana.PublicKeyLength], key[:])
}
