package harness

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/okian/fairness/internal/domain/types"
)

// vectorDigest hashes a fixed big-endian encoding of one vector's output:
// u32 index, u16-prefixed id, i64 score, weighted and model, u32 rank,
// u8 count of clamped names each u8-prefixed.
func vectorDigest(v *types.VectorResult) string {
	buf := make([]byte, 0, 64+len(v.ValidatorID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(v.Index))            //nolint:gosec // corpus size is bounded
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(v.ValidatorID))) //nolint:gosec // ids are short
	buf = append(buf, v.ValidatorID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(v.Score))    //nolint:gosec // two's complement bytes
	buf = binary.BigEndian.AppendUint64(buf, uint64(v.Weighted)) //nolint:gosec // two's complement bytes
	buf = binary.BigEndian.AppendUint64(buf, uint64(v.Model))    //nolint:gosec // two's complement bytes
	buf = binary.BigEndian.AppendUint32(buf, uint32(v.Rank))     //nolint:gosec // rank is bounded by corpus size
	buf = append(buf, byte(len(v.Clamped)))
	for _, name := range v.Clamped {
		buf = append(buf, byte(len(name)))
		buf = append(buf, name...)
	}
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// finalDigest hashes the concatenated raw vector digests in corpus order.
func finalDigest(results []types.VectorResult) (string, error) {
	h := blake3.New(32, nil)
	for i := range results {
		raw, err := hex.DecodeString(results[i].Digest)
		if err != nil {
			return "", err
		}
		_, _ = h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
