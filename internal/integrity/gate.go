// Package integrity is the fail-closed loading gate for D-GBDT models.
//
// A model is accepted only when the BLAKE3-256 digest of the file's raw
// bytes equals the operator's pinned hash, every numeric literal is a plain
// integer, the tree structure is valid and the bytes are the canonical
// encoding of the decoded model.
package integrity

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/pkg/logger"
	"github.com/okian/fairness/pkg/metrics"
)

// Gate outcome labels.
const (
	ResultOK        = "ok"
	ResultPin       = "pin_error"
	ResultRead      = "read_error"
	ResultIntegrity = "integrity_error"
	ResultFormat    = "format_error"
)

// Artifact is a verified model together with its provenance.
type Artifact struct {
	Model    *dgbdt.Model
	Hash     string
	Path     string
	Size     int
	LoadedAt time.Time
}

// Digest returns the lowercase hex BLAKE3-256 of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ParsePin normalizes and decodes an operator-supplied hash.
func ParsePin(expectedHash string) ([]byte, error) {
	pin := strings.ToLower(strings.TrimSpace(expectedHash))
	if pin == "" {
		return nil, ErrMissingPin
	}
	if len(pin) != 64 {
		return nil, fmt.Errorf("%w: got %d characters", ErrInvalidPin, len(pin))
	}
	b, err := hex.DecodeString(pin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPin, err)
	}
	return b, nil
}

// Load runs the full gate against the pinned hash.
func Load(ctx context.Context, path, expectedHash string, opts ...Option) (*Artifact, error) {
	o := newGateOptions(opts)

	pin, err := ParsePin(expectedHash)
	if err != nil {
		o.fail(ctx, ResultPin, path, err)
		return nil, err
	}
	data, err := readModel(ctx, path, o.maxBytes)
	if err != nil {
		o.fail(ctx, ResultRead, path, err)
		return nil, err
	}

	sum := blake3.Sum256(data)
	if subtle.ConstantTimeCompare(sum[:], pin) != 1 {
		ierr := &IntegrityError{Path: path, Expected: hex.EncodeToString(pin), Actual: hex.EncodeToString(sum[:])}
		o.fail(ctx, ResultIntegrity, path, ierr)
		return nil, ierr
	}

	art, err := verifyFormat(data, path, hex.EncodeToString(sum[:]))
	if err != nil {
		o.fail(ctx, ResultFormat, path, err)
		return nil, err
	}

	metrics.RecordModelLoad(ResultOK)
	o.log.Info(ctx, "model verified",
		logger.String("path", path),
		logger.String("hash", art.Hash),
		logger.Int("trees", len(art.Model.Trees)),
		logger.Int("nodes", art.Model.NodeCount()),
	)
	return art, nil
}

// Inspect runs the format checks without a pin. It is for tooling that
// computes or rotates pins and must never admit a model for scoring.
func Inspect(ctx context.Context, path string, opts ...Option) (*Artifact, error) {
	o := newGateOptions(opts)
	data, err := readModel(ctx, path, o.maxBytes)
	if err != nil {
		return nil, err
	}
	return verifyFormat(data, path, Digest(data))
}

// HashFile returns the digest and size of a file's raw bytes without any
// format check. It is the pinning step of a model rotation.
func HashFile(ctx context.Context, path string, opts ...Option) (string, int, error) {
	o := newGateOptions(opts)
	data, err := readModel(ctx, path, o.maxBytes)
	if err != nil {
		return "", 0, err
	}
	return Digest(data), len(data), nil
}

func verifyFormat(data []byte, path, hash string) (*Artifact, error) {
	m, err := dgbdt.Decode(data)
	if err != nil {
		return nil, err
	}
	canonical, err := dgbdt.IsCanonical(data, m)
	if err != nil {
		return nil, &dgbdt.FormatError{Reason: "re-encode", Err: err}
	}
	if !canonical {
		return nil, &dgbdt.FormatError{Reason: "not canonical; run `fairness canonicalize` and re-pin the hash"}
	}
	return &Artifact{Model: m, Hash: hash, Path: path, Size: len(data), LoadedAt: time.Now()}, nil
}

func readModel(ctx context.Context, path string, maxBytes int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s larger than %d bytes", ErrTooLarge, path, maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return data, nil
}

func (o gateOptions) fail(ctx context.Context, result, path string, err error) {
	metrics.RecordModelLoad(result)
	metrics.RecordErrorByComponent("integrity", result)
	var ierr *IntegrityError
	if errors.As(err, &ierr) {
		o.log.Error(ctx, "model hash mismatch, refusing to load",
			logger.String("path", path),
			logger.String("expected", ierr.Expected),
			logger.String("actual", ierr.Actual),
		)
		return
	}
	o.log.Error(ctx, "model rejected", logger.String("path", path), logger.String("result", result), logger.Error(err))
}
