package sio

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync/atomic"
)

const base64IDSize = 15

var (
	errBase64IDInvalidSize = errors.New("sio: base64 ID generation failed: invalid size")

	// Sequence number to prevent ID overlaps.
	base64IDSeq atomic.Uint32
)

func generateBase64ID(size int) (string, error) {
	if size <= 4 {
		return "", errBase64IDInvalidSize
	}

	seq := base64IDSeq.Add(1) - 1

	b := make([]byte, size)
	seqOffset := size - 4

	binary.BigEndian.PutUint32(b[seqOffset:], seq)

	_, err := rand.Read(b[:seqOffset])
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}
