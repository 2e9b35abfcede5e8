// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package rediscache

import (
	"bytes"
	"compress/gzip"
	"io"
	"time"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// envelope wraps every cached payload with the bookkeeping spec.md §4.2
// and §9 call for: a generic, dispatched encode/decode format any caller's
// payload rides inside, independent of what that payload actually is.
type envelope struct {
	Payload   []byte    `codec:"payload"`
	CachedAt  time.Time `codec:"cached_at"`
	ExpiresAt time.Time `codec:"expires_at"`
	Version   int       `codec:"version"`
}

const envelopeVersion = 1

// compressionThreshold is the encoded-size cutoff above which a gzip
// wrapper is applied, per spec.md §4.2.
const compressionThreshold = 1024

var mh = &codec.MsgpackHandle{}

func encodeEnvelopeExported(payload []byte, ttl time.Duration, now time.Time, compress bool) ([]byte, error) {
	env := envelope{
		Payload:   payload,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
		Version:   envelopeVersion,
	}
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, mh)
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	raw := buf.Bytes()
	if !compress || len(raw) <= compressionThreshold {
		return append([]byte{0}, raw...), nil
	}
	var gzBuf bytes.Buffer
	gzBuf.WriteByte(1)
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(raw); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return gzBuf.Bytes(), nil
}

// decodeEnvelopeExported reverses encodeEnvelopeExported. The leading flag
// byte says whether the body is gzipped; an unrecognized flag falls back
// to a raw decode attempt of the whole buffer, covering envelopes written
// before the flag byte existed.
func decodeEnvelopeExported(data []byte) (envelope, error) {
	var env envelope
	if len(data) == 0 {
		return env, io.ErrUnexpectedEOF
	}
	flag, body := data[0], data[1:]
	switch flag {
	case 1:
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return env, err
		}
		defer gr.Close()
		dec := codec.NewDecoder(gr, mh)
		err = dec.Decode(&env)
		return env, err
	case 0:
		dec := codec.NewDecoder(bytes.NewReader(body), mh)
		err := dec.Decode(&env)
		return env, err
	default:
		dec := codec.NewDecoder(bytes.NewReader(data), mh)
		err := dec.Decode(&env)
		return env, err
	}
}
