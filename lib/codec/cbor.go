// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so equal
// values always produce equal bytes. Times are RFC 3339 strings with
// nanoseconds; the default integer-seconds form would truncate run
// timestamps.
var encMode cbor.EncMode

// decMode ignores unknown fields so rows written by a newer binary
// still decode.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Stored metadata only ever has string keys.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
