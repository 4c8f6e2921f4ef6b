// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// documentDomainKey separates document identities from any other
// BLAKE3 use. Changing it changes every document ID.
var documentDomainKey = [32]byte{
	'w', 'a', 'r', 'c', 'i', 'n', 'd', 'e', 'x', '.', 'd', 'o', 'c', 'u', 'm', 'e',
	'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DocumentID identifies a capture by its target and its exact record
// body. Recrawls of an unchanged page share an ID and are indexed
// once; any byte of difference yields a new document.
func DocumentID(targetURI string, body []byte) string {
	hasher, err := blake3.NewKeyed(documentDomainKey[:])
	if err != nil {
		// Only a wrong key length fails, and the key is fixed-size.
		panic("ingest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(targetURI))
	hasher.Write([]byte{0})
	hasher.Write(body)
	return hex.EncodeToString(hasher.Sum(nil))
}
