// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract turns WARC response and resource records into the
// title and body text an index stores.
//
// For response records the archived HTTP message is parsed and its
// Content-Encoding undone before the payload is converted to UTF-8.
// HTML pages contribute their first <title> and the text outside
// script-like elements; text/plain passes through whitespace-collapsed.
// Anything else is [ErrUnsupportedMedia].
package extract
