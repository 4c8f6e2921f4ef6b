// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fairuse/warcindex/lib/ingest"
)

// writeSummaries prints the human-readable run report.
func writeSummaries(w io.Writer, summaries []ingest.Summary) {
	for _, summary := range summaries {
		fmt.Fprintf(w, "%s: %s\n", summary.Archive, summary.Status)
		fmt.Fprintf(w, "  records     %s seen, %s parsed, %s parse failures, %s skipped\n",
			count(summary.TotalSeen), count(summary.Parsed), count(summary.ParseFailures), count(summary.Skipped))
		fmt.Fprintf(w, "  indexed     %s documents in %s commits (%s duplicates, %s extraction failures)\n",
			count(summary.Indexed), count(summary.Commits), count(summary.Duplicates), count(summary.ExtractFailures))
		if summary.DictionaryKind != "" {
			fmt.Fprintf(w, "  dictionary  %s, %s frame, id %d, fingerprint %s\n",
				summary.DictionaryKind, humanize.IBytes(uint64(summary.DictionaryLength)),
				summary.DictionaryID, summary.DictionaryFingerprint)
		}
		fmt.Fprintf(w, "  read        %s compressed, %s decoded in %s\n",
			humanize.Bytes(uint64(summary.CompressedBytes)), humanize.Bytes(uint64(summary.DecodedBytes)),
			summary.Duration().Round(time.Millisecond))
		if summary.Error != "" {
			fmt.Fprintf(w, "  error       %s\n", summary.Error)
		}
	}
}

func count(n uint64) string {
	return humanize.Comma(int64(n))
}
