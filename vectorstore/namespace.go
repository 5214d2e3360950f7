// Package vectorstore implements semantic retrieval over per-system-message
// collections (C4, C5, C6): namespace derivation, chunking/embedding
// ingestion, top-k retrieval, and file-scoped deletion.
package vectorstore

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
)

// DatabaseIdentifier derives the stable per-deployment identifier the
// original embedded into every namespace, so that two deployments pointed
// at different databases never collide even if they happen to share a
// system-message ID: md5(f"{host}_{database}")[:12].
func DatabaseIdentifier(databaseURL string) string {
	host, database := "", ""
	if u, err := url.Parse(databaseURL); err == nil {
		host = u.Hostname()
		database = trimLeadingSlash(u.Path)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", host, database)))
	return hex.EncodeToString(sum[:])[:12]
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

// Namespace derives the chromem-go collection name for a system message,
// bit-for-bit identical to the original's
// "sm_" + md5(f"{system_message_id}_{database_identifier}")[:12].
func Namespace(systemMessageID, databaseIdentifier string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", systemMessageID, databaseIdentifier)))
	return "sm_" + hex.EncodeToString(sum[:])[:12]
}
