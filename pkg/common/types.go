// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package common

import (
	"time"
)

// Metadata is the per-object information a backend reports while listing.
// LastModified is assigned by the store, not the writer, and is what every
// strategy compares against the watermark.
type Metadata struct {
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}

// ObjectInfo is one listing entry. Key is the full object name,
// entity/partition/id for records written by ingest.
type ObjectInfo struct {
	Key      string    `json:"key"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// LastModified returns the object's modification time, or the zero time
// when the backend did not report metadata.
func (o ObjectInfo) LastModified() time.Time {
	if o.Metadata == nil {
		return time.Time{}
	}
	return o.Metadata.LastModified
}

// Size returns the object's size, or 0 when unknown.
func (o ObjectInfo) Size() int64 {
	if o.Metadata == nil {
		return 0
	}
	return o.Metadata.Size
}

// ListOptions configures one page of ListWithOptions. MaxResults <= 0 uses
// the backend default; ContinueFrom is the previous page's NextToken.
type ListOptions struct {
	Prefix       string
	MaxResults   int
	ContinueFrom string
}

// ListResult is one page of a listing. NextToken is empty on the last page.
type ListResult struct {
	Objects   []*ObjectInfo
	NextToken string
	Truncated bool
}
