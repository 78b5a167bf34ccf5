package indexbuilder

import (
	"bytes"
	"context"
	"strings"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

const headerProbeBytes = 8 * 1024

// ProbeMaterialHeader issues a range request for the first 8 KiB of
// the material feed, parses the header line, and records enough
// metadata to start the chunking phase. The body is never downloaded
// here.
func ProbeMaterialHeader(ctx context.Context, store storage.ObjectStore, bucket, path string) (*schema.MaterialMeta, error) {
	res, err := store.GetRange(ctx, bucket, path, 0, headerProbeBytes)
	if err != nil {
		return nil, pipeline.ErrArtifactMissing("material feed: " + path)
	}

	rangeSupported := true
	switch res.StatusCode {
	case 206:
		rangeSupported = true
	case 200:
		if int64(len(res.Body)) > headerProbeBytes+int64(schema.RangeTolerance) {
			rangeSupported = false
		}
	default:
		return nil, pipeline.ErrArtifactMissing("material feed: unexpected status")
	}

	nl := bytes.IndexByte(res.Body, '\n')
	if nl < 0 {
		return nil, pipeline.ErrHeaderAbsent("material feed: no newline in first 8 KiB")
	}
	headerLine := strings.TrimRight(string(res.Body[:nl]), "\r")

	delim, ok := DetectDelimiter(headerLine)
	if !ok {
		return nil, pipeline.ErrDelimiterUndetectable("material feed header")
	}

	cols := strings.Split(headerLine, string(delim))
	matnrIdx, ok := ResolveColumn(cols, ColMatnr)
	if !ok {
		return nil, pipeline.ErrRequiredColumnMissing("material feed: " + ColMatnr)
	}
	mpnIdx, ok := ResolveColumn(cols, ColMPN)
	if !ok {
		return nil, pipeline.ErrRequiredColumnMissing("material feed: " + ColMPN)
	}
	eanIdx, ok := ResolveColumn(cols, ColEAN)
	if !ok {
		return nil, pipeline.ErrRequiredColumnMissing("material feed: " + ColEAN)
	}
	descIdx, ok := ResolveColumn(cols, ColDescription)
	if !ok {
		return nil, pipeline.ErrRequiredColumnMissing("material feed: " + ColDescription)
	}

	totalBytes := res.TotalBytes
	if totalBytes == 0 {
		head, err := store.Head(ctx, bucket, path)
		if err != nil {
			return nil, pipeline.ErrArtifactMissing("material feed: head")
		}
		totalBytes = head
	}

	return &schema.MaterialMeta{
		Delimiter:       delim,
		ColMatnr:        matnrIdx,
		ColMPN:          mpnIdx,
		ColEAN:          eanIdx,
		ColDesc:         descIdx,
		HeaderEndOffset: int64(nl) + 1,
		TotalBytes:      totalBytes,
		SourceBucket:    bucket,
		SourcePath:      path,
		RangeSupported:  rangeSupported,
	}, nil
}
