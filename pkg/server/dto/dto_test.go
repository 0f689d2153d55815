package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func TestReasonRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  ReasonRequest
		want error
	}{
		{"ok", ReasonRequest{Query: "Who manages BLACKPINK?"}, nil},
		{"empty", ReasonRequest{Query: " "}, ErrEmptyQuery},
		{"too long", ReasonRequest{Query: strings.Repeat("a", MaxQueryLength+1)}, ErrQueryTooLong},
		{"negative hops", ReasonRequest{Query: "q", Hops: -1}, ErrInvalidHops},
		{"too many hops", ReasonRequest{Query: "q", Hops: MaxHops + 1}, ErrInvalidHops},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBatchReasonRequestValidate(t *testing.T) {
	assert.ErrorIs(t, (&BatchReasonRequest{}).Validate(), ErrEmptyQueries)
	assert.ErrorIs(t, (&BatchReasonRequest{Queries: make([]string, MaxBatchQueries+1)}).Validate(), ErrTooManyQueries)

	err := (&BatchReasonRequest{Queries: []string{"ok", ""}}).Validate()
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Contains(t, err.Error(), "query 1")
}

func TestIngestRequestValidate(t *testing.T) {
	assert.ErrorIs(t, (&IngestRequest{}).Validate(), ErrEmptyBatch)
	req := IngestRequest{Batch: types.Batch{Aliases: []types.AliasRecord{{Alias: "YG", ID: "YG Entertainment"}}}}
	assert.NoError(t, req.Validate())
}

func TestPathsRequestValidate(t *testing.T) {
	assert.ErrorIs(t, (&PathsRequest{Source: "a"}).Validate(), ErrMissingEndpoint)
	assert.ErrorIs(t, (&PathsRequest{Source: "a", Target: "b", MaxHops: 4}).Validate(), ErrInvalidHops)
	assert.NoError(t, (&PathsRequest{Source: "a", Target: "b"}).Validate())
}
