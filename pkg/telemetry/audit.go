package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// QueryRecord is one audited reasoning call.
type QueryRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	RequestID     string    `parquet:"request_id"`
	RequestSource string    `parquet:"request_source"`
	Query         string    `parquet:"query"`
	Intent        string    `parquet:"intent"`
	Strategy      string    `parquet:"strategy"`
	Outcome       string    `parquet:"outcome"`
	Confidence    float64   `parquet:"confidence"`
	Hops          int       `parquet:"hops"`
	Entities      string    `parquet:"entities"` // comma separated canonical ids
	Answers       int       `parquet:"answers"`
	ErrorCode     string    `parquet:"error_code"`
	UsedHint      bool      `parquet:"used_hint"`
	DurationMS    float64   `parquet:"duration_ms"`
}

// QueryAudit keeps reasoning results in Parquet files.
type QueryAudit struct {
	sink *sink[QueryRecord]
}

// NewQueryAudit creates an audit writing under dir, one file per batchSize
// records. A batchSize of zero uses DefaultBatchSize.
func NewQueryAudit(dir string, batchSize int) (*QueryAudit, error) {
	s, err := newSink[QueryRecord](dir, "queries", batchSize)
	if err != nil {
		return nil, err
	}
	return &QueryAudit{sink: s}, nil
}

// Record buffers res. It is safe for concurrent use.
func (a *QueryAudit) Record(ctx context.Context, res *types.ReasoningResult) error {
	rec := QueryRecord{
		ID:         res.ID,
		Timestamp:  time.Now().UTC(),
		Query:      res.Query,
		Intent:     string(res.Intent),
		Strategy:   string(res.Strategy),
		Outcome:    string(res.Outcome),
		Confidence: res.Confidence,
		Answers:    len(res.AnswerEntities),
		ErrorCode:  string(res.Error),
		UsedHint:   res.UsedHint,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
	}
	if v, ok := ctx.Value(types.ContextKeyRequestID).(string); ok {
		rec.RequestID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		rec.RequestSource = v
	}
	for _, s := range res.Steps {
		rec.Hops = max(rec.Hops, s.HopNumber)
	}
	ids := make([]string, 0, len(res.Entities))
	for _, c := range res.Entities {
		ids = append(ids, c.ID)
	}
	rec.Entities = strings.Join(ids, ",")
	return a.sink.add(rec)
}

// Close writes the remaining buffered records.
func (a *QueryAudit) Close() error {
	return a.sink.flush()
}
