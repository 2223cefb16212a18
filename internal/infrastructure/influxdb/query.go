package influxdb

import (
	"context"
	"fmt"
	"time"
)

// RuleEventRecord is a single historical rule event returned by QueryRuleEvents.
type RuleEventRecord struct {
	Time   time.Time `json:"time"`
	RuleID string    `json:"rule_id"`
	Type   string    `json:"type"`
	State  bool      `json:"state"`
}

// QueryRuleEvents returns the most recent events recorded for a rule.
//
// Events are returned newest first. The window is bounded by both a
// lookback duration and a maximum record count.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - ruleID: The rule to query history for
//   - lookback: How far back to search (e.g., 24 * time.Hour)
//   - limit: Maximum number of events to return
//
// Returns:
//   - []RuleEventRecord: Matching events, newest first
//   - error: ErrNotConnected if disconnected, or a wrapped query failure
func (c *Client) QueryRuleEvents(ctx context.Context, ruleID string, lookback time.Duration, limit int) ([]RuleEventRecord, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 100
	}

	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == "rule_events" and r._field == "state" and r.rule_id == %q)
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)`,
		c.cfg.Bucket, int(lookback.Seconds()), ruleID, limit)

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	events := make([]RuleEventRecord, 0, limit)
	for result.Next() {
		record := result.Record()

		state, ok := record.Value().(bool)
		if !ok {
			continue
		}

		eventType, _ := record.ValueByKey("type").(string)
		events = append(events, RuleEventRecord{
			Time:   record.Time(),
			RuleID: ruleID,
			Type:   eventType,
			State:  state,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, result.Err())
	}

	return events, nil
}
