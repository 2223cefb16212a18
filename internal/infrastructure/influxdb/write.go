package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRuleEvent records a rule state transition in the rule_events
// measurement, tagged by rule id and trigger type, with the rule's state
// and any published stream values as fields. Non-blocking; the point joins
// the current batch. Dropped silently when disconnected.
func (c *Client) WriteRuleEvent(ruleID string, eventType string, state bool, streams map[string]float64) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{}, len(streams)+1)
	fields["state"] = state
	for name, value := range streams {
		fields[name] = value
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"rule_events",
		map[string]string{"rule_id": ruleID, "type": eventType},
		fields,
		time.Now(),
	))
}
