package firehose

import (
	"encoding/json"
	"fmt"
	"strings"
)

// streamEvent is one firehose message.
type streamEvent struct {
	DID    string
	TimeUS int64
	Kind   string
	Commit *streamCommit
}

// streamCommit is the commit payload of a firehose event.
type streamCommit struct {
	Operation  string
	Collection string
	RKey       string
	CID        string
	Record     *postRecord
}

// postRecord is the post payload embedded in create commits.
type postRecord struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

func parseEvent(data []byte) (*streamEvent, error) {
	var raw struct {
		DID    string          `json:"did"`
		TimeUS int64           `json:"time_us"`
		Kind   string          `json:"kind"`
		Commit json.RawMessage `json:"commit,omitempty"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	event := &streamEvent{
		DID:    raw.DID,
		TimeUS: raw.TimeUS,
		Kind:   raw.Kind,
	}

	if raw.Kind == "commit" && len(raw.Commit) > 0 {
		var rc struct {
			Operation  string          `json:"operation"`
			Collection string          `json:"collection"`
			RKey       string          `json:"rkey"`
			Record     json.RawMessage `json:"record,omitempty"`
			CID        string          `json:"cid"`
		}
		if err := json.Unmarshal(raw.Commit, &rc); err != nil {
			return nil, fmt.Errorf("unmarshal commit: %w", err)
		}

		commit := &streamCommit{
			Operation:  rc.Operation,
			Collection: rc.Collection,
			RKey:       rc.RKey,
			CID:        rc.CID,
		}

		if len(rc.Record) > 0 && strings.HasPrefix(rc.Collection, postCollection) {
			var record postRecord
			if err := json.Unmarshal(rc.Record, &record); err != nil {
				return nil, fmt.Errorf("unmarshal post record: %w", err)
			}
			commit.Record = &record
		}

		event.Commit = commit
	}

	return event, nil
}
