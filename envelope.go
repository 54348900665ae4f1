package prefstore

import (
	"encoding/json"
	"errors"
)

// envelope is the persisted record. Data is kept raw so a stored JSON null is
// distinguishable from a missing member.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

var errNoData = errors.New("envelope has no data member")

func encodeEnvelope(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Data: data})
}

// decodeEnvelope unpacks raw into dst. Any error means the record is unusable.
func decodeEnvelope(raw []byte, dst any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return errNoData
	}
	return json.Unmarshal(env.Data, dst)
}
