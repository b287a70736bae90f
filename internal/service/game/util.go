package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

// GenID returns a short id suffix, enough entropy for room and player ids
// scoped to a single deployment.
func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("failed to generate uuid: " + err.Error())
	}
	s := id.String()
	return s[len(s)-12:]
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("failed to marshal: " + err.Error())
	}
	return data
}
