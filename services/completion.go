package services

import (
	"bytes"
	"encoding/json"
	"errors"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/types/task"
)

// decodeCompletion accepts every completion body the backend has shipped:
// the updated entity, the entity wrapped in {"task": ...}, or {xpEarned, totalXP}.
func decodeCompletion[T any](path string, raw json.RawMessage, granted func(T) int) (collection.Completion[T], error) {
	var res collection.Completion[T]
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return res, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return res, &apiclient.DecodeError{Path: path, Err: err}
	}

	if _, ok := fields["xpEarned"]; ok {
		var cr task.CompleteResponse
		if err := json.Unmarshal(raw, &cr); err != nil {
			return res, &apiclient.DecodeError{Path: path, Err: err}
		}
		res.Granted = cr.XPEarned
		res.TotalXP = cr.TotalXP
		return res, nil
	}

	body := raw
	if wrapped, ok := fields["task"]; ok {
		body = wrapped
	} else if _, ok := fields["id"]; !ok {
		return res, &apiclient.DecodeError{Path: path, Err: errors.New("completion body has neither a task nor xpEarned")}
	}

	var entity T
	if err := json.Unmarshal(body, &entity); err != nil {
		return res, &apiclient.DecodeError{Path: path, Err: err}
	}
	res.Entity = &entity
	res.Granted = granted(entity)

	if total, ok := fields["totalXP"]; ok {
		var n int
		if err := json.Unmarshal(total, &n); err == nil {
			res.TotalXP = &n
		}
	}
	return res, nil
}
