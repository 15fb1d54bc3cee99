package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"rosterbot/internal/core/domain"
)

// juniorRecord mirrors one entry of the admins snapshot. start_time is unix
// seconds with a fractional part.
type juniorRecord struct {
	StartTime float64 `json:"start_time"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
}

func encodeJuniors(sessions map[domain.UserID]domain.JuniorSession) ([]byte, error) {
	records := make(map[string]juniorRecord, len(sessions))
	for id, s := range sessions {
		records[id.String()] = juniorRecord{
			StartTime: float64(s.StartedAt.Unix()) + float64(s.StartedAt.Nanosecond())/float64(time.Second),
			FirstName: s.FirstName,
			LastName:  s.LastName,
		}
	}
	return json.MarshalIndent(records, "", "  ")
}

func decodeJuniors(data []byte) (map[domain.UserID]domain.JuniorSession, error) {
	sessions := make(map[domain.UserID]domain.JuniorSession)
	if len(bytes.TrimSpace(data)) == 0 {
		return sessions, nil
	}

	var records map[string]juniorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal junior sessions: %w", err)
	}

	for raw, rec := range records {
		id, err := domain.ParseUserID(raw)
		if err != nil {
			return nil, fmt.Errorf("junior session key: %w", err)
		}
		sec, frac := math.Modf(rec.StartTime)
		first, last := rec.FirstName, rec.LastName
		if first == "" {
			first = domain.UnknownName
		}
		if last == "" {
			last = domain.UnknownName
		}
		sessions[id] = domain.JuniorSession{
			UserID:    id,
			StartedAt: time.Unix(int64(sec), int64(frac*float64(time.Second))),
			FirstName: first,
			LastName:  last,
		}
	}
	return sessions, nil
}

func encodeMembers(ids []domain.UserID) ([]byte, error) {
	if ids == nil {
		ids = []domain.UserID{}
	}
	return json.MarshalIndent(ids, "", "  ")
}

// decodeMembers accepts numbers and legacy quoted ids, dropping duplicates
// that canonicalize to the same user.
func decodeMembers(data []byte) ([]domain.UserID, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal member set: %w", err)
	}

	ids := make([]domain.UserID, 0, len(raw))
	for _, item := range raw {
		text := string(bytes.Trim(bytes.TrimSpace(item), `"`))
		id, err := domain.ParseUserID(text)
		if err != nil {
			return nil, fmt.Errorf("member set entry: %w", err)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
