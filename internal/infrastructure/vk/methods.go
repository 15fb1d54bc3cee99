package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"

	"rosterbot/internal/core/domain"
)

type keyboardAction struct {
	Type    string `json:"type"`
	Label   string `json:"label"`
	Payload string `json:"payload,omitempty"`
}

type keyboardButton struct {
	Action keyboardAction `json:"action"`
	Color  string         `json:"color,omitempty"`
}

type keyboardJSON struct {
	OneTime bool               `json:"one_time"`
	Buttons [][]keyboardButton `json:"buttons"`
}

// encodeKeyboard renders a persistent keyboard whose buttons carry
// {"action": "<token>"} payloads.
func encodeKeyboard(kb domain.Keyboard) (string, error) {
	out := keyboardJSON{Buttons: make([][]keyboardButton, 0, len(kb.Rows))}
	for _, row := range kb.Rows {
		buttons := make([]keyboardButton, 0, len(row))
		for _, b := range row {
			payload, err := json.Marshal(map[string]string{"action": string(b.Action)})
			if err != nil {
				return "", err
			}
			buttons = append(buttons, keyboardButton{
				Action: keyboardAction{Type: "text", Label: b.Label, Payload: string(payload)},
				Color:  string(b.Color),
			})
		}
		out.Buttons = append(out.Buttons, buttons)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Send posts a message with its keyboard via messages.send.
func (c *Client) Send(ctx context.Context, reply domain.Reply) error {
	params := url.Values{}
	params.Set("peer_id", formatID(reply.PeerID))
	params.Set("message", reply.Text)
	params.Set("random_id", formatID(int64(rand.Int32())))

	if len(reply.Keyboard.Rows) > 0 {
		kb, err := encodeKeyboard(reply.Keyboard)
		if err != nil {
			return fmt.Errorf("failed to encode keyboard: %w", err)
		}
		params.Set("keyboard", kb)
	}

	return c.call(ctx, "messages.send", params, nil)
}

type user struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FetchProfile looks the user up via users.get.
func (c *Client) FetchProfile(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	params := url.Values{}
	params.Set("user_ids", id.String())

	var users []user
	if err := c.call(ctx, "users.get", params, &users); err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %w", domain.ErrLookupFailed, err)
	}
	if len(users) == 0 {
		return domain.Profile{}, fmt.Errorf("%w: user %s not found", domain.ErrLookupFailed, id)
	}
	return domain.Profile{FirstName: users[0].FirstName, LastName: users[0].LastName}, nil
}

type resolvedObject struct {
	Type     string `json:"type"`
	ObjectID int64  `json:"object_id"`
}

// ResolveScreenName maps a vanity name to a user id via
// utils.resolveScreenName. Names of groups or apps are unresolvable.
func (c *Client) ResolveScreenName(ctx context.Context, name string) (domain.UserID, error) {
	params := url.Values{}
	params.Set("screen_name", name)

	var raw json.RawMessage
	if err := c.call(ctx, "utils.resolveScreenName", params, &raw); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrLookupFailed, err)
	}

	// an unknown name yields an empty array instead of an object
	var obj resolvedObject
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Type != "user" || obj.ObjectID <= 0 {
		return 0, fmt.Errorf("%w: %q is not a user", domain.ErrUnresolvable, name)
	}
	return domain.UserID(obj.ObjectID), nil
}
