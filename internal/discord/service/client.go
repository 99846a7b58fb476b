package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// maxResponseBytes caps how much of a Discord response is read.
const maxResponseBytes = 1 << 20

type discordUser struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator *string `json:"discriminator"`
	Avatar        *string `json:"avatar"`
}

type discordGuild struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	Icon                   *string         `json:"icon"`
	Owner                  bool            `json:"owner"`
	Permissions            permissionValue `json:"permissions"`
	Features               []string        `json:"features"`
	ApproximateMemberCount *int            `json:"approximate_member_count"`
}

// permissionValue accepts both the string and the legacy integer encoding.
type permissionValue string

func (p *permissionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = "0"
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = permissionValue(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*p = permissionValue(strconv.FormatInt(n, 10))
	return nil
}

func (s *Service) getJSON(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord %s returned %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
