package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	createRoomPath  = "/twirp/livekit.RoomService/CreateRoom"
	startEgressPath = "/twirp/livekit.Egress/StartRoomCompositeEgress"
	stopEgressPath  = "/twirp/livekit.Egress/StopEgress"
)

// Client is the relay's HTTP control plane. Media and signaling stay opaque;
// only room administration and egress control go through here.
type Client interface {
	CreateRoom(ctx context.Context, roomName string, maxParticipants int) error
	StartRoomCompositeEgress(ctx context.Context, roomName, objectPath string) (string, error)
	StopEgress(ctx context.Context, egressId string) error
}

// S3Upload is the storage target the relay writes composite recordings to.
type S3Upload struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type ControlPlaneError struct {
	Status int
	Body   string
}

func (e *ControlPlaneError) Error() string {
	return fmt.Sprintf("relay control plane returned %d: %s", e.Status, e.Body)
}

type client struct {
	baseUrl string
	issuer  *TokenIssuer
	s3      S3Upload
	hc      *http.Client
}

func NewClient(baseUrl string, issuer *TokenIssuer, s3 S3Upload) Client {
	baseUrl = strings.TrimRight(baseUrl, "/")
	// The configured url is the websocket endpoint handed to clients; the
	// control plane answers on the same host over http(s).
	if strings.HasPrefix(baseUrl, "ws") {
		baseUrl = "http" + strings.TrimPrefix(baseUrl, "ws")
	}
	return &client{
		baseUrl: baseUrl,
		issuer:  issuer,
		s3:      s3,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) CreateRoom(ctx context.Context, roomName string, maxParticipants int) error {
	body := map[string]interface{}{
		"name":             roomName,
		"max_participants": maxParticipants,
	}
	err := c.post(ctx, createRoomPath, body, nil)
	// The relay treats CreateRoom for a known room as a conflict; for us the
	// room existing is the goal, so that answer is success.
	var cpe *ControlPlaneError
	if errors.As(err, &cpe) && strings.Contains(cpe.Body, "already exists") {
		return nil
	}
	return err
}

func (c *client) StartRoomCompositeEgress(ctx context.Context, roomName, objectPath string) (string, error) {
	body := map[string]interface{}{
		"room_name": roomName,
		"file_outputs": []map[string]interface{}{
			{
				"file_type": "MP4",
				"filepath":  objectPath,
				"s3": map[string]string{
					"endpoint":   c.s3.Endpoint,
					"access_key": c.s3.AccessKey,
					"secret":     c.s3.SecretKey,
					"bucket":     c.s3.Bucket,
				},
			},
		},
	}
	var out struct {
		EgressId string `json:"egress_id"`
	}
	if err := c.post(ctx, startEgressPath, body, &out); err != nil {
		return "", err
	}
	return out.EgressId, nil
}

func (c *client) StopEgress(ctx context.Context, egressId string) error {
	return c.post(ctx, stopEgressPath, map[string]string{"egress_id": egressId}, nil)
}

func (c *client) post(ctx context.Context, path string, body, out interface{}) error {
	token, err := c.issuer.AdminToken()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ControlPlaneError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
