package relay

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"live-classroom/constant"
)

const (
	adminTokenTTL       = 60 * time.Second
	participantTokenTTL = 6 * time.Hour
)

// VideoGrant mirrors the relay's grant object. Capability pointers are
// three-valued on the wire; nil means "relay default".
type VideoGrant struct {
	RoomCreate     bool   `json:"roomCreate,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	Room           string `json:"room,omitempty"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanSubscribe   *bool  `json:"canSubscribe,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
}

type Claims struct {
	jwt.RegisteredClaims
	Video    VideoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
}

// TokenIssuer mints both credential shapes against the same signing secret:
// short-lived room-admin tokens for control-plane calls and 6 h participant
// media tokens handed to clients.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
}

func NewTokenIssuer(apiKey, apiSecret string) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret}
}

// AdminToken is only ever used in Authorization headers toward the relay;
// it must never reach a client.
func (t *TokenIssuer) AdminToken() (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
		},
		Video: VideoGrant{RoomCreate: true},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.apiSecret))
}

// ParticipantToken binds (identity, room, role). The metadata string is
// surfaced by the relay to the other participant in the room.
func (t *TokenIssuer) ParticipantToken(identity, roomName string, role constant.ParticipantRole) (string, error) {
	metadata, err := json.Marshal(map[string]string{"role": role.String()})
	if err != nil {
		return "", err
	}

	yes := true
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(participantTokenTTL)),
		},
		Video: VideoGrant{
			RoomJoin:       true,
			Room:           roomName,
			CanPublish:     &yes,
			CanSubscribe:   &yes,
			CanPublishData: &yes,
		},
		Metadata: string(metadata),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.apiSecret))
}
