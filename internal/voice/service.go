// Package voice adapts the teacher's Agora token service into the
// signaling-authority gate of spec §6.7: instead of a fixed per-room channel
// open to every publisher, token issuance and signal relaying are both
// keyed off the game's current speaker, queried through
// game.Engine.GetVoiceTurnInfo.
package voice

import (
	"context"
	"fmt"
	"time"

	rtctokenbuilder "github.com/AgoraIO-Community/go-tokenbuilder/rtctokenbuilder"
	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/config"
	"github.com/duskfall/hollowvale/internal/game"
)

type Service struct {
	engine         *game.Engine
	appID          string
	appCertificate string
	tokenExpiry    uint32
}

func NewService(engine *game.Engine, cfg *config.AgoraConfig) *Service {
	return &Service{
		engine:         engine,
		appID:          cfg.AppID,
		appCertificate: cfg.AppCertificate,
		tokenExpiry:    cfg.TokenExpiry,
	}
}

// IssueToken mints an RTC token for roomID's voice channel, scoped to
// publisher if the caller is currently the active speaker and subscriber
// otherwise — spec §6.7's "offers only from the active speaker" rule
// enforced at the signaling layer, not just the media layer.
func (s *Service) IssueToken(ctx context.Context, roomID, userID uuid.UUID, uid uint32) (string, *game.VoiceTurnInfo, error) {
	turn, err := s.engine.GetVoiceTurnInfo(ctx, roomID, userID)
	if err != nil {
		return "", nil, err
	}

	role := rtctokenbuilder.RoleSubscriber
	if turn.IsCurrentSpeaker {
		role = rtctokenbuilder.RolePublisher
	}

	channelName := channelName(roomID)
	if err := s.ValidateChannelName(channelName); err != nil {
		return "", nil, err
	}

	expireTime := uint32(time.Now().Unix()) + s.tokenExpiry
	token, err := rtctokenbuilder.BuildTokenWithUID(s.appID, s.appCertificate, channelName, uid, role, expireTime)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build token: %w", err)
	}
	return token, turn, nil
}

// AuthorizeSignal enforces spec §6.7's relay rule: an offer may only
// originate from the active speaker to a non-speaker; an answer/candidate
// may only flow between the speaker and a listener (either direction).
func (s *Service) AuthorizeSignal(ctx context.Context, roomID, fromUserID, toUserID uuid.UUID, signalType string) error {
	turn, err := s.engine.GetVoiceTurnInfo(ctx, roomID, fromUserID)
	if err != nil {
		return err
	}
	toTurn, err := s.engine.GetVoiceTurnInfo(ctx, roomID, toUserID)
	if err != nil {
		return err
	}

	switch signalType {
	case "offer":
		if !turn.IsCurrentSpeaker || toTurn.IsCurrentSpeaker {
			return fmt.Errorf("offers only flow from the active speaker to a listener")
		}
	case "answer", "candidate":
		if !turn.IsCurrentSpeaker && !toTurn.IsCurrentSpeaker {
			return fmt.Errorf("%s must involve the active speaker", signalType)
		}
	default:
		return fmt.Errorf("unknown signal type %q", signalType)
	}
	return nil
}

func channelName(roomID uuid.UUID) string {
	return fmt.Sprintf("room_%s", roomID.String()[:8])
}

func (s *Service) GetAppID() string { return s.appID }

// ValidateChannelName mirrors the teacher's Agora constraint: alphanumeric
// plus underscore/hyphen, max 64 chars.
func (s *Service) ValidateChannelName(channelName string) error {
	if len(channelName) == 0 {
		return fmt.Errorf("channel name cannot be empty")
	}
	if len(channelName) > 64 {
		return fmt.Errorf("channel name too long (max 64 characters)")
	}
	for _, char := range channelName {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '_' || char == '-') {
			return fmt.Errorf("channel name contains invalid characters")
		}
	}
	return nil
}
